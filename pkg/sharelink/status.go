package sharelink

import "time"

// ProjectStatus derives the display status for a link at the given
// instant. It never mutates the link and uses the same eligibility
// predicate as the stores' redeem path.
func ProjectStatus(link *Link, now time.Time, downloadURL string) *LinkStatus {
	status := &LinkStatus{
		Link:        *link,
		IsExpired:   link.ExpiredAt(now),
		Usable:      link.Redeemable(now),
		DownloadURL: downloadURL,
	}

	if link.MaxDownloads != nil {
		remaining := *link.MaxDownloads - link.DownloadsServed
		if remaining < 0 {
			remaining = 0
		}
		status.Remaining = &remaining
	}

	return status
}
