package sharelink

// CreateLinkRequest contains the parameters for creating a share link.
type CreateLinkRequest struct {
	ObjectKey        string
	Bucket           string // optional; empty means the signer's default bucket
	ExpiresIn        int64  // seconds; 0 means the configured default
	MaxDownloads     *int64 // nil means unlimited
	DownloadFilename string // optional content-disposition file name
}

// ListObjectsRequest contains the parameters for browsing a bucket.
type ListObjectsRequest struct {
	Bucket            string
	Prefix            string
	ContinuationToken string
}
