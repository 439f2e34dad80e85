// Package sharelink issues time-limited, usage-limited share links for
// objects in S3-compatible object storage and tracks their consumption.
//
// A share link is a stable indirection token. Creating one records the
// target object together with an expiry and an optional download budget;
// redeeming it atomically consumes one download slot and produces a
// short-lived presigned URL. Signing happens lazily at redemption time,
// so signature freshness is decoupled from the link's own lifetime and
// the shared URL never embeds provider credentials.
//
// The package is storage-agnostic: repo/memory serves tests and
// single-process deployments, repo/postgres provides durable storage
// with the conditional-update redeem, and storage/s3 supplies the signer
// and bucket browsing on top of the AWS SDK.
package sharelink
