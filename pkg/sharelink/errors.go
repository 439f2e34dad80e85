package sharelink

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrInvalidInput indicates a malformed creation request
	ErrInvalidInput = errors.New("invalid input")

	// ErrLinkNotFound indicates the link id is unknown
	ErrLinkNotFound = errors.New("link not found")

	// ErrLinkExpired indicates the link's time window has closed
	ErrLinkExpired = errors.New("link expired")

	// ErrLinkExhausted indicates the link's download limit is reached
	ErrLinkExhausted = errors.New("link download limit reached")

	// ErrDuplicateID indicates an id collision on create. The service
	// retries with a fresh id; callers never see this error.
	ErrDuplicateID = errors.New("link id already exists")

	// ErrSignerFailure indicates the storage provider failed to produce
	// a signed URL. Transient; the client may retry.
	ErrSignerFailure = errors.New("signer failure")
)

// LinkError represents an error from a link operation
type LinkError struct {
	LinkID uuid.UUID
	Op     string
	Err    error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link operation %s failed for link %s: %v", e.Op, e.LinkID, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// SignerError represents a failure of the external signing capability. It
// matches ErrSignerFailure under errors.Is so callers can branch on the
// kind while the provider cause stays reachable through Unwrap.
type SignerError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *SignerError) Error() string {
	return fmt.Sprintf("signing failed for key %s in bucket %s: %v", e.Key, e.Bucket, e.Err)
}

func (e *SignerError) Unwrap() error {
	return e.Err
}

func (e *SignerError) Is(target error) bool {
	return target == ErrSignerFailure
}
