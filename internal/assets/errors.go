package assets

import "fmt"

// CompressionError reports a failure preparing the image (decode, resize,
// re-encode, or the post-compression size cap).
type CompressionError struct {
	Reason string
	Cause  error
}

func (e *CompressionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("assets: compression failed: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("assets: compression failed: %s", e.Reason)
}

func (e *CompressionError) Unwrap() error { return e.Cause }

// UploadError reports a failure writing the object to storage.
type UploadError struct {
	Bucket string
	Object string
	Cause  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("assets: upload to %s/%s failed: %v", e.Bucket, e.Object, e.Cause)
}

func (e *UploadError) Unwrap() error { return e.Cause }
