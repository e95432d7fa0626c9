package registry

import (
	"fmt"
	"net/http"

	"github.com/opencontainers/go-digest"
)

// HTTPStatusError is returned for any non-success response.
type HTTPStatusError struct {
	StatusCode int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Message, e.StatusCode, http.StatusText(e.StatusCode))
}

// UnknownImageNameError is returned when the existence probe answers neither 200 nor 404.
type UnknownImageNameError struct {
	ImageName  string
	StatusCode int
}

func (e *UnknownImageNameError) Error() string {
	return fmt.Sprintf("unknown image name: %s", e.ImageName)
}

// TransportError is a network failure before any status code was received.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// InvalidReferenceError is returned when repository and tag do not form a valid image reference.
type InvalidReferenceError struct {
	Reference string
	Err       error
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid image reference %q: %v", e.Reference, e.Err)
}

func (e *InvalidReferenceError) Unwrap() error {
	return e.Err
}

// DigestMismatchError is returned when digest verification is enabled and a blob's
// content does not hash to its digest.
type DigestMismatchError struct {
	Digest digest.Digest
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("blob content does not match digest %s", e.Digest)
}
