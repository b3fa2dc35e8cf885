package index

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies indexing degradations. None of them stop indexing.
type ErrorKind int

const (
	// KindIoSkip means a file could not be read or decoded and was skipped
	KindIoSkip ErrorKind = iota
	// KindManifestAbsent means the workspace has no manifest
	KindManifestAbsent
	// KindMalformedManifest means the manifest could not be decoded
	KindMalformedManifest
)

func (k ErrorKind) String() string {
	switch k {
	case KindIoSkip:
		return "io_skip"
	case KindManifestAbsent:
		return "manifest_absent"
	case KindMalformedManifest:
		return "malformed_manifest"
	}
	return "unknown"
}

// ErrInvalidText is the cause of an IoSkip for files that are not UTF-8.
var ErrInvalidText = errors.New("file is not valid UTF-8")

// IndexError provides detailed error information
type IndexError struct {
	Kind      ErrorKind `json:"kind"`
	Path      string    `json:"path,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Cause     error     `json:"-"`
}

func (e *IndexError) Error() string {
	parts := []string{fmt.Sprintf("[%s]", e.Kind)}

	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("in %s", e.Path))
	}

	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("during %s", e.Operation))
	}

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

func (e *IndexError) Unwrap() error {
	return e.Cause
}

func newIndexError(kind ErrorKind, path, op string, cause error) *IndexError {
	return &IndexError{Kind: kind, Path: path, Operation: op, Cause: cause}
}

// IsKind reports whether err is an IndexError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ie *IndexError
	return errors.As(err, &ie) && ie.Kind == kind
}
