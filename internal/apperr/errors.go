// Package apperr defines the error taxonomy shared by the store, the editor and the API.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrMalformedCollection  = errors.New("malformed collection")
	ErrInvalidIndex         = errors.New("invalid index")
	ErrInvalidFilename      = errors.New("invalid filename")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrPersistence          = errors.New("persistence failure")
)

// MalformedCollectionError reports a collection document with an unexpected shape.
type MalformedCollectionError struct {
	Collection string
	Expected   string
	Detail     string
}

func (e *MalformedCollectionError) Error() string {
	msg := fmt.Sprintf("malformed %s collection: expected %s", e.Collection, e.Expected)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *MalformedCollectionError) Is(target error) bool { return target == ErrMalformedCollection }

// InvalidIndexError reports a positional reference outside the loaded sequence,
// or any reference into a session that has already been saved.
type InvalidIndexError struct {
	Index int
	Len   int
	Stale bool
}

func (e *InvalidIndexError) Error() string {
	if e.Stale {
		return fmt.Sprintf("invalid index %d: session is stale, reload the collection", e.Index)
	}
	return fmt.Sprintf("invalid index %d: collection has %d records", e.Index, e.Len)
}

func (e *InvalidIndexError) Is(target error) bool { return target == ErrInvalidIndex }

// InvalidFilenameError reports a filename that failed validation.
type InvalidFilenameError struct {
	Name   string
	Reason string
}

func (e *InvalidFilenameError) Error() string {
	return fmt.Sprintf("invalid filename %q: %s", e.Name, e.Reason)
}

func (e *InvalidFilenameError) Is(target error) bool { return target == ErrInvalidFilename }

// UnsupportedMediaTypeError reports an upload outside the image allow-list.
type UnsupportedMediaTypeError struct {
	MediaType string
}

func (e *UnsupportedMediaTypeError) Error() string {
	return fmt.Sprintf("unsupported media type %q: only JPEG, PNG, GIF, and WebP are allowed", e.MediaType)
}

func (e *UnsupportedMediaTypeError) Is(target error) bool { return target == ErrUnsupportedMediaType }

// PayloadTooLargeError reports an upload above the size ceiling.
type PayloadTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	if e.Size > 0 {
		return fmt.Sprintf("payload too large: %d bytes (max %d)", e.Size, e.Limit)
	}
	return fmt.Sprintf("payload too large: exceeds %d bytes", e.Limit)
}

func (e *PayloadTooLargeError) Is(target error) bool { return target == ErrPayloadTooLarge }

// PersistenceError wraps a failed write. Partial writes are not rolled back.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
