package odloader

import (
	"errors"
	"fmt"
)

var (
	ErrNotFolder = errors.New("share link does not point to a folder")
	ErrMaxDepth  = errors.New("maximum folder depth exceeded")
)

// EncodingError is returned for share links that are not valid UTF-8.
type EncodingError struct {
	Link string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("share link %q is not valid utf-8", e.Link)
}

// MissingFieldError reports a response that lacks a key the caller relies on.
// Error pages decoded as JSON usually end up here.
type MissingFieldError struct {
	Field    string
	Endpoint string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("response from %s has no %q field", e.Endpoint, e.Field)
}

type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// StatusError is only produced when Config.StrictContent is set.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request %s failed with status code: %d", e.Endpoint, e.StatusCode)
}
