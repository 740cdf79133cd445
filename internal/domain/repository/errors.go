package repository

import "errors"

var (
	// ErrObjectNotFound is returned when an object does not exist in storage.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrSessionNotFound is returned when a playback session does not exist or has expired.
	ErrSessionNotFound = errors.New("playback session not found")
)
