// Package storage defines the operational surface the upload engine
// needs from an S3-compatible object store, with two implementations:
// a raw client that signs its own HTTP requests and a client backed by
// the minio-go SDK.
package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"time"
)

// ErrStore is wrapped by every failure talking to the object store:
// transport errors, auth rejections and expired multipart sessions all
// surface through it. The engine decides what recovery, if any, applies.
var ErrStore = errors.New("object store request failed")

// Part is one stored chunk of a multipart upload as reported by the
// store's authoritative part list. ETag carries the part's MD5 checksum.
type Part struct {
	Number int
	ETag   string
	Size   int64
}

// Client is the thin operational surface over the object store. Every
// method maps 1:1 to a store primitive and wraps ErrStore on failure.
type Client interface {
	// BucketExists reports whether the bucket exists.
	BucketExists(ctx context.Context, bucket string) (bool, error)

	// EnsureBucket creates the bucket when absent. Idempotent.
	EnsureBucket(ctx context.Context, bucket string) error

	// CreateMultipartUpload starts a multipart session for the object
	// and returns the store-assigned upload id.
	CreateMultipartUpload(ctx context.Context, bucket, object string) (string, error)

	// ListParts returns the ordered list of parts currently stored under
	// the upload id, up to maxParts entries.
	ListParts(ctx context.Context, bucket, object, uploadID string, maxParts int) ([]Part, error)

	// CompleteMultipartUpload merges the listed parts into the final object.
	CompleteMultipartUpload(ctx context.Context, bucket, object, uploadID string, parts []Part) error

	// PresignedUploadPartURL mints a PUT URL for one part of a multipart
	// session, valid for expires.
	PresignedUploadPartURL(ctx context.Context, bucket, object, uploadID string, partNumber int, expires time.Duration) (string, error)

	// PresignedGetURL mints a GET URL for an object, valid for expires.
	// params become response-header overrides (disposition, content type).
	PresignedGetURL(ctx context.Context, bucket, object string, expires time.Duration, params url.Values) (string, error)

	// PutObject writes a complete object in one shot.
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, contentType string) error

	// GetObject reads a complete object.
	GetObject(ctx context.Context, bucket, object string) ([]byte, error)

	// DeleteObject removes an object. Deleting a missing object is not
	// an error.
	DeleteObject(ctx context.Context, bucket, object string) error
}
