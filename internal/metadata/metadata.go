// Package metadata is the durable mapping from file keys to file
// records: one record per (content hash, owner) pairing, many records
// possibly referencing the same physical object.
package metadata

import (
	"context"
	"time"
)

// FileRecord describes one initiated or completed upload for one owner.
// Records sharing a ContentHash reference the same physical object at
// StorageBucket/StoragePath/ContentHash.
type FileRecord struct {
	ID          int64
	FileKey     string
	ContentHash string
	FileName    string
	MimeType    string
	Suffix      string
	SizeBytes   int64

	StorageBucket string
	StoragePath   string

	// UploadTaskID is the store's multipart session id. It is replaced
	// when the store expires the session mid-upload.
	UploadTaskID string

	// IsFinished flips false -> true exactly once and never reverts.
	IsFinished bool
	IsPart     bool
	PartNumber int
	IsPreview  bool
	IsPrivate  bool

	CreateUser string
	UpdateUser string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Filter is a conjunction of record predicates. Zero-valued string
// fields match anything; IsFinished of nil matches both states.
type Filter struct {
	FileKey     string
	ContentHash string
	CreateUser  string
	IsFinished  *bool
}

// Update is a partial update addressed by record id. Nil fields are
// left untouched.
type Update struct {
	ID           int64
	UploadTaskID *string
	IsFinished   *bool
	UpdateUser   string
}

// Store is the durable record store consumed by the upload engine.
type Store interface {
	// Insert persists a new record and returns it with ID assigned.
	Insert(ctx context.Context, rec *FileRecord) (*FileRecord, error)

	// GetOne returns the first record matching the filter, or nil when
	// none matches.
	GetOne(ctx context.Context, f Filter) (*FileRecord, error)

	// List returns every record matching the filter.
	List(ctx context.Context, f Filter) ([]*FileRecord, error)

	// Update applies a partial update to one record.
	Update(ctx context.Context, u Update) error

	// Delete removes a record by id.
	Delete(ctx context.Context, id int64) error

	Close() error
}
