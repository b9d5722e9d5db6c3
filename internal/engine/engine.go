// Package engine orchestrates resumable, deduplicating uploads: it
// decides per content hash whether to start a new multipart session,
// resume an existing one or short-circuit as already stored, reconciles
// the store's authoritative part list against the expected part count,
// and finalizes completed uploads.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lxp135/minio-plus/internal/metadata"
	"github.com/lxp135/minio-plus/internal/policy"
	"github.com/lxp135/minio-plus/internal/storage"
	"github.com/lxp135/minio-plus/internal/thumbnail"
)

// FailureURL is returned by the URL accessors whenever the real URL
// cannot be produced; the caller sees a broken link instead of an error.
const FailureURL = "/storage/failure"

// imageUploadURLPrefix is the gateway route accepting single-shot image
// bodies; the fileKey doubles as the upload id for this path.
const imageUploadURLPrefix = "/storage/upload/image/"

var (
	// ErrValidation rejects malformed input before any store call.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound reports an unknown file key or one not owned by the caller.
	ErrNotFound = errors.New("file not found")
	// ErrPermission reports a private file accessed by a non-owner.
	ErrPermission = errors.New("access denied")
)

// Options tune the engine. Zero values fall back to defaults.
type Options struct {
	PartSize        int64
	UploadExpiry    time.Duration
	DownloadExpiry  time.Duration
	ThumbnailEnable bool
	ThumbnailSize   int
}

// Engine is the upload orchestrator. All methods are safe for
// concurrent use; operations on the same content hash are serialized.
type Engine struct {
	records metadata.Store
	objects storage.Client
	opts    Options
	locks   *keyedMutex
}

// New returns an Engine over the given record store and object store.
func New(records metadata.Store, objects storage.Client, opts Options) *Engine {
	if opts.PartSize <= 0 {
		opts.PartSize = 5 * 1024 * 1024
	}
	if opts.UploadExpiry <= 0 {
		opts.UploadExpiry = 60 * time.Minute
	}
	if opts.DownloadExpiry <= 0 {
		opts.DownloadExpiry = 10 * time.Minute
	}
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = 300
	}
	return &Engine{
		records: records,
		objects: objects,
		opts:    opts,
		locks:   newKeyedMutex(),
	}
}

// UploadPart is one pending chunk upload handed back to the client.
type UploadPart struct {
	PartNumber int    `json:"partNumber"`
	UploadID   string `json:"uploadId"`
	URL        string `json:"url"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
}

// CheckResult is the outcome of Init: either the file is already stored
// (IsDone) or Parts lists the uploads still required.
type CheckResult struct {
	FileKey   string       `json:"fileKey"`
	FileName  string       `json:"fileName"`
	MimeType  string       `json:"mimeType"`
	Suffix    string       `json:"suffix"`
	SizeBytes int64        `json:"sizeBytes"`
	IsDone    bool         `json:"isDone"`
	PartCount int          `json:"partCount"`
	PartSize  int64        `json:"partSize"`
	Parts     []UploadPart `json:"parts"`
}

// CompleteResult is the outcome of Complete. Parts is populated only
// when the upload is still incomplete.
type CompleteResult struct {
	IsComplete   bool         `json:"isComplete"`
	UploadTaskID string       `json:"uploadTaskId"`
	Parts        []UploadPart `json:"parts"`
}

// PartitionPlan is the pre-sharding preview for a file size.
type PartitionPlan struct {
	SizeBytes int64   `json:"sizeBytes"`
	PartCount int     `json:"partCount"`
	PartSize  int64   `json:"partSize"`
	Parts     []Range `json:"parts"`
}

// session collects everything a decision branch produced: where the
// object lives, which multipart session to use and which part uploads
// remain.
type session struct {
	fileKey      string
	bucket       string
	path         string
	uploadTaskID string
	partCount    int
	parts        []UploadPart
}

// ComputePartitionPlan returns the partitioning a client should use
// before calling Init.
func (e *Engine) ComputePartitionPlan(sizeBytes int64) (*PartitionPlan, error) {
	if sizeBytes <= 0 {
		return nil, fmt.Errorf("%w: file size %d must be positive", ErrValidation, sizeBytes)
	}
	return &PartitionPlan{
		SizeBytes: sizeBytes,
		PartCount: partCount(sizeBytes, e.opts.PartSize),
		PartSize:  e.opts.PartSize,
		Parts:     Partition(sizeBytes, e.opts.PartSize),
	}, nil
}

// Init runs the upload-initialization decision procedure for a content
// hash presented by userID:
//
//  1. hash never seen: create a session and a new record
//  2. seen, but not by this user: piggyback on a finished record
//     (instant) or an unfinished one (resume under a new record)
//  3. user's own record is finished: instant
//  4. user's own record is unfinished: resume
func (e *Engine) Init(ctx context.Context, contentHash, fileName string, sizeBytes int64, isPrivate bool, userID string) (*CheckResult, error) {
	if contentHash == "" {
		return nil, fmt.Errorf("%w: content hash is required", ErrValidation)
	}
	if sizeBytes <= 0 {
		return nil, fmt.Errorf("%w: file size %d must be positive", ErrValidation, sizeBytes)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	unlock := e.locks.Lock(contentHash)
	defer unlock()

	records, err := e.records.List(ctx, metadata.Filter{ContentHash: contentHash})
	if err != nil {
		return nil, err
	}

	// 1. Brand-new content.
	if len(records) == 0 {
		sess, err := e.createSession(ctx, contentHash, fileName, sizeBytes)
		if err != nil {
			return nil, err
		}

		rec, err := e.insertRecord(ctx, sess, contentHash, fileName, sizeBytes, isPrivate, userID)
		if err != nil {
			return nil, err
		}
		return e.checkResult(rec, sess.parts, sess.partCount, false), nil
	}

	var mine *metadata.FileRecord
	for _, r := range records {
		if r.CreateUser == userID {
			mine = r
			break
		}
	}

	// 2. Someone else uploaded (or is uploading) this content.
	if mine == nil {
		src := records[0]
		for _, r := range records {
			if r.IsFinished {
				src = r
				break
			}
		}

		if src.IsFinished {
			// 2a. Instant: a complete physical object already exists.
			rec, err := e.records.Insert(ctx, cloneRecord(src, fileName, isPrivate, userID))
			if err != nil {
				return nil, err
			}
			return e.checkResult(rec, nil, 0, true), nil
		}

		// 2b. Join the in-flight upload under a record of our own.
		sess, err := e.resumeSession(ctx, src)
		if err != nil {
			return nil, err
		}
		if err := e.replaceSessionID(ctx, src, sess.uploadTaskID, userID); err != nil {
			return nil, err
		}

		clone := cloneRecord(src, fileName, isPrivate, userID)
		clone.IsFinished = false
		clone.UploadTaskID = sess.uploadTaskID
		rec, err := e.records.Insert(ctx, clone)
		if err != nil {
			return nil, err
		}
		return e.checkResult(rec, sess.parts, sess.partCount, false), nil
	}

	// 3. Already uploaded by this user.
	if mine.IsFinished {
		return e.checkResult(mine, nil, 0, true), nil
	}

	// 4. Resume this user's own unfinished upload.
	if e.isImageShortcut(mine.StorageBucket) {
		part := gatewayImagePart(mine.FileKey, sizeBytes)
		return e.checkResult(mine, []UploadPart{part}, 1, false), nil
	}

	sess, err := e.resumeSession(ctx, mine)
	if err != nil {
		return nil, err
	}
	if err := e.replaceSessionID(ctx, mine, sess.uploadTaskID, userID); err != nil {
		return nil, err
	}
	return e.checkResult(mine, sess.parts, sess.partCount, false), nil
}

// Complete validates the caller-submitted part checksums against the
// store's authoritative list and merges when everything is present.
// When parts are missing it behaves like a resume, handing back fresh
// URLs for exactly the missing numbers.
func (e *Engine) Complete(ctx context.Context, fileKey string, partChecksums []string, userID string) (*CompleteResult, error) {
	rec, err := e.records.GetOne(ctx, metadata.Filter{FileKey: fileKey, CreateUser: userID})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileKey)
	}

	// Idempotent: a finished record never touches the store again.
	if rec.IsFinished {
		return &CompleteResult{IsComplete: true}, nil
	}

	if e.isImageShortcut(rec.StorageBucket) {
		// Images upload through the gateway in one shot; completion
		// happens in UploadImage.
		return &CompleteResult{
			IsComplete:   false,
			UploadTaskID: rec.UploadTaskID,
			Parts:        []UploadPart{gatewayImagePart(rec.FileKey, rec.SizeBytes)},
		}, nil
	}

	if len(partChecksums) != rec.PartNumber {
		return nil, fmt.Errorf("%w: got %d part checksums, expected %d", ErrValidation, len(partChecksums), rec.PartNumber)
	}

	unlock := e.locks.Lock(rec.ContentHash)
	defer unlock()

	// Reload under the lock: a concurrent call may have merged the
	// upload between the lookup and the lock, and acting on the stale
	// record would open a fresh session for already-finished content.
	rec, err = e.records.GetOne(ctx, metadata.Filter{FileKey: fileKey, CreateUser: userID})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileKey)
	}
	if rec.IsFinished {
		return &CompleteResult{IsComplete: true}, nil
	}

	object := policy.ObjectName(rec.StoragePath, rec.ContentHash)
	remote, err := e.objects.ListParts(ctx, rec.StorageBucket, object, rec.UploadTaskID, rec.PartNumber)
	if err != nil {
		slog.Warn("part list unavailable, treating session as expired", "file_key", fileKey, "upload_task_id", rec.UploadTaskID, "err", err)
		remote = nil
	}

	missing := missingParts(remote, partChecksums, rec.PartNumber)
	if len(missing) > 0 {
		sess, err := e.regenerate(ctx, rec, missing)
		if err != nil {
			return nil, err
		}
		if err := e.replaceSessionID(ctx, rec, sess.uploadTaskID, userID); err != nil {
			return nil, err
		}
		return &CompleteResult{IsComplete: false, UploadTaskID: sess.uploadTaskID, Parts: sess.parts}, nil
	}

	sort.Slice(remote, func(i, j int) bool { return remote[i].Number < remote[j].Number })
	if err := e.objects.CompleteMultipartUpload(ctx, rec.StorageBucket, object, rec.UploadTaskID, remote); err != nil {
		return nil, err
	}

	if err := e.finishRecord(ctx, rec, userID); err != nil {
		return nil, err
	}
	return &CompleteResult{IsComplete: true, UploadTaskID: rec.UploadTaskID}, nil
}

// UploadImage stores a single-shot image body for a previously
// initialized record, generates its thumbnail when enabled and marks
// the upload finished.
func (e *Engine) UploadImage(ctx context.Context, fileKey string, data []byte) error {
	rec, err := e.records.GetOne(ctx, metadata.Filter{FileKey: fileKey})
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, fileKey)
	}

	unlock := e.locks.Lock(rec.ContentHash)
	defer unlock()

	object := policy.ObjectName(rec.StoragePath, rec.ContentHash)
	if err := e.objects.PutObject(ctx, rec.StorageBucket, object, bytes.NewReader(data), int64(len(data)), rec.MimeType); err != nil {
		return err
	}

	if rec.IsPreview {
		thumb, err := thumbnail.Generate(data, e.opts.ThumbnailSize)
		if err != nil {
			return fmt.Errorf("generate thumbnail for %s: %w", fileKey, err)
		}
		if err := e.objects.PutObject(ctx, policy.BucketImagePreview, object, bytes.NewReader(thumb), int64(len(thumb)), rec.MimeType); err != nil {
			return err
		}
	}

	return e.finishRecord(ctx, rec, rec.UpdateUser)
}

// DownloadURL returns a presigned URL that downloads the file as an
// attachment. It never fails outward: any error yields FailureURL.
func (e *Engine) DownloadURL(ctx context.Context, fileKey, userID string) string {
	rec, err := e.accessibleRecord(ctx, fileKey, userID)
	if err != nil {
		slog.Error("download url", "file_key", fileKey, "err", err)
		return FailureURL
	}

	params := url.Values{
		"response-content-disposition": {`attachment;filename="` + rec.FileName + `"`},
		"response-content-type":        {rec.MimeType},
	}
	u, err := e.objects.PresignedGetURL(ctx, rec.StorageBucket, policy.ObjectName(rec.StoragePath, rec.ContentHash), e.opts.DownloadExpiry, params)
	if err != nil {
		slog.Error("download url", "file_key", fileKey, "err", err)
		return FailureURL
	}
	return u
}

// ImageURL returns a presigned URL rendering the original image inline.
// Never fails outward.
func (e *Engine) ImageURL(ctx context.Context, fileKey, userID string) string {
	rec, err := e.accessibleRecord(ctx, fileKey, userID)
	if err != nil {
		slog.Error("image url", "file_key", fileKey, "err", err)
		return FailureURL
	}
	return e.inlineURL(ctx, fileKey, rec.StorageBucket, rec)
}

// PreviewURL returns a presigned URL for the thumbnail when one exists,
// falling back to the original object. Never fails outward.
func (e *Engine) PreviewURL(ctx context.Context, fileKey, userID string) string {
	rec, err := e.accessibleRecord(ctx, fileKey, userID)
	if err != nil {
		slog.Error("preview url", "file_key", fileKey, "err", err)
		return FailureURL
	}

	bucket := rec.StorageBucket
	if rec.IsPreview {
		bucket = policy.BucketImagePreview
	}
	return e.inlineURL(ctx, fileKey, bucket, rec)
}

func (e *Engine) inlineURL(ctx context.Context, fileKey, bucket string, rec *metadata.FileRecord) string {
	params := url.Values{
		"response-content-type":        {rec.MimeType},
		"response-content-disposition": {"inline"},
	}
	u, err := e.objects.PresignedGetURL(ctx, bucket, policy.ObjectName(rec.StoragePath, rec.ContentHash), e.opts.DownloadExpiry, params)
	if err != nil {
		slog.Error("inline url", "file_key", fileKey, "bucket", bucket, "err", err)
		return FailureURL
	}
	return u
}

// Read returns a record and its object bytes for gateway-streamed
// downloads.
func (e *Engine) Read(ctx context.Context, fileKey string) (*metadata.FileRecord, []byte, error) {
	rec, err := e.records.GetOne(ctx, metadata.Filter{FileKey: fileKey})
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, fileKey)
	}

	data, err := e.objects.GetObject(ctx, rec.StorageBucket, policy.ObjectName(rec.StoragePath, rec.ContentHash))
	if err != nil {
		return nil, nil, err
	}
	return rec, data, nil
}

// Remove deletes the record for fileKey. A non-empty userID restricts
// deletion to records that user owns; a mismatch is a silent no-op.
// When the last record referencing a content hash goes away, the
// physical object and any thumbnail are deleted with it. Idempotent.
func (e *Engine) Remove(ctx context.Context, fileKey, userID string) (bool, error) {
	rec, err := e.records.GetOne(ctx, metadata.Filter{FileKey: fileKey})
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	if userID != "" && rec.CreateUser != userID {
		return false, nil
	}

	unlock := e.locks.Lock(rec.ContentHash)
	defer unlock()

	// Reload under the lock in case a concurrent call already removed
	// the record.
	rec, err = e.records.GetOne(ctx, metadata.Filter{FileKey: fileKey})
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	if err := e.records.Delete(ctx, rec.ID); err != nil {
		return false, err
	}

	remaining, err := e.records.List(ctx, metadata.Filter{ContentHash: rec.ContentHash})
	if err != nil {
		return false, err
	}
	if len(remaining) > 0 {
		return true, nil
	}

	object := policy.ObjectName(rec.StoragePath, rec.ContentHash)
	if err := e.objects.DeleteObject(ctx, rec.StorageBucket, object); err != nil {
		return false, err
	}
	if rec.IsPreview {
		if err := e.objects.DeleteObject(ctx, policy.BucketImagePreview, object); err != nil {
			return false, err
		}
	}
	return true, nil
}

// createSession allocates storage coordinates for brand-new content and
// opens a multipart session, or short-circuits to the single-shot
// gateway path for images.
func (e *Engine) createSession(ctx context.Context, contentHash, fileName string, sizeBytes int64) (session, error) {
	suffix := policy.Suffix(fileName)
	if suffix == "" {
		return session{}, fmt.Errorf("%w: cannot resolve extension of %q", ErrValidation, fileName)
	}

	path, err := policy.ObjectPath(contentHash)
	if err != nil {
		return session{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	sess := session{
		fileKey: newFileKey(),
		bucket:  policy.BucketBySuffix(suffix),
		path:    path,
	}

	if err := e.objects.EnsureBucket(ctx, sess.bucket); err != nil {
		return session{}, err
	}

	if e.isImageShortcut(sess.bucket) {
		sess.partCount = 1
		sess.uploadTaskID = sess.fileKey
		sess.parts = []UploadPart{gatewayImagePart(sess.fileKey, sizeBytes)}
		return sess, nil
	}

	object := policy.ObjectName(path, contentHash)
	uploadID, err := e.objects.CreateMultipartUpload(ctx, sess.bucket, object)
	if err != nil {
		return session{}, err
	}
	sess.uploadTaskID = uploadID
	sess.partCount = partCount(sizeBytes, e.opts.PartSize)

	for n := 1; n <= sess.partCount; n++ {
		part, err := e.uploadPart(ctx, sess.bucket, object, uploadID, n, sizeBytes)
		if err != nil {
			return session{}, err
		}
		sess.parts = append(sess.parts, part)
	}
	return sess, nil
}

// resumeSession reconciles the store's part list against the record's
// expected count. A fully-present upload yields no parts; an
// unreachable or empty session is replaced by a fresh one with every
// part missing.
func (e *Engine) resumeSession(ctx context.Context, rec *metadata.FileRecord) (session, error) {
	object := policy.ObjectName(rec.StoragePath, rec.ContentHash)

	remote, err := e.objects.ListParts(ctx, rec.StorageBucket, object, rec.UploadTaskID, rec.PartNumber)
	if err != nil {
		slog.Warn("part list unavailable, treating session as expired", "file_key", rec.FileKey, "upload_task_id", rec.UploadTaskID, "err", err)
		remote = nil
	}

	if len(remote) == rec.PartNumber {
		// Everything is stored; the client should go straight to Complete.
		return session{
			fileKey:      rec.FileKey,
			bucket:       rec.StorageBucket,
			path:         rec.StoragePath,
			uploadTaskID: rec.UploadTaskID,
			partCount:    rec.PartNumber,
		}, nil
	}

	present := make(map[int]bool, len(remote))
	for _, p := range remote {
		present[p.Number] = true
	}
	var missing []int
	for n := 1; n <= rec.PartNumber; n++ {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	return e.regenerate(ctx, rec, missing)
}

// regenerate produces upload URLs for exactly the missing part numbers,
// preserving their original byte ranges. When no part has been
// confirmed the session id is considered expired and a new session is
// opened on the same object.
func (e *Engine) regenerate(ctx context.Context, rec *metadata.FileRecord, missing []int) (session, error) {
	sess := session{
		fileKey:      rec.FileKey,
		bucket:       rec.StorageBucket,
		path:         rec.StoragePath,
		uploadTaskID: rec.UploadTaskID,
		partCount:    rec.PartNumber,
	}
	object := policy.ObjectName(rec.StoragePath, rec.ContentHash)

	if len(missing) == rec.PartNumber {
		uploadID, err := e.objects.CreateMultipartUpload(ctx, sess.bucket, object)
		if err != nil {
			return session{}, err
		}
		slog.Info("multipart session replaced", "file_key", rec.FileKey, "old", rec.UploadTaskID, "new", uploadID)
		sess.uploadTaskID = uploadID
	}

	for _, n := range missing {
		part, err := e.uploadPart(ctx, sess.bucket, object, sess.uploadTaskID, n, rec.SizeBytes)
		if err != nil {
			return session{}, err
		}
		sess.parts = append(sess.parts, part)
	}
	return sess, nil
}

func (e *Engine) uploadPart(ctx context.Context, bucket, object, uploadID string, n int, sizeBytes int64) (UploadPart, error) {
	u, err := e.objects.PresignedUploadPartURL(ctx, bucket, object, uploadID, n, e.opts.UploadExpiry)
	if err != nil {
		return UploadPart{}, err
	}
	rng := partRange(n, sizeBytes, e.opts.PartSize)
	return UploadPart{
		PartNumber: n,
		UploadID:   uploadID,
		URL:        u,
		Start:      rng.Start,
		End:        rng.End,
	}, nil
}

// replaceSessionID persists a session transition on the record when new
// URLs were minted for a replacement session.
func (e *Engine) replaceSessionID(ctx context.Context, rec *metadata.FileRecord, uploadTaskID, userID string) error {
	if uploadTaskID == rec.UploadTaskID {
		return nil
	}
	if err := e.records.Update(ctx, metadata.Update{ID: rec.ID, UploadTaskID: &uploadTaskID, UpdateUser: userID}); err != nil {
		return err
	}
	rec.UploadTaskID = uploadTaskID
	return nil
}

// finishRecord marks rec finished and cascades: every other unfinished
// record with the same content hash references the same, now complete,
// physical object.
func (e *Engine) finishRecord(ctx context.Context, rec *metadata.FileRecord, userID string) error {
	finished := true
	if err := e.records.Update(ctx, metadata.Update{ID: rec.ID, IsFinished: &finished, UpdateUser: userID}); err != nil {
		return err
	}

	unfinished := false
	others, err := e.records.List(ctx, metadata.Filter{ContentHash: rec.ContentHash, IsFinished: &unfinished})
	if err != nil {
		return err
	}
	for _, other := range others {
		if err := e.records.Update(ctx, metadata.Update{ID: other.ID, IsFinished: &finished, UpdateUser: userID}); err != nil {
			return err
		}
	}
	return nil
}

// accessibleRecord resolves a fileKey for read access: public records
// are visible to anyone, private ones only to their owner.
func (e *Engine) accessibleRecord(ctx context.Context, fileKey, userID string) (*metadata.FileRecord, error) {
	rec, err := e.records.GetOne(ctx, metadata.Filter{FileKey: fileKey})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileKey)
	}
	if rec.IsPrivate && rec.CreateUser != userID {
		return nil, fmt.Errorf("%w: %s", ErrPermission, fileKey)
	}
	return rec, nil
}

func (e *Engine) insertRecord(ctx context.Context, sess session, contentHash, fileName string, sizeBytes int64, isPrivate bool, userID string) (*metadata.FileRecord, error) {
	suffix := policy.Suffix(fileName)
	return e.records.Insert(ctx, &metadata.FileRecord{
		FileKey:       sess.fileKey,
		ContentHash:   contentHash,
		FileName:      fileName,
		MimeType:      policy.ContentTypeBySuffix(suffix),
		Suffix:        suffix,
		SizeBytes:     sizeBytes,
		StorageBucket: sess.bucket,
		StoragePath:   sess.path,
		UploadTaskID:  sess.uploadTaskID,
		IsFinished:    false,
		IsPart:        sess.partCount > 1,
		PartNumber:    sess.partCount,
		IsPreview:     e.isImageShortcut(sess.bucket),
		IsPrivate:     isPrivate,
		CreateUser:    userID,
		UpdateUser:    userID,
	})
}

func (e *Engine) checkResult(rec *metadata.FileRecord, parts []UploadPart, count int, isDone bool) *CheckResult {
	return &CheckResult{
		FileKey:   rec.FileKey,
		FileName:  rec.FileName,
		MimeType:  rec.MimeType,
		Suffix:    rec.Suffix,
		SizeBytes: rec.SizeBytes,
		IsDone:    isDone,
		PartCount: count,
		PartSize:  e.opts.PartSize,
		Parts:     parts,
	}
}

func (e *Engine) isImageShortcut(bucket string) bool {
	return bucket == policy.BucketImage && e.opts.ThumbnailEnable
}

// cloneRecord derives a new record for userID referencing the same
// physical object as src. The file key is always freshly generated.
func cloneRecord(src *metadata.FileRecord, fileName string, isPrivate bool, userID string) *metadata.FileRecord {
	return &metadata.FileRecord{
		FileKey:       newFileKey(),
		ContentHash:   src.ContentHash,
		FileName:      fileName,
		MimeType:      src.MimeType,
		Suffix:        src.Suffix,
		SizeBytes:     src.SizeBytes,
		StorageBucket: src.StorageBucket,
		StoragePath:   src.StoragePath,
		UploadTaskID:  src.UploadTaskID,
		IsFinished:    src.IsFinished,
		IsPart:        src.IsPart,
		PartNumber:    src.PartNumber,
		IsPreview:     src.IsPreview,
		IsPrivate:     isPrivate,
		CreateUser:    userID,
		UpdateUser:    userID,
	}
}

// missingParts returns every expected part number whose checksum is
// absent from or disagrees with the remote list. A checksum mismatch
// counts as missing.
func missingParts(remote []storage.Part, checksums []string, expected int) []int {
	var missing []int
	for n := 1; n <= expected; n++ {
		found := false
		for _, p := range remote {
			if p.Number == n && etagEqual(p.ETag, checksums[n-1]) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, n)
		}
	}
	return missing
}

// etagEqual compares checksums ignoring the quotes S3 wraps ETags in.
func etagEqual(a, b string) bool {
	return strings.EqualFold(strings.Trim(a, `"`), strings.Trim(b, `"`))
}

// newFileKey generates the client-facing handle for a record: a random
// 32-character hex string, collision-free for practical purposes.
func newFileKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func gatewayImagePart(fileKey string, sizeBytes int64) UploadPart {
	return UploadPart{
		PartNumber: 1,
		UploadID:   fileKey,
		URL:        imageUploadURLPrefix + fileKey,
		Start:      0,
		End:        sizeBytes,
	}
}
