package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists file records in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if necessary initializes) the record database
// at path. ":memory:" is accepted for tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("database path must not be empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS file_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_key TEXT NOT NULL UNIQUE,
			content_hash TEXT NOT NULL,
			file_name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			suffix TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			storage_bucket TEXT NOT NULL,
			storage_path TEXT NOT NULL,
			upload_task_id TEXT NOT NULL DEFAULT '',
			is_finished INTEGER NOT NULL DEFAULT 0,
			is_part INTEGER NOT NULL DEFAULT 0,
			part_number INTEGER NOT NULL DEFAULT 1,
			is_preview INTEGER NOT NULL DEFAULT 0,
			is_private INTEGER NOT NULL DEFAULT 0,
			create_user TEXT NOT NULL,
			update_user TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_file_records_hash ON file_records(content_hash);`,
		`CREATE INDEX IF NOT EXISTS idx_file_records_user ON file_records(create_user);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

const recordColumns = `id, file_key, content_hash, file_name, mime_type, suffix, size_bytes,
	storage_bucket, storage_path, upload_task_id, is_finished, is_part, part_number,
	is_preview, is_private, create_user, update_user, created_at, updated_at`

func (s *SQLiteStore) Insert(ctx context.Context, rec *FileRecord) (*FileRecord, error) {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO file_records (file_key, content_hash, file_name, mime_type, suffix, size_bytes,
			storage_bucket, storage_path, upload_task_id, is_finished, is_part, part_number,
			is_preview, is_private, create_user, update_user, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FileKey, rec.ContentHash, rec.FileName, rec.MimeType, rec.Suffix, rec.SizeBytes,
		rec.StorageBucket, rec.StoragePath, rec.UploadTaskID, rec.IsFinished, rec.IsPart, rec.PartNumber,
		rec.IsPreview, rec.IsPrivate, rec.CreateUser, rec.UpdateUser, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert file record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert file record id: %w", err)
	}
	rec.ID = id
	return rec, nil
}

func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any

	if f.FileKey != "" {
		conds = append(conds, "file_key = ?")
		args = append(args, f.FileKey)
	}
	if f.ContentHash != "" {
		conds = append(conds, "content_hash = ?")
		args = append(args, f.ContentHash)
	}
	if f.CreateUser != "" {
		conds = append(conds, "create_user = ?")
		args = append(args, f.CreateUser)
	}
	if f.IsFinished != nil {
		conds = append(conds, "is_finished = ?")
		args = append(args, *f.IsFinished)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanRecord(row interface{ Scan(...any) error }) (*FileRecord, error) {
	var rec FileRecord
	err := row.Scan(
		&rec.ID, &rec.FileKey, &rec.ContentHash, &rec.FileName, &rec.MimeType, &rec.Suffix, &rec.SizeBytes,
		&rec.StorageBucket, &rec.StoragePath, &rec.UploadTaskID, &rec.IsFinished, &rec.IsPart, &rec.PartNumber,
		&rec.IsPreview, &rec.IsPrivate, &rec.CreateUser, &rec.UpdateUser, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) GetOne(ctx context.Context, f Filter) (*FileRecord, error) {
	where, args := buildWhere(f)
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM file_records`+where+` ORDER BY id LIMIT 1`, args...)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query file record: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]*FileRecord, error) {
	where, args := buildWhere(f)
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM file_records`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list file records: %w", err)
	}
	defer rows.Close()

	var records []*FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Update(ctx context.Context, u Update) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if u.UploadTaskID != nil {
		sets = append(sets, "upload_task_id = ?")
		args = append(args, *u.UploadTaskID)
	}
	if u.IsFinished != nil {
		sets = append(sets, "is_finished = ?")
		args = append(args, *u.IsFinished)
	}
	if u.UpdateUser != "" {
		sets = append(sets, "update_user = ?")
		args = append(args, u.UpdateUser)
	}
	args = append(args, u.ID)

	_, err := s.db.ExecContext(ctx, `UPDATE file_records SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update file record %d: %w", u.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM file_records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete file record %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
