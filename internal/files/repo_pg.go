package files

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements FilesRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const fileColumns = `
id, collection_id, filename, original_filename, mime_type, size_bytes,
storage_path, storage_backend, thumb_path, medium_path, upload_complete, created_at`

// Create inserts a new file record.
func (r *PGRepo) Create(ctx context.Context, f File) error {
	const query = `
INSERT INTO files (
    id,
    collection_id,
    filename,
    original_filename,
    mime_type,
    size_bytes,
    storage_path,
    storage_backend,
    thumb_path,
    medium_path,
    upload_complete,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		f.ID,
		f.CollectionID,
		f.Filename,
		f.OriginalFilename,
		f.MimeType,
		f.SizeBytes,
		f.StoragePath,
		f.StorageBackend,
		nullString(f.ThumbPath),
		nullString(f.MediumPath),
		f.UploadComplete,
		f.CreatedAt,
	)
	return err
}

// GetByID returns one file record.
func (r *PGRepo) GetByID(ctx context.Context, id string) (File, error) {
	const query = `SELECT` + fileColumns + `
FROM files
WHERE id = $1`

	f, err := scanFile(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return File{}, ErrNotFound
		}
		return File{}, err
	}
	return f, nil
}

// ListByCollection returns the collection's files ordered by creation time.
func (r *PGRepo) ListByCollection(ctx context.Context, collectionID int64) ([]File, error) {
	const query = `SELECT` + fileColumns + `
FROM files
WHERE collection_id = $1
ORDER BY created_at ASC`

	rows, err := r.DB.QueryContext(ctx, query, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateVariantPaths applies every update inside one transaction. An empty
// field keeps the existing stored value.
func (r *PGRepo) UpdateVariantPaths(ctx context.Context, updates []VariantUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	const query = `
UPDATE files
SET thumb_path = COALESCE(NULLIF($2, ''), thumb_path),
    medium_path = COALESCE(NULLIF($3, ''), medium_path)
WHERE id = $1`

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, query, u.FileID, u.ThumbPath, u.MediumPath); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Delete removes one file record.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByCollection removes every record of the collection and returns the
// deleted rows.
func (r *PGRepo) DeleteByCollection(ctx context.Context, collectionID int64) ([]File, error) {
	const query = `
DELETE FROM files
WHERE collection_id = $1
RETURNING` + fileColumns

	rows, err := r.DB.QueryContext(ctx, query, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (File, error) {
	var f File
	var thumb, medium sql.NullString
	err := row.Scan(
		&f.ID,
		&f.CollectionID,
		&f.Filename,
		&f.OriginalFilename,
		&f.MimeType,
		&f.SizeBytes,
		&f.StoragePath,
		&f.StorageBackend,
		&thumb,
		&medium,
		&f.UploadComplete,
		&f.CreatedAt,
	)
	if err != nil {
		return File{}, err
	}
	f.ThumbPath = thumb.String
	f.MediumPath = medium.String
	return f, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
