package collections

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements CollectionsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new collection and returns the assigned ID.
func (r *PGRepo) Create(ctx context.Context, c Collection) (Collection, error) {
	const query = `
INSERT INTO collections (unique_id, name, description, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id`

	err := r.DB.QueryRowContext(
		ctx,
		query,
		c.UniqueID,
		c.Name,
		nullString(c.Description),
		c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return Collection{}, err
	}
	return c, nil
}

// GetByUID returns one collection by its public unique ID.
func (r *PGRepo) GetByUID(ctx context.Context, uniqueID string) (Collection, error) {
	const query = `
SELECT id, unique_id, name, description, created_at
FROM collections
WHERE unique_id = $1`

	c, err := scanCollection(r.DB.QueryRowContext(ctx, query, uniqueID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Collection{}, ErrNotFound
		}
		return Collection{}, err
	}
	return c, nil
}

// List returns every collection, newest first.
func (r *PGRepo) List(ctx context.Context) ([]Collection, error) {
	const query = `
SELECT id, unique_id, name, description, created_at
FROM collections
ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes one collection. File rows cascade via the schema.
func (r *PGRepo) Delete(ctx context.Context, uniqueID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM collections WHERE unique_id = $1`, uniqueID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (Collection, error) {
	var c Collection
	var description sql.NullString
	err := row.Scan(&c.ID, &c.UniqueID, &c.Name, &description, &c.CreatedAt)
	if err != nil {
		return Collection{}, err
	}
	c.Description = description.String
	return c, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
