package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository provides access to library file records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a library repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new library record.
func (r *Repository) Create(ctx context.Context, file File) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO library_files (id, user_id, name, object_key, thumbnail_key, content_type, size_bytes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, name, object_key, thumbnail_key, content_type, size_bytes, created_at, updated_at;`

	row := r.pool.QueryRow(ctx, query,
		file.ID,
		file.UserID,
		file.Name,
		file.ObjectKey,
		file.ThumbnailKey,
		file.ContentType,
		file.SizeBytes,
	)

	var stored File
	if err := row.Scan(&stored.ID, &stored.UserID, &stored.Name, &stored.ObjectKey, &stored.ThumbnailKey, &stored.ContentType, &stored.SizeBytes, &stored.CreatedAt, &stored.UpdatedAt); err != nil {
		return File{}, fmt.Errorf("create library file: %w", err)
	}
	return stored, nil
}

// List returns the user's library records, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT id, user_id, name, object_key, thumbnail_key, content_type, size_bytes, created_at, updated_at
FROM library_files
WHERE user_id = $1
ORDER BY created_at DESC;`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list library files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var file File
		if err := rows.Scan(&file.ID, &file.UserID, &file.Name, &file.ObjectKey, &file.ThumbnailKey, &file.ContentType, &file.SizeBytes, &file.CreatedAt, &file.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan library file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate library files: %w", err)
	}
	return files, nil
}

// Get fetches a single record ensuring ownership.
func (r *Repository) Get(ctx context.Context, userID, fileID uuid.UUID) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT id, user_id, name, object_key, thumbnail_key, content_type, size_bytes, created_at, updated_at
FROM library_files
WHERE id = $1 AND user_id = $2;`

	var file File
	err := r.pool.QueryRow(ctx, query, fileID, userID).Scan(
		&file.ID,
		&file.UserID,
		&file.Name,
		&file.ObjectKey,
		&file.ThumbnailKey,
		&file.ContentType,
		&file.SizeBytes,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, ErrFileNotFound
		}
		return File{}, fmt.Errorf("get library file: %w", err)
	}
	return file, nil
}

// Delete removes a record and returns it so callers can release its objects.
func (r *Repository) Delete(ctx context.Context, userID, fileID uuid.UUID) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
DELETE FROM library_files
WHERE id = $1 AND user_id = $2
RETURNING id, user_id, name, object_key, thumbnail_key, content_type, size_bytes, created_at, updated_at;`

	var file File
	err := r.pool.QueryRow(ctx, query, fileID, userID).Scan(
		&file.ID,
		&file.UserID,
		&file.Name,
		&file.ObjectKey,
		&file.ThumbnailKey,
		&file.ContentType,
		&file.SizeBytes,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, ErrFileNotFound
		}
		return File{}, fmt.Errorf("delete library file: %w", err)
	}
	return file, nil
}

// DeleteAllForUser removes every record for the user and returns the deleted
// rows so callers can release the associated objects in one cascade.
func (r *Repository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) ([]File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
DELETE FROM library_files
WHERE user_id = $1
RETURNING id, user_id, name, object_key, thumbnail_key, content_type, size_bytes, created_at, updated_at;`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("delete library files for user: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var file File
		if err := rows.Scan(&file.ID, &file.UserID, &file.Name, &file.ObjectKey, &file.ThumbnailKey, &file.ContentType, &file.SizeBytes, &file.CreatedAt, &file.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan deleted library file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted library files: %w", err)
	}
	return files, nil
}
