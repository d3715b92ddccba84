package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edstack/storacct/internal/cleanup"
	"github.com/google/uuid"
)

type fileStore interface {
	Create(ctx context.Context, file File) (File, error)
	List(ctx context.Context, userID uuid.UUID) ([]File, error)
	Get(ctx context.Context, userID, fileID uuid.UUID) (File, error)
	Delete(ctx context.Context, userID, fileID uuid.UUID) (File, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) ([]File, error)
}

type objectReleaser interface {
	ReleaseObjects(ctx context.Context, userID uuid.UUID, objectKeys []string) cleanup.Summary
}

type urlSigner interface {
	PresignedGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// Service manages library file records. Records are registered after an
// upload has been confirmed; deletion releases the underlying objects
// through the cleanup cascade.
type Service struct {
	repo        fileStore
	releaser    objectReleaser
	signer      urlSigner
	bucket      string
	downloadTTL time.Duration
}

// NewService constructs a library service.
func NewService(repo fileStore, releaser objectReleaser, signer urlSigner, bucket string, downloadTTL time.Duration) *Service {
	return &Service{
		repo:        repo,
		releaser:    releaser,
		signer:      signer,
		bucket:      bucket,
		downloadTTL: downloadTTL,
	}
}

// Register records a confirmed upload as a library file.
func (s *Service) Register(ctx context.Context, userID uuid.UUID, name, objectKey string, thumbnailKey *string, contentType string, sizeBytes int64) (File, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return File{}, fmt.Errorf("file name required")
	}
	if strings.TrimSpace(objectKey) == "" {
		return File{}, fmt.Errorf("object key required")
	}

	return s.repo.Create(ctx, File{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         name,
		ObjectKey:    objectKey,
		ThumbnailKey: thumbnailKey,
		ContentType:  contentType,
		SizeBytes:    sizeBytes,
	})
}

// List returns the user's library records.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]File, error) {
	return s.repo.List(ctx, userID)
}

// Download returns the record and a presigned GET URL for its object.
func (s *Service) Download(ctx context.Context, userID, fileID uuid.UUID) (File, string, error) {
	file, err := s.repo.Get(ctx, userID, fileID)
	if err != nil {
		return File{}, "", err
	}

	url, err := s.signer.PresignedGet(ctx, s.bucket, file.ObjectKey, s.downloadTTL)
	if err != nil {
		return File{}, "", fmt.Errorf("sign download url: %w", err)
	}
	return file, url, nil
}

// Delete removes a record and releases its objects. The record deletion is
// the operation the caller asked for; object cleanup is best-effort and
// never fails the call.
func (s *Service) Delete(ctx context.Context, userID, fileID uuid.UUID) error {
	file, err := s.repo.Delete(ctx, userID, fileID)
	if err != nil {
		return err
	}

	s.releaser.ReleaseObjects(ctx, userID, file.StorageKeys())
	return nil
}

// DeleteAll removes every record for the user and releases all associated
// objects in a single cascade with one aggregate usage update.
func (s *Service) DeleteAll(ctx context.Context, userID uuid.UUID) (int, error) {
	files, err := s.repo.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	var keys []string
	for _, file := range files {
		keys = append(keys, file.StorageKeys()...)
	}
	if len(keys) > 0 {
		s.releaser.ReleaseObjects(ctx, userID, keys)
	}
	return len(files), nil
}
