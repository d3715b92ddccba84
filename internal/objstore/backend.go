package objstore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
)

// ObjectInfo carries the subset of object metadata the accounting core needs.
type ObjectInfo struct {
	SizeBytes int64
	ETag      string
}

type minioAPI interface {
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Backend adapts a MinIO client to the storage-accounting core. Uploads and
// downloads never flow through this service; clients talk to the object store
// directly via the presigned URLs issued here.
type Backend struct {
	client minioAPI
}

// NewBackend wraps a MinIO client.
func NewBackend(client minioAPI) *Backend {
	return &Backend{client: client}
}

// PresignedPut issues a presigned PUT URL for a direct client upload.
// The content type is not bound into the signature; MinIO accepts whatever
// Content-Type header the client sends on the PUT.
func (b *Backend) PresignedPut(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := b.client.PresignedPutObject(ctx, bucket, key, expiry)
	if err != nil {
		return "", fmt.Errorf("presign put %s/%s: %w", bucket, key, err)
	}
	return u.String(), nil
}

// PresignedGet issues a presigned GET URL for a direct client download.
func (b *Backend) PresignedGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := b.client.PresignedGetObject(ctx, bucket, key, expiry, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("presign get %s/%s: %w", bucket, key, err)
	}
	return u.String(), nil
}

// Stat fetches the actual stored size of an object. Returns ErrObjectNotFound
// when the key has no object behind it yet.
func (b *Backend) Stat(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	info, err := b.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}
	return ObjectInfo{SizeBytes: info.Size, ETag: info.ETag}, nil
}

// Remove deletes the physical object.
func (b *Backend) Remove(ctx context.Context, bucket, key string) error {
	if err := b.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s/%s: %w", bucket, key, err)
	}
	return nil
}
