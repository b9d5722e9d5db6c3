package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient delegates to the minio-go Core client, the vetted SDK
// path for stores where hand-signed HTTP is not wanted.
type MinioClient struct {
	core *minio.Core
}

// NewMinioClient connects to an S3-compatible store at endpoint
// ("host:port", no scheme) using the low-level Core API.
func NewMinioClient(endpoint, accessKey, secretKey, region string, secure bool) (*MinioClient, error) {
	core, err := minio.NewCore(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       secure,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio core client: %w", err)
	}
	return &MinioClient{core: core}, nil
}

func (c *MinioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := c.core.Client.BucketExists(ctx, bucket)
	if err != nil {
		return false, fmt.Errorf("%w: bucket exists %s: %v", ErrStore, bucket, err)
	}
	return exists, nil
}

func (c *MinioClient) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := c.core.Client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: make bucket %s: %v", ErrStore, bucket, err)
		}
	}
	return nil
}

func (c *MinioClient) CreateMultipartUpload(ctx context.Context, bucket, object string) (string, error) {
	uploadID, err := c.core.NewMultipartUpload(ctx, bucket, object, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: initiate multipart for %s/%s: %v", ErrStore, bucket, object, err)
	}
	return uploadID, nil
}

func (c *MinioClient) ListParts(ctx context.Context, bucket, object, uploadID string, maxParts int) ([]Part, error) {
	result, err := c.core.ListObjectParts(ctx, bucket, object, uploadID, 0, maxParts)
	if err != nil {
		return nil, fmt.Errorf("%w: list parts for upload %s: %v", ErrStore, uploadID, err)
	}

	parts := make([]Part, 0, len(result.ObjectParts))
	for _, p := range result.ObjectParts {
		parts = append(parts, Part{Number: p.PartNumber, ETag: p.ETag, Size: p.Size})
	}
	return parts, nil
}

func (c *MinioClient) CompleteMultipartUpload(ctx context.Context, bucket, object, uploadID string, parts []Part) error {
	completeParts := make([]minio.CompletePart, 0, len(parts))
	for _, p := range parts {
		completeParts = append(completeParts, minio.CompletePart{PartNumber: p.Number, ETag: p.ETag})
	}

	if _, err := c.core.CompleteMultipartUpload(ctx, bucket, object, uploadID, completeParts, minio.PutObjectOptions{}); err != nil {
		return fmt.Errorf("%w: complete multipart for upload %s: %v", ErrStore, uploadID, err)
	}
	return nil
}

func (c *MinioClient) PresignedUploadPartURL(ctx context.Context, bucket, object, uploadID string, partNumber int, expires time.Duration) (string, error) {
	params := url.Values{
		"uploadId":   {uploadID},
		"partNumber": {fmt.Sprintf("%d", partNumber)},
	}
	u, err := c.core.Client.Presign(ctx, http.MethodPut, bucket, object, expires, params)
	if err != nil {
		return "", fmt.Errorf("%w: presign part %d of upload %s: %v", ErrStore, partNumber, uploadID, err)
	}
	return u.String(), nil
}

func (c *MinioClient) PresignedGetURL(ctx context.Context, bucket, object string, expires time.Duration, params url.Values) (string, error) {
	u, err := c.core.Client.Presign(ctx, http.MethodGet, bucket, object, expires, params)
	if err != nil {
		return "", fmt.Errorf("%w: presign get for %s/%s: %v", ErrStore, bucket, object, err)
	}
	return u.String(), nil
}

func (c *MinioClient) PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, contentType string) error {
	_, err := c.core.Client.PutObject(ctx, bucket, object, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("%w: put %s/%s: %v", ErrStore, bucket, object, err)
	}
	return nil
}

func (c *MinioClient) GetObject(ctx context.Context, bucket, object string) ([]byte, error) {
	reader, _, _, err := c.core.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s/%s: %v", ErrStore, bucket, object, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s/%s: %v", ErrStore, bucket, object, err)
	}
	return data, nil
}

func (c *MinioClient) DeleteObject(ctx context.Context, bucket, object string) error {
	if err := c.core.Client.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: delete %s/%s: %v", ErrStore, bucket, object, err)
	}
	return nil
}

// compile-time interface checks
var (
	_ Client = (*S3Client)(nil)
	_ Client = (*MinioClient)(nil)
)
