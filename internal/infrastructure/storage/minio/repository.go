package minio

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

const sdfContentType = "chemical/x-mdl-sdfile"

// LibraryInfo describes one stored compound library.
type LibraryInfo struct {
	Bucket       string    `json:"bucket"`
	Object       string    `json:"object"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`
}

// LibraryRepository stores SDF libraries as objects.  An empty bucket
// argument means the client's default bucket.
type LibraryRepository interface {
	// Open streams the object.  The caller closes the reader.
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	Stat(ctx context.Context, bucket, object string) (*LibraryInfo, error)
	Put(ctx context.Context, bucket, object string, r io.Reader, size int64) (*LibraryInfo, error)
	// List returns the .sdf/.sd objects under prefix.
	List(ctx context.Context, bucket, prefix string) ([]LibraryInfo, error)
}

type libraryRepository struct {
	client *Client
	logger logging.Logger
}

// NewLibraryRepository returns the object-store backed LibraryRepository.
func NewLibraryRepository(client *Client, log logging.Logger) LibraryRepository {
	return &libraryRepository{client: client, logger: log.Named("library_repo")}
}

func (r *libraryRepository) bucket(b string) string {
	if b == "" {
		return r.client.DefaultBucket()
	}
	return b
}

func (r *libraryRepository) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	bucket = r.bucket(bucket)
	// GetObject is lazy: a missing key only surfaces on first Read, so stat first.
	if _, err := r.Stat(ctx, bucket, object); err != nil {
		return nil, err
	}
	api, err := r.client.objectAPI()
	if err != nil {
		return nil, err
	}
	rc, err := api.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapObjectError(err, bucket, object, "failed to open library")
	}
	r.logger.Debug("library opened", logging.String("bucket", bucket), logging.String("object", object))
	return rc, nil
}

func (r *libraryRepository) Stat(ctx context.Context, bucket, object string) (*LibraryInfo, error) {
	if object == "" {
		return nil, errors.InvalidParam("object name is required")
	}
	bucket = r.bucket(bucket)
	api, err := r.client.objectAPI()
	if err != nil {
		return nil, err
	}
	info, err := api.StatObject(ctx, bucket, object, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapObjectError(err, bucket, object, "failed to stat library")
	}
	return toLibraryInfo(bucket, info), nil
}

func (r *libraryRepository) Put(ctx context.Context, bucket, object string, rd io.Reader, size int64) (*LibraryInfo, error) {
	if object == "" {
		return nil, errors.InvalidParam("object name is required")
	}
	bucket = r.bucket(bucket)
	api, err := r.client.objectAPI()
	if err != nil {
		return nil, err
	}
	up, err := api.PutObject(ctx, bucket, object, rd, size, minio.PutObjectOptions{ContentType: sdfContentType})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to upload library").WithDetail(bucket + "/" + object)
	}
	r.logger.Info("library uploaded",
		logging.String("bucket", bucket),
		logging.String("object", object),
		logging.Int64("size", up.Size))
	return &LibraryInfo{Bucket: bucket, Object: object, Size: up.Size, ETag: up.ETag, LastModified: up.LastModified}, nil
}

func (r *libraryRepository) List(ctx context.Context, bucket, prefix string) ([]LibraryInfo, error) {
	bucket = r.bucket(bucket)
	api, err := r.client.objectAPI()
	if err != nil {
		return nil, err
	}
	var out []LibraryInfo
	for obj := range api.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, mapObjectError(obj.Err, bucket, prefix, "failed to list libraries")
		}
		if !IsLibraryObject(obj.Key) {
			continue
		}
		out = append(out, *toLibraryInfo(bucket, obj))
	}
	return out, nil
}

// IsLibraryObject reports whether key has an SDF extension.
func IsLibraryObject(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".sdf", ".sd":
		return true
	}
	return false
}

func toLibraryInfo(bucket string, info minio.ObjectInfo) *LibraryInfo {
	return &LibraryInfo{
		Bucket:       bucket,
		Object:       info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}
}

func mapObjectError(err error, bucket, object, msg string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
		return ErrObjectNotFound.WithDetail(bucket + "/" + object)
	case "NoSuchBucket":
		return ErrBucketNotFound.WithDetail(bucket)
	}
	return errors.Wrap(err, errors.ErrCodeStorage, msg).WithDetail(bucket + "/" + object)
}

//Personal.AI order the ending
