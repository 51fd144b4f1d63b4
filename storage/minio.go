package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig describes an S3 compatible bucket
type MinioConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Minio stores blobs as objects in a single bucket. Directories do not exist on
// their own: a directory is every object sharing its prefix.
type Minio struct {
	cl     *minio.Client
	bucket string
}

// NewMinio connects to the bucket described by cfg
func NewMinio(cfg MinioConfig) (*Minio, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return &Minio{cl: cl, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket when it is missing
func (m *Minio) EnsureBucket(ctx context.Context, region string) error {
	ok, err := m.cl.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return m.cl.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: region})
}

// MkdirAll is a no-op, prefixes come into being with their first object
func (m *Minio) MkdirAll(context.Context, string) error {
	return nil
}

// Exists reports whether an object, or any object below the prefix, lives at p
func (m *Minio) Exists(ctx context.Context, p string) (bool, error) {
	_, err := m.cl.StatObject(ctx, m.bucket, p, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if !isNoSuchKey(err) {
		return false, err
	}
	keys, err := m.List(ctx, p)
	if err != nil {
		return false, err
	}
	return len(keys) > 0, nil
}

// Rename copies then removes. A missing object at oldPath is treated as a prefix
// and every object below it is moved.
func (m *Minio) Rename(ctx context.Context, oldPath, newPath string) error {
	_, err := m.cl.StatObject(ctx, m.bucket, oldPath, minio.StatObjectOptions{})
	if err == nil {
		return m.move(ctx, oldPath, newPath)
	}
	if !isNoSuchKey(err) {
		return err
	}
	keys, err := m.List(ctx, oldPath)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: %s", ErrNotExist, oldPath)
	}
	for _, k := range keys {
		if err := m.move(ctx, k, newPath+strings.TrimPrefix(k, oldPath)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Minio) move(ctx context.Context, src, dst string) error {
	_, err := m.cl.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: m.bucket, Object: dst},
		minio.CopySrcOptions{Bucket: m.bucket, Object: src},
	)
	if err != nil {
		return err
	}
	return m.cl.RemoveObject(ctx, m.bucket, src, minio.RemoveObjectOptions{})
}

// WriteFile uploads r as the object p
func (m *Minio) WriteFile(ctx context.Context, p string, r io.Reader) error {
	_, err := m.cl.PutObject(ctx, m.bucket, p, r, -1, minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	return err
}

// Open streams the object at p
func (m *Minio) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if _, err := m.cl.StatObject(ctx, m.bucket, p, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, p)
		}
		return nil, err
	}
	return m.cl.GetObject(ctx, m.bucket, p, minio.GetObjectOptions{})
}

// RemoveAll deletes every object below p
func (m *Minio) RemoveAll(ctx context.Context, p string) error {
	keys, err := m.List(ctx, p)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := m.cl.RemoveObject(ctx, m.bucket, k, minio.RemoveObjectOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// List returns the keys of every object below prefix
func (m *Minio) List(ctx context.Context, prefix string) ([]string, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var out []string
	for obj := range m.cl.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		out = append(out, obj.Key)
	}
	return out, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
