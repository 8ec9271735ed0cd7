package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/docudir-api/internal/config"
	"github.com/docudir-api/internal/models"
)

// MinIOStore keeps blobs in a single S3-compatible bucket under the keys
// {site}/{name} and {site}/.trash/{name}.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(ctx context.Context, cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	s := &MinIOStore{client: client, bucket: cfg.BucketName}
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket exists: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}

	return nil
}

func liveKey(siteID, name string) string {
	return path.Join(siteID, name)
}

func trashKey(siteID, name string) string {
	return path.Join(siteID, models.TrashDir, name)
}

func (s *MinIOStore) Write(ctx context.Context, siteID, name string, r io.Reader, size int64, contentType string) error {
	if err := validNames(siteID, name); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, s.bucket, liveKey(siteID, name), r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	return nil
}

func (s *MinIOStore) Open(ctx context.Context, siteID, name string) (Object, *Info, error) {
	if err := validNames(siteID, name); err != nil {
		return nil, nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, liveKey(siteID, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("get object: %w", err)
	}

	// GetObject is lazy; Stat surfaces a missing key.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("stat object: %w", err)
	}

	return obj, &Info{
		Size:        st.Size,
		ModTime:     st.LastModified,
		ContentType: st.ContentType,
	}, nil
}

func (s *MinIOStore) Rename(ctx context.Context, siteID, oldName, newName string) error {
	if err := validNames(siteID, oldName, newName); err != nil {
		return err
	}
	return s.moveObject(ctx, liveKey(siteID, oldName), liveKey(siteID, newName))
}

func (s *MinIOStore) MoveToTrash(ctx context.Context, siteID, name string) error {
	if err := validNames(siteID, name); err != nil {
		return err
	}
	return s.moveObject(ctx, liveKey(siteID, name), trashKey(siteID, name))
}

func (s *MinIOStore) Exists(ctx context.Context, siteID, name string) (bool, error) {
	if err := validNames(siteID, name); err != nil {
		return false, err
	}
	return s.statExists(ctx, liveKey(siteID, name))
}

func (s *MinIOStore) InTrash(ctx context.Context, siteID, name string) (bool, error) {
	if err := validNames(siteID, name); err != nil {
		return false, err
	}
	return s.statExists(ctx, trashKey(siteID, name))
}

func (s *MinIOStore) List(ctx context.Context, siteID string) ([]string, error) {
	if err := validNames(siteID); err != nil {
		return nil, err
	}

	opts := minio.ListObjectsOptions{
		Prefix:    siteID + "/",
		Recursive: false,
	}

	var names []string
	for object := range s.client.ListObjects(ctx, s.bucket, opts) {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects: %w", object.Err)
		}
		// Common prefixes such as .trash/ come back with a trailing slash.
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		names = append(names, path.Base(object.Key))
	}

	return names, nil
}

// moveObject copies then deletes; S3 has no rename.
func (s *MinIOStore) moveObject(ctx context.Context, srcKey, dstKey string) error {
	src := minio.CopySrcOptions{
		Bucket: s.bucket,
		Object: srcKey,
	}

	dst := minio.CopyDestOptions{
		Bucket: s.bucket,
		Object: dstKey,
	}

	if _, err := s.client.CopyObject(ctx, dst, src); err != nil {
		if isNoSuchKey(err) {
			return ErrNotFound
		}
		return fmt.Errorf("copy object: %w", err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, srcKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	return nil
}

func (s *MinIOStore) statExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
