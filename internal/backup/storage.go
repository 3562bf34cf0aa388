package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store writes a finished archive to its final home: a local directory, a
// mounted network path, or an S3-compatible bucket.
type Store interface {
	Put(ctx context.Context, localPath, objectName string) (storagePath string, err error)
}

// LocalStore copies archives into a directory on the same filesystem the
// orchestrator runs on.
type LocalStore struct {
	Dir string
}

func (s *LocalStore) Put(ctx context.Context, localPath, objectName string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("backup: creating local store dir: %w", err)
	}
	dest := filepath.Join(s.Dir, objectName)
	if dest != localPath {
		if err := copyFile(localPath, dest); err != nil {
			return "", err
		}
	}
	return dest, nil
}

// NetworkStore writes to a mounted network share (NFS/SMB), which from a
// Go process is just another path on disk.
type NetworkStore struct {
	MountPath string
}

func (s *NetworkStore) Put(ctx context.Context, localPath, objectName string) (string, error) {
	if err := os.MkdirAll(s.MountPath, 0o755); err != nil {
		return "", fmt.Errorf("backup: creating network store path: %w", err)
	}
	dest := filepath.Join(s.MountPath, objectName)
	if err := copyFile(localPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// CloudStore uploads to an S3-compatible bucket via minio-go.
type CloudStore struct {
	client *minio.Client
	bucket string
}

// NewCloudStore builds a CloudStore against an S3-compatible endpoint.
func NewCloudStore(endpoint, accessID, secret, bucket string, useSSL bool) (*CloudStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessID, secret, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("backup: creating cloud client: %w", err)
	}
	return &CloudStore{client: client, bucket: bucket}, nil
}

func (s *CloudStore) Put(ctx context.Context, localPath, objectName string) (string, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return "", fmt.Errorf("backup: checking bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return "", fmt.Errorf("backup: creating bucket: %w", err)
		}
	}

	info, err := s.client.FPutObject(ctx, s.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: "application/gzip",
	})
	if err != nil {
		return "", fmt.Errorf("backup: uploading object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, info.Key), nil
}

func removeFile(path string) error {
	return os.Remove(path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return out.Sync()
}
