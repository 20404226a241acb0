package snapshot

import (
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveOptions configures access to an S3-compatible snapshot archive.
type ArchiveOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Prefix is prepended to all object keys (e.g. "snapshots/").
	Prefix string
}

// Archive uploads and downloads snapshot files to an S3-compatible object
// store, MinIO included.
type Archive struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewArchive creates an archive client. It does not touch the network; a
// bad endpoint surfaces on the first Upload or Download.
func NewArchive(opts ArchiveOptions) (*Archive, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("archive endpoint must not be empty")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("archive bucket must not be empty")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create archive client: %w", err)
	}

	return &Archive{
		client: client,
		bucket: opts.Bucket,
		prefix: opts.Prefix,
	}, nil
}

func (a *Archive) key(name string) string {
	return path.Join(a.prefix, name)
}

// Upload stores the file at filePath under name in the archive bucket.
func (a *Archive) Upload(ctx context.Context, name, filePath string) error {
	_, err := a.client.FPutObject(ctx, a.bucket, a.key(name), filePath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("upload snapshot %q: %w", name, err)
	}
	return nil
}

// Download fetches the archived snapshot name into filePath.
func (a *Archive) Download(ctx context.Context, name, filePath string) error {
	if err := a.client.FGetObject(ctx, a.bucket, a.key(name), filePath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("download snapshot %q: %w", name, err)
	}
	return nil
}

// List returns the names of archived snapshots under the configured prefix.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	var names []string
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    a.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list archived snapshots: %w", obj.Err)
		}
		name := path.Base(obj.Key)
		if name != "" && name != "." {
			names = append(names, name)
		}
	}
	return names, nil
}
