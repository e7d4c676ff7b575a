package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/jo-hoe/imagegallery/internal/gallery"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"useSSL"`
	// PublicURL is the base hosted URLs are built from; defaults to the endpoint.
	PublicURL string `yaml:"publicURL"`
}

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioUploader stores images in an S3 compatible bucket and hands out their public URLs.
type MinioUploader struct {
	client  objectPutter
	bucket  string
	baseURL string
}

func NewMinioUploader(config Config) (*MinioUploader, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}
	return newMinioUploader(client, config), nil
}

func newMinioUploader(client objectPutter, config Config) *MinioUploader {
	baseURL := config.PublicURL
	if baseURL == "" {
		scheme := "http"
		if config.UseSSL {
			scheme = "https"
		}
		baseURL = scheme + "://" + config.Endpoint
	}
	return &MinioUploader{
		client:  client,
		bucket:  config.Bucket,
		baseURL: baseURL,
	}
}

func (u *MinioUploader) UploadImage(ctx context.Context, file gallery.FileInfo, data []byte) (string, error) {
	objectName := uuid.NewString() + extension(file.ContentType)

	_, err := u.client.PutObject(ctx, u.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: file.ContentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", file.Name, err)
	}

	hostedURL, err := url.JoinPath(u.baseURL, u.bucket, objectName)
	if err != nil {
		return "", fmt.Errorf("failed to build hosted url: %w", err)
	}
	slog.Info("image uploaded", "filename", file.Name, "object", objectName, "bytes", len(data))
	return hostedURL, nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
