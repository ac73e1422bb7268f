package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig descreve o endpoint S3-compatível usado para fotos.
type MinioConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UseSSL       bool
	PublicDomain string
}

// MinioUploader implementa Upload sobre um bucket S3-compatível.
type MinioUploader struct {
	client *minio.Client
	cfg    MinioConfig
}

// NewMinioUploader cria o uploader de fotos.
func NewMinioUploader(cfg MinioConfig) (*MinioUploader, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("storage: endpoint obrigatório")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("storage: bucket obrigatório")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	return &MinioUploader{client: client, cfg: cfg}, nil
}

// Upload envia o arquivo para o bucket configurado e devolve a URL pública.
func (u *MinioUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	key := strings.TrimLeft(strings.TrimSpace(input.Key), "/")
	if key == "" {
		return nil, fmt.Errorf("storage: chave do objeto obrigatória")
	}
	if len(input.Body) == 0 {
		return nil, fmt.Errorf("storage: corpo vazio")
	}

	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := u.client.PutObject(ctx, u.cfg.Bucket, key, bytes.NewReader(input.Body), int64(len(input.Body)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: input.CacheControl,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: upload: %w", err)
	}

	return &UploadResult{URL: u.publicURL(key), ETag: info.ETag}, nil
}

func (u *MinioUploader) publicURL(key string) string {
	if domain := strings.TrimRight(strings.TrimSpace(u.cfg.PublicDomain), "/"); domain != "" {
		return domain + "/" + key
	}

	scheme := "http"
	if u.cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, u.cfg.Endpoint, u.cfg.Bucket, key)
}
