package storage

import (
	"context"
	"io"
)

// UploadResult описывает сохраненный объект.
type UploadResult struct {
	Key      string
	Location string // публичный URL, пустой если бакет не публичный
	ETag     string
}

// FileUploader пишет объекты в S3-совместимый бакет.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	GetPublicURL(key string) string
}
