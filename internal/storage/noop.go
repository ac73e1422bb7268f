package storage

import (
	"context"
	"errors"
)

// ErrNoBackend indica que nenhum backend de armazenamento foi configurado.
var ErrNoBackend = errors.New("storage: nenhum backend configurado")

// NoopUploader é o fallback usado quando o endpoint de armazenamento não
// está configurado: todo upload falha com ErrNoBackend.
type NoopUploader struct{}

func (NoopUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	return nil, ErrNoBackend
}
