package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"docvault/internal/config"
)

func TestNewMinIO_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MinIOConfig
		want string
	}{
		{"no endpoint", config.MinIOConfig{AccessKey: "a", SecretKey: "s", Bucket: "b"}, "minio endpoint is required"},
		{"no secret", config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", Bucket: "b"}, "minio credentials are required"},
		{"no bucket", config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, "minio bucket is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewMinIO(context.Background(), tt.cfg)
			assert.EqualError(t, err, tt.want)
			assert.Nil(t, s)
		})
	}
}

func TestMapMinioError(t *testing.T) {
	missing := minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}
	assert.ErrorIs(t, mapMinioError(missing), ErrObjectNotFound)

	denied := minio.ErrorResponse{Code: "AccessDenied"}
	assert.NotErrorIs(t, mapMinioError(denied), ErrObjectNotFound)

	plain := errors.New("dial tcp: connection refused")
	assert.Same(t, plain, mapMinioError(plain))
}
