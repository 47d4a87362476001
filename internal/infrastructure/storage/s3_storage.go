// Package storage implementa el almacenamiento de los PDF emitidos.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/jhoicas/rentals-api/internal/application/billing"
	"github.com/jhoicas/rentals-api/pkg/config"
)

var _ billing.ObjectStorage = (*S3ObjectStorage)(nil)

// putObjectAPI subconjunto de *s3.Client usado al subir.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ObjectStorage sube los PDF a un bucket S3 (o compatible: MinIO, R2).
type S3ObjectStorage struct {
	client    putObjectAPI
	bucket    string
	publicURL string
	log       zerolog.Logger
}

// NewS3ObjectStorage crea el cliente desde la configuración. Sin credenciales estáticas usa la cadena por defecto de AWS.
func NewS3ObjectStorage(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (*S3ObjectStorage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket requerido")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: config aws: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3ObjectStorage(client, cfg.Bucket, cfg.PublicURL, log), nil
}

func newS3ObjectStorage(client putObjectAPI, bucket, publicURL string, log zerolog.Logger) *S3ObjectStorage {
	return &S3ObjectStorage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}
}

// Upload sube el objeto y devuelve su ubicación: URL pública si está configurada, si no s3://bucket/key.
func (s *S3ObjectStorage) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	s.log.Debug().Str("bucket", s.bucket).Str("key", key).Int("bytes", len(body)).Msg("objeto subido")
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
