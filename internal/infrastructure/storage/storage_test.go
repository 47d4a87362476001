package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Upload(t *testing.T) {
	fake := &fakeS3{}
	s := newS3ObjectStorage(fake, "docs", "", zerolog.Nop())

	loc, err := s.Upload(context.Background(), "invoices/G1/2024/2024-001.pdf", []byte("%PDF-1.3"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "s3://docs/invoices/G1/2024/2024-001.pdf", loc)
	assert.Equal(t, "docs", aws.ToString(fake.in.Bucket))
	assert.Equal(t, "application/pdf", aws.ToString(fake.in.ContentType))
	assert.EqualValues(t, 8, aws.ToInt64(fake.in.ContentLength))
	assert.Equal(t, "%PDF-1.3", string(fake.body))
}

func TestS3Upload_URLPublica(t *testing.T) {
	s := newS3ObjectStorage(&fakeS3{}, "docs", "https://cdn.example.com/", zerolog.Nop())
	loc, err := s.Upload(context.Background(), "invoices/a.pdf", []byte("x"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/invoices/a.pdf", loc)
}

func TestS3Upload_Error(t *testing.T) {
	s := newS3ObjectStorage(&fakeS3{err: errors.New("access denied")}, "docs", "", zerolog.Nop())
	_, err := s.Upload(context.Background(), "k", []byte("x"), "application/pdf")
	assert.ErrorContains(t, err, "access denied")
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocalStorage(dir)
	require.NoError(t, err)

	loc, err := l.Upload(context.Background(), "invoices/G1/2024/2024-001.pdf", []byte("pdf"), "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc, "file://"))

	got, err := os.ReadFile(filepath.Join(dir, "invoices", "G1", "2024", "2024-001.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(got))

	_, err = l.Upload(context.Background(), "../fuera.pdf", []byte("x"), "application/pdf")
	assert.Error(t, err)
}
