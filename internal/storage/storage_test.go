package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("http://files.local")

	info, err := s.Put(ctx, "medical-reports/p1/a.pdf", bytes.NewReader([]byte("%PDF")), 4, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)

	_, err = s.Put(ctx, "medical-reports/p1/a.pdf", bytes.NewReader([]byte("%PDF")), 4, "application/pdf")
	assert.ErrorIs(t, err, ErrObjectExists)

	rc, got, err := s.Get(ctx, "medical-reports/p1/a.pdf")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "%PDF", string(body))
	assert.Equal(t, "application/pdf", got.ContentType)

	u, err := s.SignedURL(ctx, "medical-reports/p1/a.pdf", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://files.local/"))
	assert.Contains(t, u, "expires=")

	require.NoError(t, s.Delete(ctx, "medical-reports/p1/a.pdf"))
	_, _, err = s.Get(ctx, "medical-reports/p1/a.pdf")
	assert.ErrorIs(t, err, ErrNoObject)
	_, err = s.SignedURL(ctx, "medical-reports/p1/a.pdf", time.Minute)
	assert.ErrorIs(t, err, ErrNoObject)
	assert.Zero(t, s.Len())
}

func TestMemoryStore_SizeMismatch(t *testing.T) {
	s := NewMemoryStore("")
	_, err := s.Put(context.Background(), "k", bytes.NewReader([]byte("abc")), 10, "")
	assert.Error(t, err)
}

type fakeS3 struct {
	s3iface.S3API
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	getErr  error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader("data")),
		ContentLength: aws.Int64(4),
		ContentType:   aws.String("image/png"),
	}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_PutUsesPrefixAndSSE(t *testing.T) {
	fake := &fakeS3{}
	s := newS3WithClient(fake, "clinic-reports", "/prod/")

	_, err := s.Put(context.Background(), "medical-reports/p1/x.png", bytes.NewReader([]byte("data")), 4, "")
	require.NoError(t, err)
	require.Len(t, fake.puts, 1)

	in := fake.puts[0]
	assert.Equal(t, "clinic-reports", aws.StringValue(in.Bucket))
	assert.Equal(t, "prod/medical-reports/p1/x.png", aws.StringValue(in.Key))
	assert.Equal(t, "AES256", aws.StringValue(in.ServerSideEncryption))
	assert.Equal(t, "application/octet-stream", aws.StringValue(in.ContentType))

	require.NoError(t, s.Delete(context.Background(), "medical-reports/p1/x.png"))
	assert.Equal(t, "prod/medical-reports/p1/x.png", aws.StringValue(fake.deletes[0].Key))
}

func TestS3_GetNotFound(t *testing.T) {
	fake := &fakeS3{getErr: awserr.NewRequestFailure(awserr.New("NoSuchKey", "missing", nil), http.StatusNotFound, "req-1")}
	s := newS3WithClient(fake, "b", "")

	_, _, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNoObject)

	fake.getErr = nil
	rc, info, err := s.Get(context.Background(), "x")
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/png", info.ContentType)
}

func TestS3_SignedURL(t *testing.T) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String("us-east-1"),
		Credentials: credentials.NewStaticCredentials("AKIDEXAMPLE", "secret", ""),
	})
	require.NoError(t, err)

	s := NewS3(sess, "clinic-reports", "reports")
	u, err := s.SignedURL(context.Background(), "medical-reports/p1/x.pdf", 5*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "clinic-reports")
	assert.Contains(t, u, "reports/medical-reports/p1/x.pdf")
	assert.Contains(t, u, "X-Amz-Expires=300")
}
