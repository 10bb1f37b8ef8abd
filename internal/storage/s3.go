package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

var sseAlgorithm = "AES256"

// S3 is a Store backed by one bucket. Keys are placed under prefix.
type S3 struct {
	client s3iface.S3API
	bucket string
	prefix string
}

func NewS3(sess *session.Session, bucket, prefix string) *S3 {
	return newS3WithClient(s3.New(sess), bucket, prefix)
}

func newS3WithClient(client s3iface.S3API, bucket, prefix string) *S3 {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3) objectKey(key string) string {
	return s.prefix + strings.TrimPrefix(key, "/")
}

func (s *S3) Put(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) (*ObjectInfo, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(s.objectKey(key)),
		Body:                 r,
		ContentLength:        aws.Int64(size),
		ContentType:          aws.String(contentType),
		ServerSideEncryption: aws.String(sseAlgorithm),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", key, err)
	}
	return &ObjectInfo{Key: key, Size: size, ContentType: contentType}, nil
}

func (s *S3) Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	obj, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil, ErrNoObject
		}
		return nil, nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	info := &ObjectInfo{
		Key:         key,
		Size:        aws.Int64Value(obj.ContentLength),
		ContentType: aws.StringValue(obj.ContentType),
	}
	return obj.Body, info, nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (s *S3) SignedURL(_ context.Context, key string, expires time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	u, err := req.Presign(expires)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u, nil
}

func isStatus(err error, status int) bool {
	var rf awserr.RequestFailure
	if errors.As(err, &rf) {
		return rf.StatusCode() == status
	}
	return false
}
