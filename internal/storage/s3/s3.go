// Package s3 stores each key as one object in an S3-compatible bucket
// (AWS, Cloudflare R2, MinIO).
//
// Update is optimistic: it reads the object's ETag and writes back with
// If-Match (or If-None-Match: * when the object does not exist yet). A
// concurrent writer makes the PUT fail with 412 and the cycle is retried.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/5w1tchy/book-entry/internal/storage/kv"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// API is the subset of *s3.Client the store uses.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Store is a kv.Store over one bucket.
type Store struct {
	api     API
	bucket  string
	prefix  string
	retries int
}

// New returns a store writing objects named prefix+key into bucket.
func New(api API, bucket, prefix string) *Store {
	return &Store{api: api, bucket: bucket, prefix: prefix, retries: kv.DefaultRetries}
}

func (s *Store) objectKey(key string) string { return s.prefix + key }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, _, err := s.get(ctx, key)
	return data, err
}

// get returns the object body and its ETag.
func (s *Store) get(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if notFound(err) {
			return nil, "", kv.ErrNotFound
		}
		return nil, "", fmt.Errorf("s3: get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("s3: read object %s: %w", key, err)
	}
	return data, aws.ToString(out.ETag), nil
}

func (s *Store) put(ctx context.Context, key string, value []byte, ifMatch, ifNoneMatch *string) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
		ContentType:   aws.String("application/json"),
		IfMatch:       ifMatch,
		IfNoneMatch:   ifNoneMatch,
	})
	return err
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.put(ctx, key, value, nil, nil); err != nil {
		return fmt.Errorf("s3: put object %s: %w", key, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, key string, fn kv.UpdateFunc) error {
	for attempt := 0; attempt < s.retries; attempt++ {
		old, etag, err := s.get(ctx, key)
		found := true
		if errors.Is(err, kv.ErrNotFound) {
			found, err = false, nil
		}
		if err != nil {
			return err
		}

		next, err := fn(old, found)
		if err != nil {
			return err
		}

		var ifMatch, ifNoneMatch *string
		if found {
			ifMatch = aws.String(etag)
		} else {
			ifNoneMatch = aws.String("*")
		}

		err = s.put(ctx, key, next, ifMatch, ifNoneMatch)
		if err == nil {
			return nil
		}
		if conflict(err) {
			log.Printf("[s3] update %s: precondition failed, retrying (%d/%d)", key, attempt+1, s.retries)
			continue
		}
		return fmt.Errorf("s3: put object %s: %w", key, err)
	}
	return fmt.Errorf("s3: update %s: %w", key, kv.ErrConflict)
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("s3: head bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

func notFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *smithyhttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

// conflict reports a lost conditional write.
func conflict(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	var re *smithyhttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusPreconditionFailed
}
