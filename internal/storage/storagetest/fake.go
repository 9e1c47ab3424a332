// Package storagetest provides an in-memory S3 for tests.
package storagetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Object is a stored object.
type Object struct {
	Body        []byte
	ContentType string
	Metadata    map[string]string
	Tags        map[string]string
}

// FakeS3 implements storage.API over a map.
// Calls records every operation as "Op bucket/key" in order.
type FakeS3 struct {
	mu      sync.Mutex
	Objects map[string]*Object
	Calls   []string

	// Errs makes the named operation fail. PutObject failures can be delayed with FailPutAfter.
	Errs map[string]error
	// FailPutAfter lets this many PutObject calls succeed before Errs["PutObject"] applies.
	FailPutAfter int
	puts         int
}

// NewFakeS3 returns an empty fake.
func NewFakeS3() *FakeS3 {
	return &FakeS3{Objects: map[string]*Object{}, Errs: map[string]error{}}
}

func path(bucket, key *string) string {
	return aws.ToString(bucket) + "/" + aws.ToString(key)
}

// Add stores an object directly, bypassing the call log.
func (f *FakeS3) Add(bucket, key string, obj *Object) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Objects[bucket+"/"+key] = obj
}

// Get returns a stored object or nil.
func (f *FakeS3) Get(bucket, key string) *Object {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Objects[bucket+"/"+key]
}

// CallCount returns how many calls of op were made.
func (f *FakeS3) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if len(c) > len(op) && c[:len(op)+1] == op+" " {
			n++
		}
	}
	return n
}

// APIError builds an error shaped like the ones the SDK returns.
func APIError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message}
}

func (f *FakeS3) record(op string, bucket, key *string) (*Object, error) {
	f.Calls = append(f.Calls, fmt.Sprintf("%s %s", op, path(bucket, key)))
	if err := f.Errs[op]; err != nil {
		return nil, err
	}
	return f.Objects[path(bucket, key)], nil
}

func (f *FakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, err := f.record("HeadObject", in.Bucket, in.Key)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, APIError("NotFound", "Not Found")
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.Body))),
		ContentType:   aws.String(obj.ContentType),
		Metadata:      obj.Metadata,
	}, nil
}

func (f *FakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, err := f.record("GetObject", in.Bucket, in.Key)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, APIError("NoSuchKey", "The specified key does not exist.")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.Body)),
		ContentLength: aws.Int64(int64(len(obj.Body))),
		Metadata:      obj.Metadata,
	}, nil
}

func (f *FakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "PutObject "+path(in.Bucket, in.Key))
	f.puts++
	if err := f.Errs["PutObject"]; err != nil && f.puts > f.FailPutAfter {
		return nil, err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.Objects[path(in.Bucket, in.Key)] = &Object{
		Body:        body,
		ContentType: aws.ToString(in.ContentType),
		Metadata:    in.Metadata,
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *FakeS3) GetObjectTagging(_ context.Context, in *s3.GetObjectTaggingInput, _ ...func(*s3.Options)) (*s3.GetObjectTaggingOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, err := f.record("GetObjectTagging", in.Bucket, in.Key)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, APIError("NoSuchKey", "The specified key does not exist.")
	}
	out := &s3.GetObjectTaggingOutput{}
	for k, v := range obj.Tags {
		out.TagSet = append(out.TagSet, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return out, nil
}

func (f *FakeS3) PutObjectTagging(_ context.Context, in *s3.PutObjectTaggingInput, _ ...func(*s3.Options)) (*s3.PutObjectTaggingOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, err := f.record("PutObjectTagging", in.Bucket, in.Key)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, APIError("NoSuchKey", "The specified key does not exist.")
	}
	obj.Tags = map[string]string{}
	for _, tag := range in.Tagging.TagSet {
		obj.Tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return &s3.PutObjectTaggingOutput{}, nil
}
