package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 is an in-memory bucket
type fakeS3 struct {
	mu            sync.Mutex
	objects       map[string][]byte
	bucketExists  bool
	createdBucket bool
	headBucketErr error
	headObjectErr error
	putErr        error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), bucketExists: true}
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headBucketErr != nil {
		return nil, f.headBucketErr
	}
	if !f.bucketExists {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.createdBucket = true
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headObjectErr != nil {
		return nil, f.headObjectErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(in.Key)] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestS3Store_WriteExistsOpen(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := newS3Store(fake, "bucket", "/runs/wiki/")

	if err := store.Write(ctx, "batch_0-9.jsonl", []byte("{}\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, ok := fake.objects["runs/wiki/batch_0-9.jsonl"]; !ok {
		t.Errorf("Object not stored under prefix: %v", fake.objects)
	}

	exists, err := store.Exists(ctx, "batch_0-9.jsonl")
	if err != nil || !exists {
		t.Errorf("Exists = %v, %v", exists, err)
	}
	exists, err = store.Exists(ctx, "batch_10-19.jsonl")
	if err != nil || exists {
		t.Errorf("Exists for missing object = %v, %v", exists, err)
	}

	rc, err := store.Open(ctx, "batch_0-9.jsonl")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, _ := io.ReadAll(rc)
	if string(data) != "{}\n" {
		t.Errorf("got %q", data)
	}
}

func TestS3Store_ListSkipsNested(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects["runs/wiki/batch_100-199.jsonl"] = nil
	fake.objects["runs/wiki/batch_0-99.jsonl"] = nil
	fake.objects["runs/wiki/archive/batch_0-99.jsonl"] = nil
	fake.objects["runs/other/batch_0-99.jsonl"] = nil

	entries, err := List(ctx, newS3Store(fake, "bucket", "runs/wiki"))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "batch_0-99.jsonl" || entries[1].Name != "batch_100-199.jsonl" {
		t.Errorf("Unexpected entries: %+v", entries)
	}
}

func TestS3Store_EnsureCreatesBucket(t *testing.T) {
	fake := newFakeS3()
	fake.bucketExists = false

	if err := newS3Store(fake, "bucket", "").Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if !fake.createdBucket {
		t.Error("Bucket was not created")
	}
}

func TestS3Store_EnsureKeepsAccessErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"access denied", errors.New("api error Forbidden: 403 Forbidden")},
		{"network", errors.New("dial tcp 127.0.0.1:9000: connect: connection refused")},
		{"message mentions 404", errors.New("proxy returned 404 page")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeS3()
			fake.headBucketErr = tt.err

			err := newS3Store(fake, "bucket", "").Ensure(context.Background())
			if !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
			if fake.createdBucket {
				t.Error("Bucket created after a non-404 failure")
			}
		})
	}
}

func TestS3Store_EnsureNoSuchBucket(t *testing.T) {
	fake := newFakeS3()
	fake.headBucketErr = &types.NoSuchBucket{}

	if err := newS3Store(fake, "bucket", "").Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if !fake.createdBucket {
		t.Error("Bucket was not created")
	}
}

func TestS3Store_ExistsReportsErrors(t *testing.T) {
	fake := newFakeS3()
	fake.headObjectErr = errors.New("StatusCode: 404, but from a proxy")

	exists, err := newS3Store(fake, "bucket", "").Exists(context.Background(), "batch_0-9.jsonl")
	if err == nil || exists {
		t.Errorf("Exists = %v, %v; want an error", exists, err)
	}
}

func TestS3Store_WriteError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")

	store := newS3Store(fake, "bucket", "")
	if err := store.Write(context.Background(), "batch_0-9.jsonl", []byte("x\n")); err == nil {
		t.Fatal("Expected write error")
	}
	if exists, _ := store.Exists(context.Background(), "batch_0-9.jsonl"); exists {
		t.Error("Failed write left an object behind")
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"localhost:9000":              "localhost:9000",
		"http://localhost:9000":       "localhost:9000",
		"https://minio.example.com/":  "minio.example.com",
		"https://r2.example.com/path": "r2.example.com",
	}
	for in, want := range tests {
		if got := normalizeEndpoint(in); got != want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}
