package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 is an in-memory S3API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]map[string]string
	failPut error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, meta: map[string]map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = b
	f.meta[aws.ToString(in.Key)] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if len(k) >= len(aws.ToString(in.Prefix)) && k[:len(aws.ToString(in.Prefix))] == aws.ToString(in.Prefix) {
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

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := NewS3Store(fake, "bucket", "meld/")

	if err := s.Save(ctx, &Record{ID: "c1", Name: "form", Data: map[string]any{"n": 1.0}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := fake.objects["meld/c1.json"]; !ok {
		t.Fatalf("objects = %v, want key meld/c1.json", fake.objects)
	}
	if fake.meta["meld/c1.json"]["component-name"] != "form" {
		t.Errorf("metadata = %v", fake.meta["meld/c1.json"])
	}

	got, err := s.Load(ctx, "c1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "form" || got.Data["n"] != 1.0 {
		t.Errorf("Load = %+v", got)
	}

	if missing, err := s.Load(ctx, "nope"); missing != nil || err != nil {
		t.Errorf("Load(missing) = %v, %v; want nil, nil", missing, err)
	}

	s.Save(ctx, &Record{ID: "c2"})
	fake.objects["meld/readme.txt"] = []byte("x")
	fake.objects["other/c9.json"] = []byte("{}")
	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"c1", "c2"}) {
		t.Errorf("List = %v", ids)
	}

	if err := s.Delete(ctx, "c2"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Load(ctx, "c2"); got != nil {
		t.Error("record still present after Delete")
	}
}

func TestS3StoreErrors(t *testing.T) {
	fake := newFakeS3()
	fake.failPut = errors.New("access denied")
	s := NewS3Store(fake, "bucket", "")

	err := s.Save(context.Background(), &Record{ID: "c1"})
	if err == nil || !errors.Is(err, fake.failPut) {
		t.Errorf("Save = %v, want wrapped put error", err)
	}
	if err := s.Save(context.Background(), nil); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Save(nil) = %v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(&types.NoSuchKey{}) {
		t.Error("NoSuchKey should be not found")
	}
	if !isNotFound(&types.NotFound{}) {
		t.Error("NotFound should be not found")
	}
	if isNotFound(errors.New("boom")) {
		t.Error("plain error should not be not found")
	}
}

func TestNewS3Client(t *testing.T) {
	c := NewS3Client("us-east-1", "http://localhost:9000")
	if c == nil {
		t.Fatal("nil client")
	}
	opts := c.Options()
	if opts.Region != "us-east-1" || !opts.UsePathStyle || aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("options = region %q pathStyle %v endpoint %q", opts.Region, opts.UsePathStyle, aws.ToString(opts.BaseEndpoint))
	}
}
