package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// fakeS3 records the last request of each kind and serves canned responses.
type fakeS3 struct {
	lastPutKey   string
	lastGetKey   string
	lastGetRange string
	lastHeadKey  string
	lastDelKey   string

	getErr  error
	headErr error

	data []byte
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.lastPutKey = aws.ToString(in.Key)
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.data = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastGetKey = aws.ToString(in.Key)
	f.lastGetRange = aws.ToString(in.Range)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.data))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.lastHeadKey = aws.ToString(in.Key)
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(f.data)))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.lastDelKey = aws.ToString(in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

// apiError satisfies smithy.APIError with a fixed code.
type apiError struct{ code string }

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func newS3ForTest(t *testing.T, fake *fakeS3, prefix string) *S3 {
	t.Helper()
	s, err := NewS3(fake, S3Config{Bucket: "test-bucket", Prefix: prefix})
	if err != nil {
		t.Fatalf("NewS3 failed: %v", err)
	}
	return s
}

func TestS3_KeyPrefixing(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{}
	s := newS3ForTest(t, fake, "library")

	if err := s.Put(ctx, "book.pdf", strings.NewReader("data")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if fake.lastPutKey != "library/book.pdf" {
		t.Errorf("put key = %q, want %q", fake.lastPutKey, "library/book.pdf")
	}
}

func TestS3_InvalidNames(t *testing.T) {
	ctx := context.Background()
	s := newS3ForTest(t, &fakeS3{}, "")

	for _, name := range []string{"", "../escape.pdf", "/abs.pdf", "a/../b.pdf"} {
		if err := s.Put(ctx, name, strings.NewReader("x")); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Put(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestS3_OpenRangeHeader(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{data: []byte("0123456789")}
	s := newS3ForTest(t, fake, "")

	rc, err := s.OpenRange(ctx, "book.pdf", 200, 300)
	if err != nil {
		t.Fatalf("OpenRange failed: %v", err)
	}
	rc.Close()
	if fake.lastGetRange != "bytes=200-499" {
		t.Errorf("range header = %q, want %q", fake.lastGetRange, "bytes=200-499")
	}
}

func TestS3_NotFoundClassification(t *testing.T) {
	ctx := context.Background()

	t.Run("get NoSuchKey", func(t *testing.T) {
		fake := &fakeS3{getErr: &apiError{code: "NoSuchKey"}}
		s := newS3ForTest(t, fake, "")
		if _, err := s.Open(ctx, "missing.pdf"); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("head NotFound", func(t *testing.T) {
		fake := &fakeS3{headErr: &apiError{code: "NotFound"}}
		s := newS3ForTest(t, fake, "")
		if _, err := s.Stat(ctx, "missing.pdf"); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
		ok, err := s.Exists(ctx, "missing.pdf")
		if err != nil || ok {
			t.Errorf("Exists = (%v, %v), want (false, nil)", ok, err)
		}
	})

	t.Run("other errors pass through", func(t *testing.T) {
		fake := &fakeS3{headErr: &apiError{code: "AccessDenied"}}
		s := newS3ForTest(t, fake, "")
		if _, err := s.Stat(ctx, "x.pdf"); errors.Is(err, ErrNotFound) {
			t.Error("AccessDenied should not classify as ErrNotFound")
		}
	})
}

func TestS3_Stat(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{data: []byte("12345")}
	s := newS3ForTest(t, fake, "")

	size, err := s.Stat(ctx, "book.pdf")
	if err != nil || size != 5 {
		t.Errorf("Stat = (%d, %v), want (5, nil)", size, err)
	}
}
