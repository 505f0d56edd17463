package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemory_PutOpen(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Put(ctx, "a.pdf", strings.NewReader("hello world")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rc, err := m.Open(ctx, "a.pdf")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "hello world" {
		t.Errorf("got %q, want %q", data, "hello world")
	}
}

func TestMemory_PutEmptyName(t *testing.T) {
	if err := NewMemory().Put(context.Background(), "", strings.NewReader("x")); !errors.Is(err, ErrInvalidName) {
		t.Errorf("error = %v, want ErrInvalidName", err)
	}
}

func TestMemory_OpenRange(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Put(ctx, "a.pdf", strings.NewReader("0123456789")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		off, length int64
		want        string
	}{
		{"interior", 2, 4, "2345"},
		{"from start", 0, 3, "012"},
		{"to end", 7, 3, "789"},
		{"length clamped", 8, 100, "89"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := m.OpenRange(ctx, "a.pdf", tt.off, tt.length)
			if err != nil {
				t.Fatalf("OpenRange failed: %v", err)
			}
			defer rc.Close()
			data, _ := io.ReadAll(rc)
			if string(data) != tt.want {
				t.Errorf("got %q, want %q", data, tt.want)
			}
		})
	}
}

func TestMemory_StatExistsDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Put(ctx, "a.pdf", strings.NewReader("12345")); err != nil {
		t.Fatal(err)
	}

	size, err := m.Stat(ctx, "a.pdf")
	if err != nil || size != 5 {
		t.Errorf("Stat = (%d, %v), want (5, nil)", size, err)
	}
	if _, err := m.Stat(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat missing error = %v, want ErrNotFound", err)
	}

	ok, err := m.Exists(ctx, "a.pdf")
	if err != nil || !ok {
		t.Errorf("Exists = (%v, %v), want (true, nil)", ok, err)
	}

	if err := m.Delete(ctx, "a.pdf"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	ok, _ = m.Exists(ctx, "a.pdf")
	if ok {
		t.Error("blob should be gone after Delete")
	}

	// Delete is idempotent.
	if err := m.Delete(ctx, "a.pdf"); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
}
