package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestParseS3Path(t *testing.T) {
	cases := []struct {
		url    string
		bucket string
		key    string
	}{
		{"s3://bucket/key", "bucket", "key"},
		{"s3://my-bucket/nested/path", "my-bucket", "nested/path"},
		{"s3://bucket", "bucket", ""},
		{"s3://bucket/", "bucket", ""},
	}
	for _, c := range cases {
		p, err := ParseS3Path(c.url)
		if err != nil {
			t.Fatalf("ParseS3Path(%q): %v", c.url, err)
		}
		if p.Bucket != c.bucket || p.Key != c.key {
			t.Errorf("ParseS3Path(%q) = %q/%q, want %q/%q", c.url, p.Bucket, p.Key, c.bucket, c.key)
		}
	}
}

func TestParseS3PathRejectsInvalid(t *testing.T) {
	invalid := []string{
		"",
		"bucket/key",
		"http://bucket/key",
		"s3://ab",                 // too short
		"s3://UPPER/key",          // uppercase
		"s3://xn--bucket/key",     // reserved prefix
		"s3://sthree-bucket/key",  // reserved prefix
		"s3://bucket-s3alias/key", // reserved suffix
		"s3://bad..name/key",      // adjacent dots
	}
	for _, url := range invalid {
		if _, err := ParseS3Path(url); err == nil {
			t.Errorf("ParseS3Path(%q) succeeded, want error", url)
		}
	}
}

func TestIsS3Path(t *testing.T) {
	if !IsS3Path("s3://bucket/key") {
		t.Error("expected s3:// url to be detected")
	}
	if IsS3Path("/tmp/archive") {
		t.Error("local path detected as s3")
	}
}

type fakeStore struct {
	Storage
	rootAttrs []byte
	exists    bool
}

func (f *fakeStore) Exists(_ context.Context, target string) (bool, error) {
	return f.exists && target == RootAttrsKey, nil
}

func (f *fakeStore) Open(_ context.Context, target string) (io.ReadCloser, error) {
	if !f.exists || target != RootAttrsKey {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(f.rootAttrs)), nil
}

func TestIsEmpty(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name  string
		store *fakeStore
		want  bool
	}{
		{"missing root attrs", &fakeStore{exists: false}, true},
		{"empty attrs", &fakeStore{exists: true, rootAttrs: []byte("{}")}, true},
		{"populated attrs", &fakeStore{exists: true, rootAttrs: []byte(`{"id":"x"}`)}, false},
	}
	for _, c := range cases {
		got, err := IsEmpty(ctx, c.store)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("%s: IsEmpty = %v, want %v", c.name, got, c.want)
		}
	}
}
