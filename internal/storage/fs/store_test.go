package fs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sdsc-ordes/modos-api/internal/storage/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "archive"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func put(t *testing.T, s *Store, target, content string) {
	t.Helper()
	if err := s.Put(context.Background(), bytes.NewReader([]byte(content)), target); err != nil {
		t.Fatalf("Put(%q): %v", target, err)
	}
}

func read(t *testing.T, s *Store, target string) string {
	t.Helper()
	r, err := s.Open(context.Background(), target)
	if err != nil {
		t.Fatalf("Open(%q): %v", target, err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll(%q): %v", target, err)
	}
	return string(b)
}

func TestPutOpenRoundTrip(t *testing.T) {
	s := newStore(t)
	put(t, s, "nested/dir/file.txt", "hello")
	if got := read(t, s, "nested/dir/file.txt"); got != "hello" {
		t.Errorf("read back %q, want %q", got, "hello")
	}
}

func TestExists(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ok, err := s.Exists(ctx, "missing.txt")
	if err != nil || ok {
		t.Fatalf("Exists(missing) = %v, %v", ok, err)
	}
	put(t, s, "present.txt", "x")
	ok, err = s.Exists(ctx, "present.txt")
	if err != nil || !ok {
		t.Fatalf("Exists(present) = %v, %v", ok, err)
	}
}

func TestListRecursive(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	put(t, s, "b.txt", "1")
	put(t, s, "a/one.txt", "2")
	put(t, s, "a/two.txt", "3")

	got, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"a/one.txt", "a/two.txt", "b.txt"}
	if len(got) != len(want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	sub, err := s.List(ctx, "a")
	if err != nil {
		t.Fatalf("List(a): %v", err)
	}
	if len(sub) != 2 {
		t.Errorf("List(a) = %v, want two entries", sub)
	}
}

func TestMove(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	put(t, s, "old/name.txt", "payload")
	if err := s.Move(ctx, "old/name.txt", "new/name.txt"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := read(t, s, "new/name.txt"); got != "payload" {
		t.Errorf("moved content = %q", got)
	}
	if ok, _ := s.Exists(ctx, "old/name.txt"); ok {
		t.Error("source still exists after move")
	}
}

func TestRemoveAbsentIsNoError(t *testing.T) {
	s := newStore(t)
	if err := s.Remove(context.Background(), "never-there.txt"); err != nil {
		t.Fatalf("Remove(absent): %v", err)
	}
}

func TestRejectsTraversal(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, target := range []string{"../escape.txt", "/etc/passwd", "a/../../b"} {
		if err := s.Put(ctx, bytes.NewReader([]byte("x")), target); err == nil {
			t.Errorf("Put(%q) succeeded, want error", target)
		}
	}
}

func TestEmpty(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	empty, err := s.Empty(ctx)
	if err != nil || !empty {
		t.Fatalf("Empty(new) = %v, %v", empty, err)
	}
	put(t, s, core.RootAttrsKey, `{"id":"ex"}`)
	empty, err = s.Empty(ctx)
	if err != nil || empty {
		t.Fatalf("Empty(initialized) = %v, %v", empty, err)
	}
}

func TestRemoveAll(t *testing.T) {
	s := newStore(t)
	put(t, s, "file.txt", "x")
	if err := s.RemoveAll(); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Errorf("archive directory still present: %v", err)
	}
}
