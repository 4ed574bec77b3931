package filestore

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// newTestStore создаёт хранилище во временном каталоге с одним файлом.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "HPA.csv"), []byte("gene,expression\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New ошибка: %v", err)
	}
	return s
}

// TestNew_MissingDir проверяет ошибку для несуществующего каталога.
func TestNew_MissingDir(t *testing.T) {
	if _, err := New("/nonexistent/files"); err == nil {
		t.Fatal("ожидалась ошибка для несуществующего каталога")
	}
}

// TestOpen_Success проверяет чтение существующего файла.
func TestOpen_Success(t *testing.T) {
	s := newTestStore(t)

	f, info, err := s.Open("HPA.csv")
	if err != nil {
		t.Fatalf("Open ошибка: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "gene,expression\n" {
		t.Errorf("содержимое = %q", string(data))
	}
	if info.Size() != int64(len(data)) {
		t.Errorf("Size = %d, ожидался %d", info.Size(), len(data))
	}
}

// TestOpen_NotFound проверяет ErrNotFound для отсутствующего файла.
func TestOpen_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.Open("missing.csv")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrNotFound", err)
	}
}

// TestOpen_PathTraversal проверяет отказ для имён с выходом из каталога.
func TestOpen_PathTraversal(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"../etc/passwd", "a/b.csv", "..", ""} {
		if _, _, err := s.Open(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Open(%q): ошибка = %v, ожидалась ErrInvalidName", name, err)
		}
	}
}
