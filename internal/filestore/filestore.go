// Пакет filestore — локальное файловое хранилище байт blob-объектов.
// Обслуживает endpoint скачивания: объекты лежат плоско в одном каталоге,
// имя файла совпадает с object_id.
package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Ошибки файлового хранилища.
var (
	// ErrNotFound — файл объекта отсутствует в хранилище.
	ErrNotFound = errors.New("файл не найден")
	// ErrInvalidName — имя содержит разделители пути или выход из каталога.
	ErrInvalidName = errors.New("недопустимое имя файла")
)

// Store — локальное файловое хранилище.
type Store struct {
	dir string
}

// New создаёт хранилище поверх каталога dir.
// Каталог обязан существовать.
func New(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("каталог файлового хранилища %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("каталог файлового хранилища %s: не является каталогом", dir)
	}
	return &Store{dir: dir}, nil
}

// Open открывает файл объекта для чтения.
// Имя с разделителями пути или ".." отклоняется — все объекты лежат
// плоско в корне хранилища, выход из каталога невозможен.
func (s *Store) Open(name string) (*os.File, os.FileInfo, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("открытие файла %q: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("stat файла %q: %w", name, err)
	}

	return f, info, nil
}
