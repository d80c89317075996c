package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultURLPrefix = "/uploads"
	tmpDirName       = ".tmp"
)

// LocalConfig - настройки локального хранилища
type LocalConfig struct {
	// Dir - директория, которая раздается статикой
	Dir string
	// URLPrefix - публичный префикс URL, по умолчанию /uploads
	URLPrefix string
}

// LocalStore хранит картинки в директории на диске
type LocalStore struct {
	root      string
	urlPrefix string
}

func NewLocalStore(cfg LocalConfig) (*LocalStore, error) {
	root := strings.TrimSpace(cfg.Dir)
	if root == "" {
		return nil, fmt.Errorf("%w: upload directory is required", ErrNotConfigured)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, tmpDirName), 0o755); err != nil {
		return nil, err
	}

	prefix := "/" + strings.Trim(strings.TrimSpace(cfg.URLPrefix), "/")
	if prefix == "/" {
		prefix = defaultURLPrefix
	}

	return &LocalStore{root: abs, urlPrefix: prefix}, nil
}

func (l *LocalStore) Backend() string {
	return BackendLocal
}

// Root - абсолютный путь директории для раздачи статики
func (l *LocalStore) Root() string {
	return l.root
}

// URLPrefix - маршрут, под которым router раздает Root
func (l *LocalStore) URLPrefix() string {
	return l.urlPrefix
}

// Put пишет во временный файл и переименовывает его, читатели не видят недописанный файл
func (l *LocalStore) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if body == nil {
		return "", fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := l.pathFromKey(key)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Join(l.root, tmpDirName), "put-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, body); err != nil {
		cleanup()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		cleanup()
		return "", err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return "", err
	}

	return l.PublicURL(key), nil
}

func (l *LocalStore) PublicURL(key string) string {
	return l.urlPrefix + "/" + key
}

func (l *LocalStore) DeleteByURL(ctx context.Context, rawURL string) {
	deleteByURL(ctx, l, rawURL)
}

func (l *LocalStore) Owns(rawURL string) bool {
	_, ok := l.KeyFromURL(rawURL)
	return ok
}

// KeyFromURL принимает только относительные URL под urlPrefix
func (l *LocalStore) KeyFromURL(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	if !strings.HasPrefix(rawURL, l.urlPrefix+"/") {
		return "", false
	}
	key := strings.TrimPrefix(rawURL, l.urlPrefix+"/")
	if _, err := l.pathFromKey(key); err != nil {
		return "", false
	}
	return key, true
}

func (l *LocalStore) List(ctx context.Context, prefix string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var objects []Object
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == tmpDirName {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{
			Key:          key,
			URL:          l.PublicURL(key),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	return objects, nil
}

// Delete удаляет файл. Отсутствующие файлы игнорируются
func (l *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (l *LocalStore) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("blob key must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob key")
	}
	if first := strings.SplitN(filepath.ToSlash(clean), "/", 2)[0]; first == tmpDirName {
		return "", fmt.Errorf("invalid blob key")
	}
	return filepath.Join(l.root, clean), nil
}
