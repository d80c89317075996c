package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(LocalConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	return store
}

// ===================== NewLocalStore Tests =====================

func TestNewLocalStore_RequiresDir(t *testing.T) {
	_, err := NewLocalStore(LocalConfig{})

	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewLocalStore_NormalizesPrefix(t *testing.T) {
	store, err := NewLocalStore(LocalConfig{Dir: t.TempDir(), URLPrefix: "static/img/"})

	require.NoError(t, err)
	assert.Equal(t, "/static/img", store.URLPrefix())
	assert.Equal(t, BackendLocal, store.Backend())
}

// ===================== Put / Delete Tests =====================

func TestLocalStore_PutAndDeleteByURL(t *testing.T) {
	// Arrange
	store := newTestLocalStore(t)
	ctx := context.Background()
	body := "fake image bytes"

	// Act
	url, err := store.Put(ctx, "products/abc.png", strings.NewReader(body), int64(len(body)), "image/png")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "/uploads/products/abc.png", url)

	data, err := os.ReadFile(filepath.Join(store.Root(), "products", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, body, string(data))

	store.DeleteByURL(ctx, url)

	_, err = os.Stat(filepath.Join(store.Root(), "products", "abc.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_Put_RejectsTraversal(t *testing.T) {
	store := newTestLocalStore(t)

	for _, key := range []string{"../evil.png", "/etc/passwd", "products/../../x.png", ".tmp/x.png", ""} {
		_, err := store.Put(context.Background(), key, strings.NewReader("x"), 1, "image/png")
		assert.Error(t, err, key)
	}
}

func TestLocalStore_Put_CanceledContext(t *testing.T) {
	store := newTestLocalStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Put(ctx, "products/a.png", strings.NewReader("x"), 1, "image/png")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStore_Delete_MissingIsNotError(t *testing.T) {
	store := newTestLocalStore(t)

	err := store.Delete(context.Background(), "products/missing.png")

	assert.NoError(t, err)
}

func TestLocalStore_DeleteByURL_ForeignURLIsIgnored(t *testing.T) {
	// Arrange
	store := newTestLocalStore(t)
	ctx := context.Background()
	_, err := store.Put(ctx, "products/keep.png", strings.NewReader("x"), 1, "image/png")
	require.NoError(t, err)

	// Act
	store.DeleteByURL(ctx, "https://cdn.example.com/uploads/products/keep.png")

	// Assert
	_, err = os.Stat(filepath.Join(store.Root(), "products", "keep.png"))
	assert.NoError(t, err)
}

// ===================== Owns / KeyFromURL Tests =====================

func TestLocalStore_KeyFromURL(t *testing.T) {
	store := newTestLocalStore(t)

	tests := []struct {
		url     string
		wantKey string
		wantOK  bool
	}{
		{"/uploads/products/a.png", "products/a.png", true},
		{"/uploads/products/a.png?v=2", "products/a.png", true},
		{"/uploads/", "", false},
		{"/uploads/../secret", "", false},
		{"/other/products/a.png", "", false},
		{"https://example.com/uploads/products/a.png", "", false},
	}

	for _, tt := range tests {
		key, ok := store.KeyFromURL(tt.url)
		assert.Equal(t, tt.wantOK, ok, tt.url)
		assert.Equal(t, tt.wantKey, key, tt.url)
		assert.Equal(t, tt.wantOK, store.Owns(tt.url), tt.url)
	}
}

// ===================== List Tests =====================

func TestLocalStore_List(t *testing.T) {
	// Arrange
	store := newTestLocalStore(t)
	ctx := context.Background()
	for _, key := range []string{"products/a.png", "products/b.jpg", "banners/c.png"} {
		_, err := store.Put(ctx, key, strings.NewReader("x"), 1, "image/png")
		require.NoError(t, err)
	}

	// Act
	objects, err := store.List(ctx, ProductPrefix)

	// Assert
	require.NoError(t, err)
	require.Len(t, objects, 2)

	keys := []string{objects[0].Key, objects[1].Key}
	assert.ElementsMatch(t, []string{"products/a.png", "products/b.jpg"}, keys)
	for _, obj := range objects {
		assert.Equal(t, "/uploads/"+obj.Key, obj.URL)
		assert.EqualValues(t, 1, obj.Size)
		assert.WithinDuration(t, time.Now(), obj.LastModified, time.Minute)
	}
}

// ===================== NewKey Tests =====================

func TestNewKey(t *testing.T) {
	tests := []struct {
		name    string
		wantExt string
	}{
		{"photo.JPG", ".jpg"},
		{"archive.tar.gz", ".gz"},
		{"noext", ".png"},
		{"", ".png"},
		{"weird.p$g", ".png"},
	}

	for _, tt := range tests {
		key := NewKey(ProductPrefix, tt.name)
		assert.True(t, strings.HasPrefix(key, ProductPrefix), key)
		assert.True(t, strings.HasSuffix(key, tt.wantExt), key)
	}
}

func TestNewKey_Unique(t *testing.T) {
	assert.NotEqual(t, NewKey(ProductPrefix, "a.png"), NewKey(ProductPrefix, "a.png"))
}

// ===================== New Tests =====================

func TestNew_SelectsBackend(t *testing.T) {
	store, err := New(context.Background(), Config{Backend: "LOCAL", Local: LocalConfig{Dir: t.TempDir()}})
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, store.Backend())

	_, err = New(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(context.Background(), Config{Backend: "s3"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(context.Background(), Config{Backend: "ftp"})
	assert.Error(t, err)
}
