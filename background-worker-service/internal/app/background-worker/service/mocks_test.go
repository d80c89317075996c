package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storefront/pkg/blobstore"
)

// MockBlobStore мок для BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Backend() string {
	return "s3"
}

func (m *MockBlobStore) Owns(url string) bool {
	args := m.Called(url)
	return args.Bool(0)
}

func (m *MockBlobStore) KeyFromURL(url string) (string, bool) {
	args := m.Called(url)
	return args.String(0), args.Bool(1)
}

func (m *MockBlobStore) List(ctx context.Context, prefix string) ([]blobstore.Object, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]blobstore.Object), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
