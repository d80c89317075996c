package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"storefront/background-worker-service/internal/app/background-worker/entity"
)

// MockImageReferenceRepository мок для ImageReferenceRepository
type MockImageReferenceRepository struct {
	mock.Mock
}

func (m *MockImageReferenceRepository) ListImageURLs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockImageReferenceRepository) IsReferenced(ctx context.Context, imageURL string) (bool, error) {
	args := m.Called(ctx, imageURL)
	return args.Bool(0), args.Error(1)
}

// MockJanitorStateRepository мок для JanitorStateRepository
type MockJanitorStateRepository struct {
	mock.Mock
}

func (m *MockJanitorStateRepository) AcquireLock(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, owner, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockJanitorStateRepository) ReleaseLock(ctx context.Context, owner string) error {
	args := m.Called(ctx, owner)
	return args.Error(0)
}

func (m *MockJanitorStateRepository) SaveReport(ctx context.Context, report *entity.ReconcileReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockJanitorStateRepository) LastReport(ctx context.Context) (*entity.ReconcileReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ReconcileReport), args.Error(1)
}
