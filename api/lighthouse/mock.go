package lighthouse

import (
	"context"

	"github.com/ruteri/lighthouse-toolkit/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockStorageClient implements interfaces.StorageClient for testing.
// The behavior is determined by how the mock is configured in tests.
type MockStorageClient struct {
	mock.Mock
}

func (m *MockStorageClient) AuthMessage(ctx context.Context, address string) (string, error) {
	args := m.Called(ctx, address)
	return args.String(0), args.Error(1)
}

func (m *MockStorageClient) Upload(ctx context.Context, req interfaces.UploadRequest) (*interfaces.UploadResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.UploadResponse), args.Error(1)
}

func (m *MockStorageClient) FetchEncryptionKey(ctx context.Context, id interfaces.ContentID, address string, token interfaces.AuthToken) (string, error) {
	args := m.Called(ctx, id, address, token)
	return args.String(0), args.Error(1)
}

func (m *MockStorageClient) Decrypt(ctx context.Context, id interfaces.ContentID, key string) ([]byte, error) {
	args := m.Called(ctx, id, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorageClient) Download(ctx context.Context, id interfaces.ContentID) (*interfaces.Download, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Download), args.Error(1)
}

func (m *MockStorageClient) DealStatus(ctx context.Context, id interfaces.ContentID) ([]interfaces.DealStatus, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.DealStatus), args.Error(1)
}

func (m *MockStorageClient) ApplyAccessCondition(ctx context.Context, req interfaces.AccessConditionRequest) (*interfaces.AccessAck, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.AccessAck), args.Error(1)
}

func (m *MockStorageClient) AccessConditions(ctx context.Context, id interfaces.ContentID, token interfaces.AuthToken) (interfaces.StoredConditions, error) {
	args := m.Called(ctx, id, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(interfaces.StoredConditions), args.Error(1)
}
