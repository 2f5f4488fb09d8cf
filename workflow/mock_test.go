package workflow

import (
	"github.com/ruteri/lighthouse-toolkit/interfaces"
	"github.com/stretchr/testify/mock"
)

type MockSigner struct {
	mock.Mock
}

func (m *MockSigner) Address() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSigner) SignMessage(msg string) (string, error) {
	args := m.Called(msg)
	return args.String(0), args.Error(1)
}

type MockRecordWriter struct {
	mock.Mock
}

func (m *MockRecordWriter) SaveRecord(rec *interfaces.UploadRecord) (string, error) {
	args := m.Called(rec)
	return args.String(0), args.Error(1)
}
