package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/lighthouse-toolkit/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockGateway implements interfaces.Gateway for testing
type MockGateway struct {
	mock.Mock
	name string
}

func (m *MockGateway) Fetch(ctx context.Context, id interfaces.ContentID) (*interfaces.Download, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Download), args.Error(1)
}

func (m *MockGateway) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockGateway) Name() string {
	return m.name
}

func (m *MockGateway) LocationURI() string {
	return "mock:" + m.name
}

func TestMultiGateway_Available(t *testing.T) {
	tests := []struct {
		name     string
		gateways []bool
		expected bool
	}{
		{
			name:     "all gateways available",
			gateways: []bool{true, true, true},
			expected: true,
		},
		{
			name:     "some gateways available",
			gateways: []bool{false, true, false},
			expected: true,
		},
		{
			name:     "no gateways available",
			gateways: []bool{false, false, false},
			expected: false,
		},
		{
			name:     "no gateways",
			gateways: []bool{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gateways []interfaces.Gateway
			for i, available := range tt.gateways {
				mockGateway := &MockGateway{name: fmt.Sprintf("mock-A%x", i)}
				mockGateway.On("Available", mock.Anything).Return(available).Maybe()
				gateways = append(gateways, mockGateway)
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiGateway(gateways, logger)

			assert.Equal(t, tt.expected, multi.Available(context.Background()))

			for _, gateway := range gateways {
				gateway.(*MockGateway).AssertExpectations(t)
			}
		})
	}
}

func TestMultiGateway_Fetch(t *testing.T) {
	testID := interfaces.ContentID("bafkreitest")
	testData := &interfaces.Download{Data: []byte("test data"), ContentType: "text/plain"}
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.Gateway
		expectedData  *interfaces.Download
		expectedError bool
	}{
		{
			name: "first gateway successful",
			setupMocks: func() []interfaces.Gateway {
				mock1 := &MockGateway{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, testID).Return(testData, nil)

				// Not called, the first gateway succeeds.
				mock2 := &MockGateway{name: "mock-B"}

				return []interfaces.Gateway{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "first gateway fails, second succeeds",
			setupMocks: func() []interfaces.Gateway {
				mock1 := &MockGateway{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, testID).Return(nil, testErr).Once()

				mock2 := &MockGateway{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, testID).Return(testData, nil).Once()

				return []interfaces.Gateway{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "all gateways fail",
			setupMocks: func() []interfaces.Gateway {
				mock1 := &MockGateway{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, testID).Return(nil, testErr)

				mock2 := &MockGateway{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, testID).Return(nil, interfaces.ErrContentNotFound)

				return []interfaces.Gateway{mock1, mock2}
			},
			expectedError: true,
		},
		{
			name: "unavailable gateways are skipped",
			setupMocks: func() []interfaces.Gateway {
				mock1 := &MockGateway{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)

				mock2 := &MockGateway{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, testID).Return(testData, nil)

				return []interfaces.Gateway{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "no gateways",
			setupMocks: func() []interfaces.Gateway {
				return nil
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateways := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiGateway(gateways, logger)

			data, err := multi.Fetch(context.Background(), testID)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedData, data)

			for _, gateway := range gateways {
				gateway.(*MockGateway).AssertExpectations(t)
			}
		})
	}
}

func TestMultiGateway_FetchKeepsCauses(t *testing.T) {
	testID := interfaces.ContentID("bafkreitest")
	mock1 := &MockGateway{name: "mock-A"}
	mock1.On("Available", mock.Anything).Return(true)
	mock1.On("Fetch", mock.Anything, testID).Return(nil, interfaces.ErrContentNotFound)

	multi := NewMultiGateway([]interfaces.Gateway{mock1}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := multi.Fetch(context.Background(), testID)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
	assert.Equal(t, "multi:[mock:mock-A]", multi.LocationURI())
}
