package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock types ---

type MockTrainer struct {
	mock.Mock
}

func (m *MockTrainer) Provider() Provider {
	args := m.Called()
	return args.Get(0).(Provider)
}

func (m *MockTrainer) Train(ctx context.Context, req *TrainRequest) (*TrainResult, error) {
	args := m.Called(ctx, req)
	if res, ok := args.Get(0).(*TrainResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTrainer) Predict(ctx context.Context, req *PredictRequest) (*PredictResult, error) {
	args := m.Called(ctx, req)
	if res, ok := args.Get(0).(*PredictResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTrainer) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Tests ---

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	trainer := new(MockTrainer)
	trainer.On("Provider").Return(ProviderUltralytics)

	require.NoError(t, reg.Register(trainer))

	got, err := reg.Get(ProviderUltralytics)
	require.NoError(t, err)
	assert.Equal(t, trainer, got)

	// Ensure a missing backend returns ErrNotFound
	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	trainer.AssertExpectations(t)
}

func TestRegistry_RegisterTwice(t *testing.T) {
	reg := NewRegistry()

	first := new(MockTrainer)
	first.On("Provider").Return(ProviderUltralytics)
	second := new(MockTrainer)
	second.On("Provider").Return(ProviderUltralytics)

	require.NoError(t, reg.Register(first))
	err := reg.Register(second)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	got, err := reg.Get(ProviderUltralytics)
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestRegistry_Close(t *testing.T) {
	reg := NewRegistry()

	b1 := new(MockTrainer)
	b2 := new(MockTrainer)
	b1.On("Provider").Return(Provider("b1"))
	b2.On("Provider").Return(Provider("b2"))

	b1.On("Close").Return(nil).Once()
	b2.On("Close").Return(nil).Once()

	require.NoError(t, reg.Register(b1))
	require.NoError(t, reg.Register(b2))

	assert.NoError(t, reg.Close())

	b1.AssertExpectations(t)
	b2.AssertExpectations(t)
}

func TestRegistry_CloseErrorPropagation(t *testing.T) {
	reg := NewRegistry()

	b1 := new(MockTrainer)
	b2 := new(MockTrainer)
	b1.On("Provider").Return(Provider("b1"))
	b2.On("Provider").Return(Provider("b2"))

	closeErr := errors.New("close failed")
	b1.On("Close").Return(closeErr).Once()
	b2.On("Close").Return(nil).Once()

	require.NoError(t, reg.Register(b1))
	require.NoError(t, reg.Register(b2))

	err := reg.Close()
	assert.ErrorIs(t, err, closeErr)

	b1.AssertExpectations(t)
	b2.AssertExpectations(t)
}
