package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/ekisa-team/toolvision/internal/backend"
	"github.com/ekisa-team/toolvision/internal/config"
	"github.com/ekisa-team/toolvision/internal/device"
	"github.com/ekisa-team/toolvision/internal/envvar"
)

type MockTrainer struct {
	mock.Mock
}

func (m *MockTrainer) Provider() backend.Provider {
	return backend.ProviderUltralytics
}

func (m *MockTrainer) Train(ctx context.Context, req *backend.TrainRequest) (*backend.TrainResult, error) {
	args := m.Called(ctx, req)
	if res, ok := args.Get(0).(*backend.TrainResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTrainer) Predict(ctx context.Context, req *backend.PredictRequest) (*backend.PredictResult, error) {
	args := m.Called(ctx, req)
	if res, ok := args.Get(0).(*backend.PredictResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTrainer) Close() error {
	return nil
}

type MockLocator struct {
	mock.Mock
}

func (m *MockLocator) LocateManifest(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

var noGPU = device.ProbeFunc(func(context.Context) (bool, error) { return false, nil })

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv(envvar.ToolvisionWorkDir, "")

	cfg := config.DefaultConfig()
	cfg.Storage.WorkDir = t.TempDir()
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
