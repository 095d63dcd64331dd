package device

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/klauspost/cpuid/v2"

	"github.com/ekisa-team/toolvision/internal/backend"
	"github.com/ekisa-team/toolvision/internal/envvar"
)

const probeTimeout = 10 * time.Second

// Device is the compute target identifier handed to the training framework.
type Device string

const (
	// GPU selects the first CUDA device.
	GPU Device = "0"

	// CPU selects the host CPU.
	CPU Device = "cpu"
)

// Probe reports whether hardware acceleration is available.
type Probe interface {
	Available(ctx context.Context) (bool, error)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) (bool, error)

// Available calls f.
func (f ProbeFunc) Available(ctx context.Context) (bool, error) {
	return f(ctx)
}

// Select returns GPU when the probe reports acceleration, CPU otherwise.
// Probe errors are logged and treated as "not available".
func Select(ctx context.Context, probe Probe) (Device, bool) {
	available, err := probe.Available(ctx)
	if err != nil {
		slog.Debug("GPU probe failed", "error", err)
		available = false
	}

	device := CPU
	if available {
		device = GPU
	}

	slog.Info("GPU available", "available", available)
	slog.Info("Using device", "device", device)
	if device == CPU {
		logCPU()
	}

	return device, available
}

func logCPU() {
	slog.Info("CPU",
		"brand", cpuid.CPU.BrandName,
		"physical_cores", cpuid.CPU.PhysicalCores,
		"logical_cores", cpuid.CPU.LogicalCores,
		"avx2", cpuid.CPU.Supports(cpuid.AVX2),
		"avx512", cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ),
	)
}

// NvidiaSMIProbe detects CUDA devices by listing them with nvidia-smi.
type NvidiaSMIProbe struct {
	executor  *backend.Executor
	lookupEnv func(string) (string, bool)
}

// NewNvidiaSMIProbe creates a probe that runs nvidia-smi through runner,
// giving up after probeTimeout.
func NewNvidiaSMIProbe(runner backend.CommandRunner) *NvidiaSMIProbe {
	return &NvidiaSMIProbe{
		executor:  backend.NewExecutorWithRunner("nvidia-smi", probeTimeout, runner),
		lookupEnv: os.LookupEnv,
	}
}

// Available reports whether at least one GPU is listed and visible.
// CUDA_VISIBLE_DEVICES set to "" or "-1" hides every device.
func (p *NvidiaSMIProbe) Available(ctx context.Context) (bool, error) {
	if visible, set := p.lookupEnv(envvar.CUDAVisibleDevices); set {
		if v := strings.TrimSpace(visible); v == "" || v == "-1" {
			return false, nil
		}
	}

	stdout, _, err := p.executor.Execute(ctx, []string{"-L"}, nil)
	if err != nil {
		return false, err
	}

	return countGPUs(stdout) > 0, nil
}

// countGPUs counts "GPU <n>: ..." lines.
func countGPUs(out []byte) int {
	n := 0
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if strings.HasPrefix(strings.TrimSpace(scanner.Text()), "GPU ") {
			n++
		}
	}
	return n
}
