package pages

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
)

// Unknown is rendered when a metric cannot be read.
const Unknown = "unknown"

// Metrics abstracts the system readings shown on the status page.
type Metrics interface {
	ChipID(ctx context.Context) (string, error)
	CoreVersion(ctx context.Context) (string, error)
	CPUFrequencyMHz(ctx context.Context) (float64, error)
	FreeHeap() uint64
}

// NewSystemMetrics returns a Metrics backed by the host OS.
func NewSystemMetrics() Metrics {
	return &systemMetrics{}
}

type systemMetrics struct{}

// ChipID returns the host's stable hardware/host identifier.
func (m *systemMetrics) ChipID(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read host info: %w", err)
	}
	if info.HostID == "" {
		return "", fmt.Errorf("host id not available")
	}
	return info.HostID, nil
}

// CoreVersion returns the kernel version and the Go runtime that drives it.
func (m *systemMetrics) CoreVersion(ctx context.Context) (string, error) {
	kernel, err := host.KernelVersionWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read kernel version: %w", err)
	}
	return fmt.Sprintf("%s/%s", kernel, runtime.Version()), nil
}

// CPUFrequencyMHz returns the nominal frequency of the first CPU.
func (m *systemMetrics) CPUFrequencyMHz(ctx context.Context) (float64, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read cpu info: %w", err)
	}
	if len(infos) == 0 {
		return 0, fmt.Errorf("no cpu info reported")
	}
	return infos[0].Mhz, nil
}

// FreeHeap returns the bytes of heap the Go runtime holds but is not using.
func (m *systemMetrics) FreeHeap() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapSys - ms.HeapInuse
}
