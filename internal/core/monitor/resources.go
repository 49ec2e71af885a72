package monitor

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// Usage is one sample of system utilisation, in percent
type Usage struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	DiskPercent   float64   `json:"disk_percent"`
	Timestamp     time.Time `json:"timestamp"`
}

// HostInfo describes the machine the backend runs on
type HostInfo struct {
	Hostname      string    `json:"hostname"`
	OS            string    `json:"os"`
	Platform      string    `json:"platform"`
	KernelVersion string    `json:"kernel_version"`
	Uptime        uint64    `json:"uptime"`
	BootTime      time.Time `json:"boot_time"`
	Cores         int       `json:"cores"`
}

// RuntimeStats represents Go runtime statistics
type RuntimeStats struct {
	Goroutines    int    `json:"goroutines"`
	MemAllocBytes uint64 `json:"mem_alloc_bytes"`
	MemSysBytes   uint64 `json:"mem_sys_bytes"`
	GCCycles      uint32 `json:"gc_cycles"`
}

// ResourceReport is the full payload of the system resources endpoint
type ResourceReport struct {
	Usage   Usage        `json:"usage"`
	Host    HostInfo     `json:"host"`
	Runtime RuntimeStats `json:"runtime"`
}

// UsageReader samples utilisation percentages
type UsageReader interface {
	GetUsagePercentages(ctx context.Context) (cpu, memory, disk float64, err error)
}

// ResourceMonitor samples system resources through gopsutil
type ResourceMonitor struct {
	logger    *logrus.Logger
	cpuWindow time.Duration
	diskPath  string
}

// NewResourceMonitor creates a monitor measuring CPU over one second and
// disk usage of the root filesystem.
func NewResourceMonitor(logger *logrus.Logger) *ResourceMonitor {
	return &ResourceMonitor{
		logger:    logger,
		cpuWindow: time.Second,
		diskPath:  "/",
	}
}

// Sample takes one utilisation sample. CPU and memory failures fail the
// sample; a disk failure only leaves DiskPercent at 0.
func (r *ResourceMonitor) Sample(ctx context.Context) (*Usage, error) {
	usage := &Usage{Timestamp: time.Now()}

	percents, err := cpu.PercentWithContext(ctx, r.cpuWindow, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get CPU usage: %w", err)
	}
	if len(percents) > 0 {
		usage.CPUPercent = percents[0]
	}

	vmem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get virtual memory stats: %w", err)
	}
	usage.MemoryPercent = vmem.UsedPercent

	du, err := disk.UsageWithContext(ctx, r.diskPath)
	if err != nil {
		r.logger.WithError(err).WithField("path", r.diskPath).Warn("Failed to get disk usage")
	} else {
		usage.DiskPercent = du.UsedPercent
	}

	return usage, nil
}

// GetUsagePercentages returns simplified usage percentages for health checks
func (r *ResourceMonitor) GetUsagePercentages(ctx context.Context) (cpu, memory, disk float64, err error) {
	usage, err := r.Sample(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	return usage.CPUPercent, usage.MemoryPercent, usage.DiskPercent, nil
}

// Report collects a utilisation sample plus host and runtime details
func (r *ResourceMonitor) Report(ctx context.Context) (*ResourceReport, error) {
	usage, err := r.Sample(ctx)
	if err != nil {
		return nil, err
	}

	report := &ResourceReport{
		Usage:   *usage,
		Runtime: runtimeStats(),
	}

	info, err := host.InfoWithContext(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to get host info")
	} else {
		report.Host = HostInfo{
			Hostname:      info.Hostname,
			OS:            info.OS,
			Platform:      info.Platform,
			KernelVersion: info.KernelVersion,
			Uptime:        info.Uptime,
			BootTime:      time.Unix(int64(info.BootTime), 0),
		}
	}

	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		report.Host.Cores = cores
	}

	return report, nil
}

func runtimeStats() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RuntimeStats{
		Goroutines:    runtime.NumGoroutine(),
		MemAllocBytes: m.Alloc,
		MemSysBytes:   m.Sys,
		GCCycles:      m.NumGC,
	}
}
