package monitor

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"neoscanner/internal/pkg/logger"
)

// cpuSampleInterval CPU 使用率采样时长
const cpuSampleInterval = 100 * time.Millisecond

// HostInfo 主机静态信息
type HostInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	Arch            string `json:"arch"`
	CPUCores        int    `json:"cpu_cores"`
	MemoryTotal     uint64 `json:"memory_total"`
	Uptime          uint64 `json:"uptime"`
}

// SystemMetrics 系统指标
type SystemMetrics struct {
	CPUUsage         float64 `json:"cpu_usage"`
	MemoryUsage      float64 `json:"memory_usage"`
	DiskUsage        float64 `json:"disk_usage"`
	NetworkBytesSent uint64  `json:"network_bytes_sent"`
	NetworkBytesRecv uint64  `json:"network_bytes_recv"`
}

// ProcessMetrics 扫描服务进程自身的运行时指标
type ProcessMetrics struct {
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	NumGC      uint32 `json:"num_gc"`
}

// Snapshot 一次采集的完整结果
type Snapshot struct {
	Host      *HostInfo      `json:"host"`
	System    *SystemMetrics `json:"system"`
	Process   ProcessMetrics `json:"process"`
	Collected time.Time      `json:"collected_at"`
}

// Collect 采集主机与进程指标，单项失败只记日志，对应字段保持零值
func Collect(ctx context.Context) *Snapshot {
	return &Snapshot{
		Host:      GetHostInfo(ctx),
		System:    GetSystemMetrics(ctx),
		Process:   GetProcessMetrics(),
		Collected: time.Now(),
	}
}

// GetSystemMetrics 获取系统指标
func GetSystemMetrics(ctx context.Context) *SystemMetrics {
	metrics := &SystemMetrics{}

	// 1. CPU Usage
	cpuPercent, err := cpu.PercentWithContext(ctx, cpuSampleInterval, false)
	if err != nil {
		logger.LogSystemEvent("Monitor", "GetSystemMetrics", "Failed to get CPU usage: "+err.Error(), logger.WarnLevel, nil)
	} else if len(cpuPercent) > 0 {
		metrics.CPUUsage = cpuPercent[0]
	}

	// 2. Memory Usage
	vMem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		logger.LogSystemEvent("Monitor", "GetSystemMetrics", "Failed to get Memory usage: "+err.Error(), logger.WarnLevel, nil)
	} else {
		metrics.MemoryUsage = vMem.UsedPercent
	}

	// 3. Disk Usage
	dUsage, err := diskUsage(ctx)
	if err != nil {
		logger.LogSystemEvent("Monitor", "GetSystemMetrics", "Failed to get Disk usage: "+err.Error(), logger.WarnLevel, nil)
	} else {
		metrics.DiskUsage = dUsage.UsedPercent
	}

	// 4. Network Stats，所有网卡合计
	netIO, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		logger.LogSystemEvent("Monitor", "GetSystemMetrics", "Failed to get Network stats: "+err.Error(), logger.WarnLevel, nil)
	} else if len(netIO) > 0 {
		metrics.NetworkBytesSent = netIO[0].BytesSent
		metrics.NetworkBytesRecv = netIO[0].BytesRecv
	}

	return metrics
}

// GetHostInfo 获取主机静态信息
func GetHostInfo(ctx context.Context) *HostInfo {
	info := &HostInfo{}

	hInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		logger.LogSystemEvent("Monitor", "GetHostInfo", "Failed to get host info: "+err.Error(), logger.WarnLevel, nil)
	} else {
		info.Hostname = hInfo.Hostname
		info.OS = hInfo.OS
		info.Platform = hInfo.Platform
		info.PlatformVersion = hInfo.PlatformVersion
		info.KernelVersion = hInfo.KernelVersion
		info.Arch = hInfo.KernelArch
		info.Uptime = hInfo.Uptime
	}

	// host.Info 失败或字段为空时回退到 runtime
	if info.OS == "" {
		info.OS = runtime.GOOS
	}
	if info.Arch == "" {
		info.Arch = runtime.GOARCH
	}

	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil || cores == 0 {
		cores = runtime.NumCPU()
	}
	info.CPUCores = cores

	vMem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		logger.LogSystemEvent("Monitor", "GetHostInfo", "Failed to get Memory info: "+err.Error(), logger.WarnLevel, nil)
	} else {
		info.MemoryTotal = vMem.Total
	}

	return info
}

// GetProcessMetrics 当前进程的 goroutine 与堆内存
func GetProcessMetrics() ProcessMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ProcessMetrics{
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		NumGC:      ms.NumGC,
	}
}

// diskUsage 先取 "/"，Windows 下回退到 "C:"
func diskUsage(ctx context.Context) (*disk.UsageStat, error) {
	dUsage, err := disk.UsageWithContext(ctx, "/")
	if err != nil {
		dUsage, err = disk.UsageWithContext(ctx, "C:")
	}
	return dUsage, err
}
