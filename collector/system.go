package collector

import (
	"context"
	"log/slog"
	"runtime"

	"procinfo/models"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// CollectHostInfo gathers a host summary. Fields that cannot be read are left zero.
func CollectHostInfo(ctx context.Context, logger *slog.Logger) models.HostInfo {
	info := models.HostInfo{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if hostInfo, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = hostInfo.Hostname
		info.Platform = hostInfo.Platform + " " + hostInfo.PlatformVersion
		info.Kernel = hostInfo.KernelVersion
		info.Uptime = hostInfo.Uptime
		if hostInfo.KernelArch != "" {
			info.Arch = hostInfo.KernelArch
		}
	} else {
		logger.Warn("host info unavailable", "error", err)
	}

	if count, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUCores = count
	} else {
		info.CPUCores = runtime.NumCPU()
	}

	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = memInfo.Total
	}

	return info
}
