package collector

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"procinfo/models"
)

var (
	caps     models.Capabilities
	capsOnce sync.Once
)

// DetectCapabilities probes once what part of the process table is visible
// and logs the result.
func DetectCapabilities(logger *slog.Logger) models.Capabilities {
	capsOnce.Do(func() {
		caps = models.Capabilities{
			HasProcFS:  fileExists("/proc/self/stat"),
			HasHostPID: detectHostPID(),
			IsRoot:     os.Geteuid() == 0,
		}

		logger.Info("╭─ procinfo Capabilities ───────────────────────────────────╮")
		logCap(logger, "procfs", caps.HasProcFS, "process listing")
		logCap(logger, "host pid", caps.HasHostPID, "processes outside this container")
		logCap(logger, "root", caps.IsRoot, "memory of other users' processes")
		logger.Info("╰───────────────────────────────────────────────────────────╯")
	})
	return caps
}

func logCap(logger *slog.Logger, name string, available bool, desc string) {
	icon := "✗"
	status := "unavailable"
	if available {
		icon = "✓"
		status = "enabled"
	}
	logger.Info(fmt.Sprintf("│ %s %-10s │ %-11s │ %-32s │", icon, name, status, desc),
		"capability", name, "enabled", available)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// detectHostPID reports whether PID 1 is a real init rather than this service
// running as the entrypoint of a private PID namespace.
func detectHostPID() bool {
	data, err := os.ReadFile("/proc/1/cmdline")
	if err != nil {
		return false
	}
	return isHostInit(string(data))
}

func isHostInit(cmdline string) bool {
	cmdline = strings.ReplaceAll(cmdline, "\x00", " ")
	cmdline = strings.TrimSpace(strings.ToLower(cmdline))
	if cmdline == "" {
		return false
	}

	if strings.Contains(cmdline, "procinfo") || strings.Contains(cmdline, "/server") {
		return false
	}
	return true
}
