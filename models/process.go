package models

// ProcessMetrics is one process as reported to callers.
// RuntimeMS is whole seconds since start scaled to milliseconds.
type ProcessMetrics struct {
	PID       int32   `json:"pid"`
	Usage     float64 `json:"usage"`
	Name      string  `json:"name"`
	RSS       uint64  `json:"rss"`
	RuntimeMS uint64  `json:"runtime_ms"`
	VSZ       uint64  `json:"vsz"`
}
