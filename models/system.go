package models

// HostInfo holds OS details of the machine the service runs on
type HostInfo struct {
	Hostname    string `json:"hostname"`
	OS          string `json:"os"`
	Platform    string `json:"platform"`
	Kernel      string `json:"kernel"`
	Arch        string `json:"arch"`
	Uptime      uint64 `json:"uptime"`
	CPUCores    int    `json:"cpuCores"`
	MemoryTotal uint64 `json:"memoryTotal"`
}

// Capabilities holds what the service can see of the host
type Capabilities struct {
	HasProcFS  bool `json:"procfs"`
	HasHostPID bool `json:"hostPid"`
	IsRoot     bool `json:"root"`
}
