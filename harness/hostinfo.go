package harness

import (
	"os"
	"runtime"
)

// Host identifies the machine a run executed on. Scheduler latencies
// are meaningless without it.
type Host struct {
	Hostname      string `json:"hostname"`
	CPUs          int    `json:"cpus"`
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	KernelRelease string `json:"kernel_release,omitempty"`
	KernelVersion string `json:"kernel_version,omitempty"`
	Machine       string `json:"machine,omitempty"`
}

// CollectHost gathers host metadata for a run report.
func CollectHost() Host {
	h := Host{
		CPUs: runtime.NumCPU(),
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if name, err := os.Hostname(); err == nil {
		h.Hostname = name
	}

	fillKernel(&h)

	return h
}
