package models

import "time"

// VMInfo is the presentation view of a virtual machine.
type VMInfo struct {
	Name            string `json:"name"`
	Path            string `json:"path"`
	PowerState      string `json:"power_state"`
	PrimaryIP       string `json:"primary_ip,omitempty"`
	MemoryMB        int32  `json:"memory_mb"`
	NumCPUs         int32  `json:"num_cpus"`
	CoresPerSocket  int32  `json:"cores_per_socket"`
	HardwareVersion string `json:"hardware_version,omitempty"`
}

// DiskInfo describes one virtual disk attached to a VM.
type DiskInfo struct {
	Label         string `json:"label"`
	Summary       string `json:"summary"`
	CapacityKB    int64  `json:"capacity_kb"`
	ControllerKey int32  `json:"controller_key"`
	UnitNumber    int32  `json:"unit_number"`
}

// ControllerInfo describes one SCSI controller attached to a VM.
type ControllerInfo struct {
	Label     string `json:"label"`
	Summary   string `json:"summary"`
	BusNumber int32  `json:"bus_number"`
	Key       int32  `json:"key"`
}

// SnapshotInfo describes one node of a VM's snapshot tree.
type SnapshotInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
	State       string    `json:"state"`
}
