package models

// DatastoreInfo is the presentation view of a datastore.
type DatastoreInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	CapacityGB int64  `json:"capacity_gb"`
	FreeGB     int64  `json:"free_gb"`
}

// HostInfo summarizes the managed ESXi host.
type HostInfo struct {
	Name          string `json:"name"`
	Product       string `json:"product"`
	NumCPUPkgs    int16  `json:"num_cpu_pkgs"`
	NumCPUCores   int16  `json:"num_cpu_cores"`
	NumCPUThreads int16  `json:"num_cpu_threads"`
	MemoryMB      int64  `json:"memory_mb"`
}
