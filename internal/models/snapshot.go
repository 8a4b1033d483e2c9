package models

// Snapshot is one recorded sample as stored in the history database
type Snapshot struct {
	ID               int64   `json:"id,omitempty"`
	HostID           string  `json:"hostId"`
	SessionID        string  `json:"sessionId"`
	CPUPercent       float64 `json:"cpuPercent"`
	MemoryPercent    float64 `json:"memoryPercent"`
	MemoryUsedBytes  uint64  `json:"memoryUsedBytes"`
	MemoryTotalBytes uint64  `json:"memoryTotalBytes"`
	DiskPercent      float64 `json:"diskPercent"`
	SampledAt        int64   `json:"sampledAt"` // Unix timestamp in milliseconds
}

// HistoryResponse is the payload returned for a history query
type HistoryResponse struct {
	Snapshots []Snapshot `json:"snapshots"`
	Total     int        `json:"total"`
}
