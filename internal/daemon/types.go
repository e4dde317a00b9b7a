package daemon

import "github.com/stickerbooth/sticker-daemon/internal/cups"

// HealthResponse reports the state of the sticker print service.
type HealthResponse struct {
	Status   string        `json:"status"`
	Queue    QueueStatus   `json:"queue"`
	Worker   WorkerStatus  `json:"worker"`
	Monitor  MonitorStatus `json:"monitor"`
	Printers cups.Summary  `json:"printers"`
	Build    BuildInfo     `json:"build"`
	Uptime   int           `json:"uptime_seconds"`
}

// QueueStatus reports print queue pressure.
type QueueStatus struct {
	Current     int     `json:"current"`
	Capacity    int     `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// WorkerStatus reports the print worker.
type WorkerStatus struct {
	Running       bool  `json:"running"`
	JobsProcessed int64 `json:"jobs_processed"`
	JobsFailed    int64 `json:"jobs_failed"`
}

// MonitorStatus reports the printer health monitor.
type MonitorStatus struct {
	Running bool  `json:"running"`
	Resumes int64 `json:"resumes"`
}

// BuildInfo carries compile-time build identification.
type BuildInfo struct {
	Env  string `json:"env"`
	Date string `json:"date"`
	Time string `json:"time"`
}
