package types

import "time"

// LogSeverity classifies operational log entries.
type LogSeverity string

const (
	SeverityInfo    LogSeverity = "INFO"
	SeveritySuccess LogSeverity = "SUCCESS"
	SeverityWarning LogSeverity = "WARNING"
	SeverityError   LogSeverity = "ERROR"
)

// ServerLog is one entry in the operational log ring.
type ServerLog struct {
	Time     time.Time   `json:"time"`
	Severity LogSeverity `json:"severity"`
	Message  string      `json:"message"`
	Detail   string      `json:"detail,omitempty"`
}

// ServiceState is the lifecycle state of the listener.
type ServiceState string

const (
	StateStopped  ServiceState = "stopped"
	StateStarting ServiceState = "starting"
	StateRunning  ServiceState = "running"
	StateStopping ServiceState = "stopping"
	StateError    ServiceState = "error"
)

// ServiceStatus is a read-only projection of the lifecycle manager state.
// It is produced only by the manager; observers must not mutate it.
type ServiceStatus struct {
	State             ServiceState `json:"state"`
	Running           bool         `json:"running"`
	Busy              bool         `json:"busy"`
	ModelLoaded       bool         `json:"model_loaded"`
	Port              int          `json:"port"`
	Address           string       `json:"address"`
	RequestsProcessed uint64       `json:"requests_processed"`
	UptimeSeconds     int64        `json:"uptime_seconds"`
	Logs              []ServerLog  `json:"logs,omitempty"`
}
