package core

import sch "otbot/internal/services/scheduler"

// Re-export scheduler types for the plugin SDK (plugins import core only).
type TaskOptions = sch.TaskOptions
type Snapshot = sch.Snapshot
type ScheduleInfo = sch.ScheduleInfo

const (
	OverlapAllow         = sch.OverlapAllow
	OverlapSkipIfRunning = sch.OverlapSkipIfRunning
)

// PermanentTaskError wraps err so the scheduler retry loop gives up
// immediately instead of exhausting its backoff attempts.
func PermanentTaskError(err error) error { return sch.Permanent(err) }

// IsPermanentTaskError reports whether err carries the PermanentTaskError
// marker.
func IsPermanentTaskError(err error) bool { return sch.IsPermanent(err) }

// ValidateSchedule checks a schedule spec (cron, interval duration, or
// interval HH:MM) without registering anything.
func ValidateSchedule(spec string) error {
	return sch.ValidateSpec(spec)
}
