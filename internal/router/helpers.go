package router

import (
	"wifirouterd/internal/common/fsutil"
)

// writeLocalFile lands collected remote artifacts under the results dir.
func writeLocalFile(path, content string) error {
	return fsutil.WriteFileMkdir(path, content)
}

// failureReason labels a startup failure for metrics.
func failureReason(err error) string {
	switch {
	case IsBadConfiguration(err):
		return "bad_configuration"
	case IsProcessDied(err):
		return "process_died"
	case IsStartupTimeout(err):
		return "startup_timeout"
	default:
		return "other"
	}
}
