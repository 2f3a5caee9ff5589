package constants

import "time"

const (
	PadlockLockManager = "padlock"
	NativeLockManager  = "native"
)

const (
	DefaultBenchmarkKey = "bench"
	// report path meaning standard output
	StdoutReportPath = "-"
	// queue wait above which a lock manager reports a starvation condition
	DefaultStarvationThreshold = time.Second
)
