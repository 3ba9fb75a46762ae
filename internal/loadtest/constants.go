package loadtest

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Output constants.
const (
	directoryPermission  = 0750
	percentageMultiplier = 100
)
