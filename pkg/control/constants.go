package control

import "time"

// Timeout Constants.
const (
	DefaultTimeoutSeconds = 20
	DrainDelay            = 5 * time.Second
)

// Common option switches, in the order the builder emits them.
const (
	nodeSwitch    = "-n"
	quietSwitch   = "-q"
	timeoutSwitch = "-t"
	vhostSwitch   = "-p"
)
