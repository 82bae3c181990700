package rabbitmq

// Timeout Constants.
const (
	DefaultCtlTimeout     = 30
	LongCtlTimeout        = 60
	DefaultPluginTimeout  = 30
	LongPluginTimeout     = 60
	ExtendedPluginTimeout = 120
)

// Audit and History Constants.
const (
	DefaultHistoryLimit  = 100
	MaxAuditHistoryLimit = 10000
)

// Channel and Buffer Sizes.
const (
	OutputChannelBufferSize = 100
)

// Invocation grace added on top of the tool-side timeout so the tool gets a
// chance to report its own timeout before we kill it.
const (
	InvokerGraceSeconds = 5
)
