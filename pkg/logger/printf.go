package logger

// Printf adapts a Logger for components that log through printf-style
// Info/Debug/Error methods.
type Printf struct {
	L Logger
}

func (p Printf) Info(format string, args ...interface{}) {
	p.L.Infof(format, args...)
}

func (p Printf) Debug(format string, args ...interface{}) {
	p.L.Debugf(format, args...)
}

func (p Printf) Error(format string, args ...interface{}) {
	p.L.Errorf(format, args...)
}
