package logging

import "go.uber.org/zap"

// New returns a named child of the global zap logger. config.New must run first
// for the output to follow the configured environment.
func New(name string) *zap.SugaredLogger {
	return zap.S().Named(name)
}
