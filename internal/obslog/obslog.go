// Package obslog is a thin leveled wrapper over the standard log
// package, matching the teacher's plain log.Printf idiom (see
// cmd/agentsview/main.go's setupLogFile) rather than pulling in a
// structured-logging library the corpus never reaches for.
package obslog

import "log"

// Logger prefixes every line with a component tag, e.g. "[reconcile]".
type Logger struct {
	prefix string
}

// New returns a Logger that tags its output with component.
func New(component string) Logger {
	return Logger{prefix: "[" + component + "] "}
}

func (l Logger) Infof(format string, args ...any) {
	log.Printf(l.prefix+format, args...)
}

func (l Logger) Warnf(format string, args ...any) {
	log.Printf(l.prefix+"warning: "+format, args...)
}

func (l Logger) Errorf(format string, args ...any) {
	log.Printf(l.prefix+"error: "+format, args...)
}
