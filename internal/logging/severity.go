package logging

import "fmt"

// Severity orders the importance of a message. Producers may filter
// emission below a configured threshold; the server itself never drops a
// message once received, only renders/dispatches it.
type Severity int

const (
	Trace Severity = iota
	Debug
	Stat
	Info
	Warning
	Error
	Fatal
	Backtrace
)

var severityNames = [...]string{
	Trace:     "trace",
	Debug:     "debug",
	Stat:      "stat",
	Info:      "info",
	Warning:   "warning",
	Error:     "error",
	Fatal:     "fatal",
	Backtrace: "backtrace",
}

// String implements fmt.Stringer.
func (s Severity) String() string {
	if s < Trace || s > Backtrace {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity looks up a severity by its lower-case name, as used in the
// "Log backend severity threshold" configuration option (spec.md §6).
func ParseSeverity(name string) (Severity, bool) {
	for s, n := range severityNames {
		if n == name {
			return Severity(s), true
		}
	}
	return 0, false
}
