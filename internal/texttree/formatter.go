package texttree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eagine-core/log-server/internal/logging"
)

// FormatMessage substitutes ${name} placeholders in format with the
// rendered value of the correspondingly named argument (spec.md §4.6).
// A placeholder with no matching argument is left untranslated.
func FormatMessage(format string, args []logging.Argument) string {
	var b strings.Builder
	i := 0
	for i < len(format) {
		start := strings.Index(format[i:], "${")
		if start < 0 {
			b.WriteString(format[i:])
			break
		}
		start += i
		b.WriteString(format[i:start])
		end := strings.IndexByte(format[start+2:], '}')
		if end < 0 {
			b.WriteString(format[start:])
			break
		}
		end += start + 2
		name := format[start+2 : end]
		if arg, ok := argByName(args, name); ok {
			b.WriteString(renderArg(arg))
		} else {
			b.WriteString(format[start : end+1])
		}
		i = end + 1
	}
	return b.String()
}

func argByName(args []logging.Argument, name string) (logging.Argument, bool) {
	want := logging.MakeID(name)
	for _, a := range args {
		if a.Name == want {
			return a, true
		}
	}
	return logging.Argument{}, false
}

// renderArg renders a single argument losslessly with respect to its kind:
// integers as digits, durations with a unit suffix, floats at bounded
// precision (spec.md §4.6).
func renderArg(a logging.Argument) string {
	switch a.Kind {
	case logging.ArgBool:
		return strconv.FormatBool(a.Bool)
	case logging.ArgInt64:
		return strconv.FormatInt(a.I64, 10)
	case logging.ArgUint64:
		return strconv.FormatUint(a.U64, 10)
	case logging.ArgFloat32:
		return strconv.FormatFloat(float64(a.F32), 'g', 6, 32)
	case logging.ArgDuration:
		return a.Dur.String()
	case logging.ArgString:
		return a.Str
	case logging.ArgIdentifier:
		return a.Ident.String()
	default:
		return ""
	}
}

// padRight right-pads s with spaces to width, or returns s unchanged if it
// is already at least that long (the box-drawing columns are fixed-width;
// a value that overflows still renders, just misaligned).
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// microsSince renders a duration between two offsets (seconds) as a
// fixed-width microsecond count (spec.md §4.6: "since_* are computed in
// microseconds from the offset").
func microsSince(fromOffset, toOffset float64) string {
	us := (toOffset - fromOffset) * 1e6
	return fmt.Sprintf("%.0fus", us)
}
