package texttree

import (
	"testing"
	"time"

	"github.com/eagine-core/log-server/internal/logging"
)

func TestFormatMessageSubstitutesKnownPlaceholders(t *testing.T) {
	args := []logging.Argument{
		{Name: logging.MakeID("count"), Kind: logging.ArgUint64, U64: 42},
		{Name: logging.MakeID("label"), Kind: logging.ArgString, Str: "frame"},
	}
	got := FormatMessage("rendered ${count} of ${label}", args)
	want := "rendered 42 of frame"
	if got != want {
		t.Fatalf("FormatMessage() = %q, want %q", got, want)
	}
}

func TestFormatMessageLeavesUnknownPlaceholderUntranslated(t *testing.T) {
	got := FormatMessage("value is ${missing}", nil)
	want := "value is ${missing}"
	if got != want {
		t.Fatalf("FormatMessage() = %q, want %q", got, want)
	}
}

func TestFormatMessageHandlesUnterminatedPlaceholder(t *testing.T) {
	got := FormatMessage("broken ${oops", nil)
	want := "broken ${oops"
	if got != want {
		t.Fatalf("FormatMessage() = %q, want %q", got, want)
	}
}

func TestFormatMessageNoPlaceholders(t *testing.T) {
	got := FormatMessage("plain text", nil)
	if got != "plain text" {
		t.Fatalf("FormatMessage() = %q, want unchanged input", got)
	}
}

func TestRenderArgByKind(t *testing.T) {
	cases := []struct {
		name string
		arg  logging.Argument
		want string
	}{
		{"bool", logging.Argument{Kind: logging.ArgBool, Bool: true}, "true"},
		{"int64", logging.Argument{Kind: logging.ArgInt64, I64: -7}, "-7"},
		{"uint64", logging.Argument{Kind: logging.ArgUint64, U64: 7}, "7"},
		{"duration", logging.Argument{Kind: logging.ArgDuration, Dur: 2 * time.Second}, "2s"},
		{"string", logging.Argument{Kind: logging.ArgString, Str: "hi"}, "hi"},
		{"identifier", logging.Argument{Kind: logging.ArgIdentifier, Ident: logging.MakeID("tag")}, "tag"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := renderArg(c.arg); got != c.want {
				t.Fatalf("renderArg(%+v) = %q, want %q", c.arg, got, c.want)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 5); got != "ab   " {
		t.Fatalf("padRight short = %q", got)
	}
	if got := padRight("abcdef", 3); got != "abcdef" {
		t.Fatalf("padRight longer-than-width should be unchanged, got %q", got)
	}
}

func TestMicrosSince(t *testing.T) {
	got := microsSince(1.0, 1.000123)
	if got != "123us" {
		t.Fatalf("microsSince() = %q, want %q", got, "123us")
	}
}
