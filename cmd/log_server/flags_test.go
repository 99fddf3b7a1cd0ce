package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func newTestCmd(f *Flags) *cobra.Command {
	cmd := &cobra.Command{Use: "log_server", RunE: func(*cobra.Command, []string) error { return nil }}
	bindFlags(cmd, f)
	return cmd
}

func TestResolveDefaultsToOstreamAndTextTree(t *testing.T) {
	f := &Flags{}
	cmd := newTestCmd(f)
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	resolve(cmd, f)

	if !f.Ostream {
		t.Fatalf("Ostream = false, want true when no output flag is given")
	}
	if !f.TextTree {
		t.Fatalf("TextTree = false, want true when no sink flag is given")
	}
	if f.NetcatEnabled || f.SocatEnabled || f.InfluxEnabled || f.LibpqEnabled {
		t.Fatalf("unexpected flags enabled by default: %+v", f)
	}
}

func TestResolveExplicitSinkSuppressesDefault(t *testing.T) {
	f := &Flags{}
	cmd := newTestCmd(f)
	if err := cmd.ParseFlags([]string{"--influxdb"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	resolve(cmd, f)

	if f.TextTree {
		t.Fatalf("TextTree = true, want false when --influxdb was given explicitly")
	}
	if !f.InfluxEnabled {
		t.Fatalf("InfluxEnabled = false, want true")
	}
	if f.InfluxDBURL != defaultInfluxDBURL {
		t.Fatalf("InfluxDBURL = %q, want the no-argument default %q", f.InfluxDBURL, defaultInfluxDBURL)
	}
}

func TestOptionalFlagArgumentOverridesDefault(t *testing.T) {
	f := &Flags{}
	cmd := newTestCmd(f)
	if err := cmd.ParseFlags([]string{"--libpq=postgres://example/custom"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	resolve(cmd, f)

	if f.LibpqConn != "postgres://example/custom" {
		t.Fatalf("LibpqConn = %q, want the explicit value", f.LibpqConn)
	}
	if !f.LibpqEnabled {
		t.Fatalf("LibpqEnabled = false, want true")
	}
}

func TestLocalAndNetworkCanBothBeEnabled(t *testing.T) {
	f := &Flags{}
	cmd := newTestCmd(f)
	if err := cmd.ParseFlags([]string{"--local", "--network"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	resolve(cmd, f)

	if !f.LocalEnabled || !f.NetworkEnabled {
		t.Fatalf("expected both readers enabled, got local=%v network=%v", f.LocalEnabled, f.NetworkEnabled)
	}
}
