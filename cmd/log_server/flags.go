package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eagine-core/log-server/internal/reader"
)

// Defaults for flags whose argument is optional (spec.md §6).
const (
	defaultNetcatPort  = 34915
	defaultSocatPath   = "/tmp/eagine-text-log"
	defaultInfluxDBURL = "http://localhost:8086/write?db=eagine_log"
	defaultLibpqConn   = "postgres://localhost/eagine_log?sslmode=disable"
)

// Flags holds log_server's parsed CLI surface (spec.md §6). bindFlags sets
// the command to ignore flags it doesn't recognize, matching the spec's
// "unknown flags ignored" note.
type Flags struct {
	LocalEnabled   bool
	LocalPath      string
	NetworkEnabled bool
	NetworkAddr    string
	NetcatEnabled  bool
	NetcatAddr     string
	SocatEnabled   bool
	SocatPath      string
	Ostream        bool
	TextTree       bool
	InfluxDBURL    string
	InfluxEnabled  bool
	LibpqConn      string
	LibpqEnabled   bool
	ConfigPath     string
	SinksFile      string
}

func bindFlags(cmd *cobra.Command, f *Flags) {
	cmd.FParseErrWhitelist.UnknownFlags = true
	fs := cmd.Flags()

	fs.StringVar(&f.LocalPath, "local", reader.DefaultUnixPath, "enable AF_UNIX reader at PATH")
	fs.Lookup("local").NoOptDefVal = reader.DefaultUnixPath

	networkDefault := ":" + reader.DefaultTCPPort
	fs.StringVar(&f.NetworkAddr, "network", networkDefault, "enable TCP reader at HOST[:PORT]")
	fs.Lookup("network").NoOptDefVal = networkDefault

	netcatDefault := "0.0.0.0:" + strconv.Itoa(defaultNetcatPort)
	fs.StringVar(&f.NetcatAddr, "netcat", netcatDefault, "enable TCP text-output acceptor at ADDR")
	fs.Lookup("netcat").NoOptDefVal = netcatDefault

	fs.StringVar(&f.SocatPath, "socat", defaultSocatPath, "enable AF_UNIX text-output acceptor at PATH")
	fs.Lookup("socat").NoOptDefVal = defaultSocatPath

	fs.BoolVar(&f.Ostream, "ostream", false, "enable stdout text output")
	fs.BoolVar(&f.TextTree, "text-tree", false, "enable the text-tree sink factory")

	fs.StringVar(&f.InfluxDBURL, "influxdb", defaultInfluxDBURL, "enable InfluxDB sink factory at URL")
	fs.Lookup("influxdb").NoOptDefVal = defaultInfluxDBURL

	fs.StringVar(&f.LibpqConn, "libpq", defaultLibpqConn, "enable PostgreSQL sink factory with CONN")
	fs.Lookup("libpq").NoOptDefVal = defaultLibpqConn

	fs.StringVar(&f.ConfigPath, "config", "", "directory containing log_server.yaml")
	fs.StringVar(&f.SinksFile, "sinks", "", "YAML file declaring additional influxdb/libpq sink targets")
}

// resolve records which optional flags were actually passed (cobra fills
// this in only after Execute has parsed args) and applies the "ostream is
// the default output, text-tree is the default sink" rule from spec.md §6.
func resolve(cmd *cobra.Command, f *Flags) {
	changed := cmd.Flags().Changed
	f.LocalEnabled = changed("local")
	f.NetworkEnabled = changed("network")
	f.NetcatEnabled = changed("netcat")
	f.SocatEnabled = changed("socat")
	f.InfluxEnabled = changed("influxdb")
	f.LibpqEnabled = changed("libpq")

	if !f.Ostream && !f.NetcatEnabled && !f.SocatEnabled {
		f.Ostream = true
	}
	if !f.TextTree && !f.InfluxEnabled && !f.LibpqEnabled {
		f.TextTree = true
	}
}
