// Command log_server ingests structured log events over AF_UNIX/TCP
// sockets or stdin, aggregates interval samples, and fans the result out
// to a text-tree renderer, InfluxDB, and/or PostgreSQL.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	f := &Flags{}
	cmd := &cobra.Command{
		Use:   "log_server",
		Short: "EAGine log ingestion and fan-out server",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolve(cmd, f)
			return run(f)
		},
	}
	bindFlags(cmd, f)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
