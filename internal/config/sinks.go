package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eagine-core/log-server/pkg/utils"
)

// SinkTarget describes one additional downstream sink to wire up beyond
// whatever the CLI flags name directly, letting a deployment declare a
// fleet of InfluxDB/libpq endpoints in one file instead of repeating
// --influxdb/--libpq per instance.
type SinkTarget struct {
	Kind string `yaml:"kind"` // "influxdb" or "libpq"
	DSN  string `yaml:"dsn"`  // URL (influxdb) or connection string (libpq)
}

// LoadSinkTargets reads a YAML document listing additional sink targets
// (see SinkTarget) from path. A missing file is not an error: an empty
// slice is returned, matching Load's "absence is not an error" stance.
func LoadSinkTargets(path string) ([]SinkTarget, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.Wrap(err, "read sink targets")
	}

	var doc struct {
		Sinks []SinkTarget `yaml:"sinks"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("config: parse sink targets: %w", err)
	}
	return doc.Sinks, nil
}
