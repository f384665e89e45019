package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"slabfall.ai/internal/protocol"
)

type Tuning struct {
	// MaxPasses caps settle passes; 0 runs to the fixpoint.
	MaxPasses int `yaml:"max_passes" json:"max_passes"`
	// StrictBlankLines rejects empty input lines instead of skipping them.
	StrictBlankLines bool `yaml:"strict_blank_lines" json:"strict_blank_lines"`

	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`

	Publish PublishTuning `yaml:"publish" json:"publish"`
}

type PublishTuning struct {
	HandshakeTimeoutMs int `yaml:"handshake_timeout_ms" json:"handshake_timeout_ms"`
	WriteTimeoutMs     int `yaml:"write_timeout_ms" json:"write_timeout_ms"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: protocol.Version,
		Publish: PublishTuning{
			HandshakeTimeoutMs: 5000,
			WriteTimeoutMs:     5000,
		},
	}
}

// Load reads a tuning file. Keys missing from the file keep their defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.MaxPasses < 0 {
		return t, fmt.Errorf("tuning.yaml: max_passes must be >= 0, got %d", t.MaxPasses)
	}
	if t.ProtocolVersion != protocol.Version {
		return t, fmt.Errorf("tuning.yaml: protocol_version %q unsupported (want %q)", t.ProtocolVersion, protocol.Version)
	}
	return t, nil
}
