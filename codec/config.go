package codec

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config controls optional encoder behaviors. The zero value is the plain
// wire contract: repeated fields unpacked unless the schema says packed,
// lowerCamel JSON names, enum names in JSON, defaults omitted from JSON.
type Config struct {
	// PackRepeated packs every repeated scalar field on encode, regardless of
	// the field's packed option. Decoding accepts both forms either way.
	PackRepeated bool `toml:"pack_repeated"`

	// JSONOriginalNames emits the declared field names instead of lowerCamel
	// JSON names.
	JSONOriginalNames bool `toml:"json_original_names"`

	// JSONEnumNumbers emits enum values as numbers.
	JSONEnumNumbers bool `toml:"json_enum_numbers"`

	// JSONEmitDefaults emits fields holding their default value.
	JSONEmitDefaults bool `toml:"json_emit_defaults"`
}

const (
	EnvPackRepeated      = "PBKIT_PACK_REPEATED"
	EnvJSONOriginalNames = "PBKIT_JSON_ORIGINAL_NAMES"
	EnvJSONEnumNumbers   = "PBKIT_JSON_ENUM_NUMBERS"
	EnvJSONEmitDefaults  = "PBKIT_JSON_EMIT_DEFAULTS"
)

// DefaultConfig returns the zero Config.
func DefaultConfig() Config {
	return Config{}
}

// LoadConfig reads a TOML file. Keys missing from the file keep their
// DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load codec config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load codec config: unknown key %q", undecoded[0].String())
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from PBKIT_* variables. "1" and "true" enable an
// option, "0" and "false" disable it, anything else leaves it unchanged.
func (cfg Config) ApplyEnv() Config {
	envToggle(EnvPackRepeated, &cfg.PackRepeated)
	envToggle(EnvJSONOriginalNames, &cfg.JSONOriginalNames)
	envToggle(EnvJSONEnumNumbers, &cfg.JSONEnumNumbers)
	envToggle(EnvJSONEmitDefaults, &cfg.JSONEmitDefaults)
	return cfg
}

func envToggle(name string, dst *bool) {
	switch os.Getenv(name) {
	case "1", "true":
		*dst = true
	case "0", "false":
		*dst = false
	}
}
