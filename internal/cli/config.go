package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultConfigFile is the config file looked up in the working directory
// when --config is not given.
const DefaultConfigFile = "beaconctl.toml"

// Config is the optional beaconctl.toml file. Every field maps to a global
// flag; explicit flags override the file.
type Config struct {
	// DB is the governance database path.
	DB string `toml:"db"`

	// Format is the default output format, "text" or "json".
	Format string `toml:"format"`
}

// LoadConfig reads the config file at path, or the default file when path is
// empty. A missing default file is not an error; a missing explicit file is.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	if cfg.Format != "" && !isValidFormat(cfg.Format) {
		return nil, fmt.Errorf("load config %s: invalid format %q", path, cfg.Format)
	}
	return &cfg, nil
}
