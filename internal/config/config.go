// internal/config/config.go
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

type Config struct {
	Diff struct {
		ContextLines   int    `json:"context_lines"`
		InterhunkLines int    `json:"interhunk_lines"`
		SrcPrefix      string `json:"src_prefix"`
		DstPrefix      string `json:"dst_prefix"`
	} `json:"diff"`

	LogLevel string `json:"log_level"` // debug, info, warn, error
}

func Default() *Config {
	var c Config
	c.Diff.ContextLines = 3
	c.Diff.InterhunkLines = 3
	c.LogLevel = "info"
	return &c
}

// Load reads the repository config, falling back to defaults when the file
// is absent.
func Load(root string) (*Config, error) {
	file, err := os.Open(filepath.Join(root, ".drift", "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}

	return config, nil
}
