// Package compositecfg loads compositing defaults from an optional TOML
// file, following the same decode-into-struct approach NoiseTorch uses for
// its own settings file.
package compositecfg

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds compositing defaults that a TOML file can override. Fields
// left at their zero value are filled in by Defaults before any CLI flag is
// applied on top.
type Config struct {
	MergeThreshold float64
	Window         int
	Chunk          int
	PNGBitDepth    int
	DeepOutput     bool
}

// Defaults returns the built-in configuration used when no file is loaded
// and no CLI flag overrides a field.
func Defaults() Config {
	return Config{
		MergeThreshold: 0,
		Window:         32,
		Chunk:          16,
		PNGBitDepth:    8,
		DeepOutput:     false,
	}
}

// Load reads a TOML config file at path, starting from Defaults so any
// field the file omits keeps its built-in value.
func Load(path string) (Config, error) {
	conf := Defaults()
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return Config{}, fmt.Errorf("compositecfg: %s: %w", path, err)
	}
	return conf, nil
}
