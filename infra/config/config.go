package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Path is the default directory of the config files.
const Path = "infra/config"

// Load loads the json config at the given path into v.
func Load(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not load config '%s': %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("could not unmarshal config '%s': %w", path, err)
	}
	log.Info().Str("path", path).Msg("loaded config")
	return nil
}

// MustLoad loads the config for the given key out of the default config directory.
func MustLoad(key string, v interface{}) {
	if err := Load(filepath.Join(Path, fmt.Sprintf("%s.json", key)), v); err != nil {
		panic(err.Error())
	}
}
