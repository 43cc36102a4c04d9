package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/drakos74/fuzzy-group/internal/storage"
)

// Save saves the given json struct into the given path with the provided filename.
func Save(filePath string, fileName string, value interface{}) error {
	// check if filepath exists
	info, err := os.Stat(filePath)
	if err != nil {
		err := os.MkdirAll(filePath, os.ModePerm)
		if err != nil {
			return fmt.Errorf("could not make dir: %s: %w", filePath, err)
		}
	} else if !info.IsDir() {
		return fmt.Errorf("path given is not a directory: %s", filePath)
	}

	p := filepath.Join(filePath, fileName)
	b, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal value for '%s': %w", p, err)
	}

	if err := os.WriteFile(p, b, 0o644); err != nil {
		return fmt.Errorf("could not write file '%s': %w", p, err)
	}
	return nil
}

// Load decodes the json document at filePath/fileName into value.
// A missing document is reported as storage.NotFoundErr,
// an unreadable or malformed one as storage.CouldNotLoadErr.
func Load(filePath string, fileName string, value interface{}) error {
	p := filepath.Join(filePath, fileName)
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("no document at '%s': %w", p, storage.NotFoundErr)
	case err != nil:
		return fmt.Errorf("could not read document '%s': %s: %w", p, err.Error(), storage.CouldNotLoadErr)
	}
	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("could not decode document '%s' into %T: %s: %w", p, value, err.Error(), storage.CouldNotLoadErr)
	}
	return nil
}

// SavePath is like Save for a full file path.
func SavePath(path string, value interface{}) error {
	return Save(filepath.Dir(path), filepath.Base(path), value)
}

// LoadPath is like Load for a full file path.
func LoadPath(path string, value interface{}) error {
	return Load(filepath.Dir(path), filepath.Base(path), value)
}
