package export

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/FranksOps/scholar/internal/storage"
)

// WriteJSON writes records as an indented JSON array.
func WriteJSON(path string, records []storage.PaperRecord) error {
	return writeFile(path, records, EncodeJSON)
}

func EncodeJSON(w io.Writer, records []storage.PaperRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("export: json: %w", err)
	}
	return nil
}

// WriteYAML writes records as a YAML sequence.
func WriteYAML(path string, records []storage.PaperRecord) error {
	return writeFile(path, records, EncodeYAML)
}

func EncodeYAML(w io.Writer, records []storage.PaperRecord) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("export: yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("export: yaml: %w", err)
	}
	return nil
}
