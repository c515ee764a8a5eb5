// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportYAML writes every stored policy to path as a YAML list. The output
// can be fed back to Load.
func (s *Store) ExportYAML(ctx context.Context, path string) (int, error) {
	policies, err := s.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("querying for export: %w", err)
	}
	data, err := yaml.Marshal(policies)
	if err != nil {
		return 0, fmt.Errorf("marshaling YAML: %w", err)
	}
	return len(policies), writeExport(path, data)
}

// ExportJSON writes every stored policy to path as an indented JSON array.
func (s *Store) ExportJSON(ctx context.Context, path string) (int, error) {
	policies, err := s.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("querying for export: %w", err)
	}
	data, err := json.MarshalIndent(policies, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshaling JSON: %w", err)
	}
	return len(policies), writeExport(path, data)
}

func writeExport(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
