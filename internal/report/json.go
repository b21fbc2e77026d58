// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes the result envelope: the JSON report, an optional
// CSL-YAML bibliography and the console summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/paper-crawler/pkg/types"
)

// EncodeJSON writes env as indented JSON to w.
func EncodeJSON(w io.Writer, env types.ResultEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(env)
}

// WriteJSON saves env to path, creating parent directories. The file is
// written to a temporary sibling and renamed into place, so an existing
// report is never left half-written.
func WriteJSON(path string, env types.ResultEnvelope) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := EncodeJSON(tmp, env); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting report permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// ReadJSON loads a report previously saved with WriteJSON.
func ReadJSON(path string) (types.ResultEnvelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ResultEnvelope{}, fmt.Errorf("reading report: %w", err)
	}
	var env types.ResultEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return types.ResultEnvelope{}, fmt.Errorf("parsing report: %w", err)
	}
	return env, nil
}
