package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ParsePack decodes a pack from YAML or JSON. JSON is a subset of YAML, so
// both go through the YAML decoder; unknown fields are rejected.
func ParsePack(data []byte) (*Pack, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Pack
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode content pack: %w", err)
	}
	return &p, nil
}

// LoadPack reads and parses a pack file.
func LoadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content pack: %w", err)
	}
	p, err := ParsePack(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return p, nil
}

// LoadGraph reads a pack file and builds its graph.
func LoadGraph(path string) (*Graph, error) {
	p, err := LoadPack(path)
	if err != nil {
		return nil, err
	}
	return NewGraph(p)
}

// EncodePack returns the canonical JSON form stored alongside attempts.
func EncodePack(p *Pack) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode content pack: %w", err)
	}
	return b, nil
}
