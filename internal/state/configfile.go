package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigFile is the local configuration store: one JSON document whose
// values are addressed by dotted, namespaced keys such as
// "setupProgress.lastState" or "credentials.aws".
type ConfigFile struct {
	path string
}

func NewConfigFile(path string) *ConfigFile {
	return &ConfigFile{path: path}
}

// Path returns the location of the document on disk.
func (f *ConfigFile) Path() string {
	return f.path
}

// Get decodes the value stored under key into out. It reports false when
// the key is absent.
func (f *ConfigFile) Get(key string, out any) (bool, error) {
	doc, err := f.read()
	if err != nil {
		return false, err
	}

	node, ok := lookup(doc, splitKey(key))
	if !ok || node == nil {
		return false, nil
	}

	raw, err := json.Marshal(node)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Set replaces the value under key.
func (f *ConfigFile) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	var node any
	if err := json.Unmarshal(raw, &node); err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	doc, err := f.read()
	if err != nil {
		return err
	}

	parts := splitKey(key)
	parent := doc
	for _, p := range parts[:len(parts)-1] {
		child, ok := parent[p].(map[string]any)
		if !ok {
			child = map[string]any{}
			parent[p] = child
		}
		parent = child
	}
	parent[parts[len(parts)-1]] = node

	return f.write(doc)
}

// Delete removes key and everything beneath it. Deleting a missing key is
// not an error.
func (f *ConfigFile) Delete(key string) error {
	doc, err := f.read()
	if err != nil {
		return err
	}

	parts := splitKey(key)
	parent, ok := lookup(doc, parts[:len(parts)-1])
	if !ok {
		return nil
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return nil
	}
	if _, exists := m[parts[len(parts)-1]]; !exists {
		return nil
	}
	delete(m, parts[len(parts)-1])

	return f.write(doc)
}

func (f *ConfigFile) read() (map[string]any, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store %s: %w", f.path, err)
	}

	plain, err := Decrypt(raw)
	if err != nil {
		return nil, err
	}

	doc := map[string]any{}
	if len(strings.TrimSpace(string(plain))) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(plain, &doc); err != nil {
		return nil, fmt.Errorf("store %s is not valid JSON: %w", f.path, err)
	}
	return doc, nil
}

// write replaces the document atomically so an interrupted process never
// leaves a truncated store behind.
func (f *ConfigFile) write(doc map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	content, err = Encrypt(append(content, '\n'))
	if err != nil {
		return fmt.Errorf("failed to encrypt store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set store permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace store %s: %w", f.path, err)
	}
	return nil
}

func splitKey(key string) []string {
	return strings.Split(key, ".")
}

func lookup(doc map[string]any, parts []string) (any, bool) {
	var node any = doc
	for _, p := range parts {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return node, true
}
