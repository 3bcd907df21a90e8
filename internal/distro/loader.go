package distro

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/grokify/forwardport/pkg/model"
)

// CatalogFile is the YAML layout of a release catalog.
//
//	releases:
//	  - version: "24.04"
//	    codename: noble
//	skip:
//	  - "24.10"
type CatalogFile struct {
	Releases []CatalogEntry `yaml:"releases"`
	Skip     []string       `yaml:"skip,omitempty"`
}

// CatalogEntry is one release in a CatalogFile.
type CatalogEntry struct {
	Version  string `yaml:"version"`
	Codename string `yaml:"codename"`
}

// LoadCatalogFromFile loads a release catalog from a YAML file.
func LoadCatalogFromFile(path string) (*Catalog, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read release catalog: %w", err)
	}

	return LoadCatalogFromBytes(data)
}

// LoadCatalogFromBytes loads a release catalog from YAML bytes.
func LoadCatalogFromBytes(data []byte) (*Catalog, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse release catalog: %w", err)
	}

	if len(file.Releases) == 0 {
		return nil, fmt.Errorf("release catalog lists no releases")
	}

	releases := make([]model.Release, 0, len(file.Releases))
	known := make(map[string]bool, len(file.Releases))
	codenames := make(map[string]string, len(file.Releases))
	for _, e := range file.Releases {
		r, err := model.NewRelease(e.Version, e.Codename)
		if err != nil {
			return nil, fmt.Errorf("release catalog: %w", err)
		}
		if known[r.Version] {
			return nil, fmt.Errorf("release catalog: duplicate version %s", r.Version)
		}
		if other, ok := codenames[r.Codename]; ok {
			return nil, fmt.Errorf("release catalog: codename %s used by %s and %s", r.Codename, other, r.Version)
		}
		known[r.Version] = true
		codenames[r.Codename] = r.Version
		releases = append(releases, r)
	}

	for _, v := range file.Skip {
		if !known[v] {
			return nil, fmt.Errorf("release catalog: skipped version %s is not listed", v)
		}
	}

	return NewCatalog(releases, file.Skip...), nil
}

// SaveCatalogToFile writes the catalog as YAML.
func SaveCatalogToFile(c *Catalog, path string) error {
	file := CatalogFile{}
	for _, r := range c.Releases() {
		file.Releases = append(file.Releases, CatalogEntry{Version: r.Version, Codename: r.Codename})
	}
	for _, r := range c.SkipList() {
		file.Skip = append(file.Skip, r.Version)
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal release catalog: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write release catalog: %w", err)
	}

	return nil
}
