// Package manifest decodes annotation manifests: the per-source-unit
// declaration records produced by the annotation collector. The generator
// never scans host source itself; manifests are its only input.
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Member is a sub-tagged function attached to a record declaration.
type Member struct {
	Tag       string `yaml:"tag"` // get | set | method | method_mut | func
	Signature string `yaml:"signature"`
	Doc       string `yaml:"doc"`
	Line      int    `yaml:"line"`
}

// Record is one annotated declaration as the collector extracted it.
type Record struct {
	Kind      string   `yaml:"kind"` // func | record | enum | module
	Name      string   `yaml:"name"`
	Signature string   `yaml:"signature"` // funcs only
	Doc       string   `yaml:"doc"`
	Line      int      `yaml:"line"`
	Rename    string   `yaml:"rename"` // explicit export-name override
	Main      bool     `yaml:"main"`   // modules only
	Members   []Member `yaml:"members"`
	Variants  []string `yaml:"variants"` // "Name" or "Name = N"
	Includes  []string `yaml:"includes"`
	Decls     []Record `yaml:"decls"` // module body, source order
}

// File is the decoded manifest for one scanned source unit.
type File struct {
	Unit  string   `yaml:"unit"`
	Decls []Record `yaml:"decls"`
}

// Load decodes a single manifest file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return Decode(path, data)
}

// Decode decodes manifest bytes. The path is only used for error text and
// as the unit fallback when the manifest does not name one.
func Decode(path string, data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if f.Unit == "" {
		f.Unit = filepath.Base(path)
	}
	return &f, nil
}

// Discover returns the manifest paths under root in lexical order. A file
// root is returned as-is. Lexical order keeps downstream merging, and
// therefore output, deterministic.
func Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat input %s: %w", root, err)
	}

	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".yaml") || strings.HasSuffix(d.Name(), ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk input %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}
