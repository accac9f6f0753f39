// Package prefs reads and writes the keyword dictionary as a YAML file so it
// can be kept under version control or moved between ledgers.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jask/keyledger/internal/categorize"
	"github.com/jask/keyledger/internal/database/repository"
)

const dictionaryFile = "dictionary.yaml"

type dictionaryDoc struct {
	Categories map[string][]string `yaml:"categories"`
}

// DefaultPath is where the dictionary is exported when no file is given.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "keyledger", dictionaryFile), nil
}

// SaveDictionary writes d to path, replacing any previous file atomically.
func SaveDictionary(path string, d categorize.Dictionary) error {
	doc := dictionaryDoc{Categories: make(map[string][]string)}
	for _, category := range d.Categories() {
		doc.Categories[category] = d.Keywords(category)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode dictionary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadDictionary reads a dictionary file into entries sorted by category
// then keyword. Keywords are returned as written; normalization happens
// when they are added to the store. A missing file yields no entries.
func LoadDictionary(path string) ([]repository.Keyword, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var doc dictionaryDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode dictionary %s: %w", path, err)
	}

	var out []repository.Keyword
	for category, keywords := range doc.Categories {
		for _, kw := range keywords {
			out = append(out, repository.Keyword{Category: category, Keyword: kw})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out, nil
}
