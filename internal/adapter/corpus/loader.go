// Package corpus loads the knowledge base and policy documents from disk for
// indexing.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"sentinel-bfsi/internal/domain/entity"
)

// Record is one knowledge-base row in instruction/input/output form. Files
// may be YAML or JSON; yaml.v3 reads both.
type Record struct {
	ID          string `yaml:"id"`
	Instruction string `yaml:"instruction"`
	Input       string `yaml:"input"`
	Output      string `yaml:"output"`
	Category    string `yaml:"category"`
	UpdatedAt   string `yaml:"updated_at"`
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// Entry converts the record; Input is what gets embedded, Output is the
// canonical answer.
func (r Record) Entry() (entity.KnowledgeEntry, error) {
	e := entity.KnowledgeEntry{
		ID:          r.ID,
		Answer:      strings.TrimSpace(r.Output),
		Instruction: strings.TrimSpace(r.Instruction),
		Category:    strings.TrimSpace(r.Category),
	}
	if r.UpdatedAt != "" {
		var err error
		for _, layout := range timeLayouts {
			var t time.Time
			if t, err = time.Parse(layout, r.UpdatedAt); err == nil {
				e.UpdatedAt = t.UTC()
				break
			}
		}
		if err != nil {
			return entity.KnowledgeEntry{}, eris.Wrapf(err, "corpus: entry %s updated_at", r.ID)
		}
	}
	return e, nil
}

// LoadKnowledgeBase reads every *.yaml, *.yml and *.json file in dir. Rows
// without input or output are skipped; rows without an id get
// "<file>#<index>".
func LoadKnowledgeBase(dir string) ([]Record, error) {
	files, err := listFiles(dir, ".yaml", ".yml", ".json")
	if err != nil {
		return nil, err
	}
	var out []Record
	seen := make(map[string]string)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "corpus: read %s", path)
		}
		var rows []Record
		if err := yaml.Unmarshal(data, &rows); err != nil {
			return nil, eris.Wrapf(err, "corpus: parse %s", path)
		}
		for i, r := range rows {
			if strings.TrimSpace(r.Input) == "" || strings.TrimSpace(r.Output) == "" {
				continue
			}
			if r.ID == "" {
				r.ID = fmt.Sprintf("%s#%d", filepath.Base(path), i)
			}
			if prev, dup := seen[r.ID]; dup {
				return nil, eris.Errorf("corpus: duplicate id %s in %s (first seen in %s)", r.ID, path, prev)
			}
			seen[r.ID] = path
			out = append(out, r)
		}
	}
	return out, nil
}

// Document is one policy file.
type Document struct {
	Source string
	Text   string
}

// LoadPolicyDocuments reads *.md and *.txt files in dir.
func LoadPolicyDocuments(dir string) ([]Document, error) {
	files, err := listFiles(dir, ".md", ".txt")
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "corpus: read %s", path)
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			docs = append(docs, Document{Source: filepath.Base(path), Text: text})
		}
	}
	return docs, nil
}

func listFiles(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: read dir %s", dir)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range exts {
			if ext == want {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
