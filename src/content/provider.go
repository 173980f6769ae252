package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"option-guide/src/helpers"
	"option-guide/src/logger"
	"option-guide/src/models"
)

// FileProvider serves the teaching document from a JSON file. The parsed
// document is cached and re-read when the file's modification time changes.
type FileProvider struct {
	Path   string
	Logger *logger.Logger

	mu      sync.Mutex
	doc     *models.MTeachingData
	modTime time.Time
}

// -----------------------------------------------------------------------------

func NewFileProvider(path string, l *logger.Logger) *FileProvider {
	if l == nil {
		l = logger.Nop()
	}
	return &FileProvider{Path: path, Logger: l}
}

// -----------------------------------------------------------------------------

// Load returns the current document. Missing or malformed files are errors;
// callers decide how to present the empty state.
func (p *FileProvider) Load() (*models.MTeachingData, error) {
	info, err := os.Stat(p.Path)
	if err != nil {
		return nil, helpers.NewDataSourceError("stat content file", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc != nil && info.ModTime().Equal(p.modTime) {
		return p.doc, nil
	}
	return p.reloadLocked(info.ModTime())
}

// Reload forces a re-read regardless of the cached modification time.
func (p *FileProvider) Reload() (*models.MTeachingData, error) {
	info, err := os.Stat(p.Path)
	if err != nil {
		return nil, helpers.NewDataSourceError("stat content file", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloadLocked(info.ModTime())
}

func (p *FileProvider) reloadLocked(modTime time.Time) (*models.MTeachingData, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, helpers.NewDataSourceError("read content file", err)
	}
	doc, err := Parse(data)
	if err != nil {
		// drop the cache so a broken file is never masked by a stale copy
		p.doc = nil
		p.modTime = time.Time{}
		return nil, err
	}
	p.doc = doc
	p.modTime = modTime
	p.Logger.Info("Loaded content %s: %d tabs", p.Path, len(doc.Tabs))
	return doc, nil
}

// -----------------------------------------------------------------------------

// Parse decodes and validates a teaching document.
func Parse(data []byte) (*models.MTeachingData, error) {
	var raw struct {
		Meta *models.MContentMeta `json:"meta"`
		Tabs *[]models.MTab       `json:"tabs"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, helpers.NewValidationError("content is not valid JSON: %v", err)
	}
	if raw.Tabs == nil {
		return nil, helpers.NewValidationError("content has no tabs array")
	}

	doc := &models.MTeachingData{Tabs: *raw.Tabs}
	if raw.Meta != nil {
		doc.Meta = *raw.Meta
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks the structural rules the handlers rely on.
func Validate(doc *models.MTeachingData) error {
	seen := make(map[string]bool, len(doc.Tabs))
	for i, tab := range doc.Tabs {
		if tab.ID == "" {
			return helpers.NewValidationError("tab %d has no id", i)
		}
		if seen[tab.ID] {
			return helpers.NewValidationError("duplicate tab id '%s'", tab.ID)
		}
		seen[tab.ID] = true
		for j, s := range tab.Strategies {
			if s.Name == "" {
				return helpers.NewValidationError("tab '%s' strategy %d has no name", tab.ID, j)
			}
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// EmptyDocument is the loading state served when no valid content exists.
// It encodes as {"meta":{},"tabs":[]}.
func EmptyDocument() *models.MTeachingData {
	return &models.MTeachingData{Tabs: []models.MTab{}}
}

// FindTab returns the tab with the given id.
func FindTab(doc *models.MTeachingData, id string) (*models.MTab, error) {
	if doc == nil {
		return nil, fmt.Errorf("no content loaded")
	}
	for i := range doc.Tabs {
		if doc.Tabs[i].ID == id {
			return &doc.Tabs[i], nil
		}
	}
	return nil, fmt.Errorf("tab '%s' not found", id)
}
