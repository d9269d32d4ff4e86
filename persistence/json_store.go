package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"flower-garden/models"
)

// JSONStore keeps the harvest ledger in a local JSON file
type JSONStore struct {
	filePath string
	mutex    sync.RWMutex
	data     *JSONData
}

// JSONData represents the structure of the JSON file
type JSONData struct {
	Harvests map[string]*models.HarvestRecord `json:"harvests"`
}

// NewJSONStore opens the ledger at filePath, creating the file if needed
func NewJSONStore(filePath string) (*JSONStore, error) {
	store := &JSONStore{
		filePath: filePath,
		data: &JSONData{
			Harvests: make(map[string]*models.HarvestRecord),
		},
	}

	if _, err := os.Stat(filePath); err == nil {
		if err := store.loadFromFile(); err != nil {
			return nil, fmt.Errorf("failed to load JSON store: %w", err)
		}
	} else {
		store.mutex.Lock()
		err := store.saveToFile()
		store.mutex.Unlock()
		if err != nil {
			return nil, fmt.Errorf("failed to create JSON store file: %w", err)
		}
	}

	return store, nil
}

func (js *JSONStore) loadFromFile() error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	file, err := os.ReadFile(js.filePath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(file, js.data); err != nil {
		return err
	}
	if js.data.Harvests == nil {
		js.data.Harvests = make(map[string]*models.HarvestRecord)
	}
	return nil
}

// saveToFile writes the ledger; the caller holds the write lock
func (js *JSONStore) saveToFile() error {
	data, err := json.MarshalIndent(js.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := js.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, js.filePath)
}

// SaveHarvest adds or replaces a record
func (js *JSONStore) SaveHarvest(record *models.HarvestRecord) error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	stored := *record
	js.data.Harvests[record.ID] = &stored
	if err := js.saveToFile(); err != nil {
		return fmt.Errorf("failed to save harvest: %w", err)
	}
	return nil
}

// LoadHarvest loads a record by ID
func (js *JSONStore) LoadHarvest(id string) (*models.HarvestRecord, error) {
	js.mutex.RLock()
	defer js.mutex.RUnlock()

	record, exists := js.data.Harvests[id]
	if !exists {
		return nil, fmt.Errorf("harvest %s: %w", id, ErrNotFound)
	}
	out := *record
	return &out, nil
}

// ListHarvests returns up to limit records, newest first. A limit <= 0
// returns everything.
func (js *JSONStore) ListHarvests(limit int) ([]*models.HarvestRecord, error) {
	js.mutex.RLock()
	defer js.mutex.RUnlock()

	records := make([]*models.HarvestRecord, 0, len(js.data.Harvests))
	for _, r := range js.data.Harvests {
		out := *r
		records = append(records, &out)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].HarvestedAt.Equal(records[j].HarvestedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].HarvestedAt.After(records[j].HarvestedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// CountHarvests returns the number of stored records
func (js *JSONStore) CountHarvests() (int, error) {
	js.mutex.RLock()
	defer js.mutex.RUnlock()
	return len(js.data.Harvests), nil
}

// Close closes the store (no-op for JSON store)
func (js *JSONStore) Close() error {
	return nil
}
