package persistence

import (
	"fmt"

	"flower-garden/config"
)

// Open creates the storage backend selected by cfg. StorageNone yields a
// nil Storage.
func Open(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case config.StorageNone:
		return nil, nil
	case config.StoragePostgres:
		store, err := NewPostgresStore(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageJSON:
		store, err := NewJSONStore(cfg.File)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
