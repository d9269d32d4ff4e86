package persistence

import (
	"errors"

	"flower-garden/models"
)

// ErrNotFound is returned when a harvest record does not exist
var ErrNotFound = errors.New("harvest not found")

// Storage defines the interface for the harvest ledger
type Storage interface {
	SaveHarvest(record *models.HarvestRecord) error
	LoadHarvest(id string) (*models.HarvestRecord, error)
	ListHarvests(limit int) ([]*models.HarvestRecord, error)
	CountHarvests() (int, error)
	Close() error
}
