package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"flower-garden/models"
	"flower-garden/observability"
	"flower-garden/persistence"
)

const (
	harvestQueueSize = 64
	recentHarvests   = 50
)

// HarvestService records collected flowers in the harvest ledger. Records
// are queued by HandleEvent and written by Run.
type HarvestService struct {
	db      persistence.Storage
	queue   chan *models.HarvestRecord
	recent  []*models.HarvestRecord
	total   int
	logger  zerolog.Logger
	metrics *observability.GardenMetrics
	mutex   sync.RWMutex
}

// NewHarvestService creates a harvest service. db may be nil, in which
// case harvests are only kept in memory.
func NewHarvestService(db persistence.Storage, logger zerolog.Logger, metrics *observability.GardenMetrics) *HarvestService {
	hs := &HarvestService{
		db:      db,
		queue:   make(chan *models.HarvestRecord, harvestQueueSize),
		recent:  make([]*models.HarvestRecord, 0, recentHarvests),
		logger:  logger,
		metrics: metrics,
	}
	hs.loadTotalFromDB()
	return hs
}

func (hs *HarvestService) loadTotalFromDB() {
	if hs.db == nil {
		return
	}
	n, err := hs.db.CountHarvests()
	if err != nil {
		hs.logger.Warn().Err(err).Msg("failed to count stored harvests")
		return
	}
	hs.total = n
}

// HandleEvent is a garden Listener that queues a record for every
// collected flower. It never blocks; records are dropped if the queue is full.
func (hs *HarvestService) HandleEvent(ev models.GardenEvent) {
	if ev.Type != models.EventCollected {
		return
	}
	record := &models.HarvestRecord{
		ID:          uuid.NewString(),
		X:           ev.Position.X,
		Y:           ev.Position.Y,
		Symbol:      ev.Symbol,
		PlantedAt:   ev.PlantedAt,
		HarvestedAt: ev.At,
	}

	hs.mutex.Lock()
	hs.total++
	if len(hs.recent) == recentHarvests {
		copy(hs.recent, hs.recent[1:])
		hs.recent = hs.recent[:recentHarvests-1]
	}
	hs.recent = append(hs.recent, record)
	hs.mutex.Unlock()

	if hs.db == nil {
		return
	}
	select {
	case hs.queue <- record:
	default:
		hs.logger.Warn().Str("id", record.ID).Msg("harvest queue full, record dropped")
		hs.recordError()
	}
}

// Run writes queued records until ctx is done, then flushes what is left
func (hs *HarvestService) Run(ctx context.Context) {
	for {
		select {
		case record := <-hs.queue:
			hs.save(record)
		case <-ctx.Done():
			for {
				select {
				case record := <-hs.queue:
					hs.save(record)
				default:
					return
				}
			}
		}
	}
}

func (hs *HarvestService) save(record *models.HarvestRecord) {
	if err := hs.db.SaveHarvest(record); err != nil {
		hs.logger.Error().Err(err).Str("id", record.ID).Msg("failed to store harvest")
		hs.recordError()
		return
	}
	hs.logger.Debug().Str("id", record.ID).Int("x", record.X).Int("y", record.Y).Msg("harvest stored")
}

func (hs *HarvestService) recordError() {
	if hs.metrics != nil {
		hs.metrics.LedgerErrors.Inc()
	}
}

// Total returns the number of harvests, including those stored by earlier runs
func (hs *HarvestService) Total() int {
	hs.mutex.RLock()
	defer hs.mutex.RUnlock()
	return hs.total
}

// Recent returns up to limit harvests from this run, newest first
func (hs *HarvestService) Recent(limit int) []models.HarvestRecord {
	hs.mutex.RLock()
	defer hs.mutex.RUnlock()

	if limit <= 0 || limit > len(hs.recent) {
		limit = len(hs.recent)
	}
	out := make([]models.HarvestRecord, 0, limit)
	for i := len(hs.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *hs.recent[i])
	}
	return out
}
