package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"

	"flower-garden/models"
)

// PostgresStore keeps the harvest ledger in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to the database and creates the schema
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (dm *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS harvests (
		id TEXT PRIMARY KEY,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		planted_at TIMESTAMP WITH TIME ZONE NOT NULL,
		harvested_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS harvests_harvested_at_idx ON harvests (harvested_at DESC);
	`

	_, err := dm.db.Exec(schema)
	return err
}

// SaveHarvest adds or replaces a record
func (dm *PostgresStore) SaveHarvest(record *models.HarvestRecord) error {
	query := `
	INSERT INTO harvests (id, x, y, symbol, planted_at, harvested_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id)
	DO UPDATE SET
		x = $2, y = $3, symbol = $4, planted_at = $5, harvested_at = $6
	`

	_, err := dm.db.Exec(query,
		record.ID, record.X, record.Y, record.Symbol,
		record.PlantedAt, record.HarvestedAt)
	if err != nil {
		return fmt.Errorf("failed to save harvest: %w", err)
	}
	return nil
}

// LoadHarvest loads a record by ID
func (dm *PostgresStore) LoadHarvest(id string) (*models.HarvestRecord, error) {
	query := `SELECT id, x, y, symbol, planted_at, harvested_at FROM harvests WHERE id = $1`

	var record models.HarvestRecord
	err := dm.db.QueryRow(query, id).Scan(
		&record.ID, &record.X, &record.Y, &record.Symbol,
		&record.PlantedAt, &record.HarvestedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("harvest %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load harvest: %w", err)
	}
	return &record, nil
}

// ListHarvests returns up to limit records, newest first. A limit <= 0
// returns everything.
func (dm *PostgresStore) ListHarvests(limit int) ([]*models.HarvestRecord, error) {
	query := `SELECT id, x, y, symbol, planted_at, harvested_at FROM harvests ORDER BY harvested_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := dm.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list harvests: %w", err)
	}
	defer rows.Close()

	records := make([]*models.HarvestRecord, 0)
	for rows.Next() {
		var record models.HarvestRecord
		if err := rows.Scan(
			&record.ID, &record.X, &record.Y, &record.Symbol,
			&record.PlantedAt, &record.HarvestedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan harvest: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list harvests: %w", err)
	}
	return records, nil
}

// CountHarvests returns the number of stored records
func (dm *PostgresStore) CountHarvests() (int, error) {
	var n int
	if err := dm.db.QueryRow(`SELECT COUNT(*) FROM harvests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count harvests: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (dm *PostgresStore) Close() error {
	log.Info().Msg("closing database connection")
	return dm.db.Close()
}
