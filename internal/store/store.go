package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"market-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store is the sqlx-backed Ledger implementation. All quantity and status
// mutations run through InTx so row locks cover the read that justified the
// write.
type Store struct {
	db *sqlx.DB
}

var _ models.Ledger = (*Store)(nil)

// NewStore connects to the database and configures the pool
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx exposes the transaction-scoped statements of the ledger.
type Tx struct {
	tx *sqlx.Tx
}

var _ models.LedgerTx = (*Tx)(nil)

// InTx runs fn inside one transaction, committing only if fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(tx models.LedgerTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapStoreErr(err))
	}
	return nil
}

// mapStoreErr folds driver-level constraint violations into the business
// error taxonomy; anything else passes through untouched.
func mapStoreErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", models.ErrConflict, pqErr.Constraint)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", models.ErrConflict, pqErr.Constraint)
		}
	}
	return err
}

func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

// CreateLocation inserts a delivery address and fills in its generated ID
func (s *Store) CreateLocation(ctx context.Context, loc *models.Location) error {
	query := `
		INSERT INTO locations (continent, country, state, city, street)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING location_id`

	err := s.db.GetContext(ctx, &loc.ID, query,
		loc.Continent, loc.Country, loc.State, loc.City, loc.Street)
	if err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

// GetLocation retrieves a location by ID
func (s *Store) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	var loc models.Location
	err := s.db.GetContext(ctx, &loc, "SELECT * FROM locations WHERE location_id = $1", id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &loc, nil
}

// GetLocation retrieves a location inside a transaction
func (t *Tx) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	var loc models.Location
	err := t.tx.GetContext(ctx, &loc, "SELECT * FROM locations WHERE location_id = $1", id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &loc, nil
}

// GetFarm retrieves a farm by ID
func (s *Store) GetFarm(ctx context.Context, id int64) (*models.Farm, error) {
	var farm models.Farm
	err := s.db.GetContext(ctx, &farm, "SELECT * FROM farms WHERE farm_id = $1", id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &farm, nil
}
