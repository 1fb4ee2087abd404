package service

import (
	"context"

	"go.uber.org/zap"

	"market-service/internal/store"
	"market-service/internal/util"
)

// AdminService exposes generic CRUD and cascading deletes over the
// registered entities.
type AdminService struct {
	store    *store.Store
	rowLimit int
	logger   *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(st *store.Store, rowLimit int) *AdminService {
	return &AdminService{
		store:    st,
		rowLimit: rowLimit,
		logger:   util.GetLogger(),
	}
}

// Entities lists the admin-visible entity descriptors
func (s *AdminService) Entities() []store.EntityDescriptor {
	return store.AdminEntities()
}

// List retrieves rows of one entity up to the configured limit
func (s *AdminService) List(ctx context.Context, entity string) ([]map[string]any, error) {
	desc, err := store.LookupEntity(entity)
	if err != nil {
		return nil, err
	}
	return s.store.AdminList(ctx, desc, s.rowLimit)
}

// Create inserts one row of an entity from a raw payload
func (s *AdminService) Create(ctx context.Context, entity string, payload map[string]any) error {
	desc, err := store.LookupEntity(entity)
	if err != nil {
		return err
	}
	return s.store.AdminCreate(ctx, desc, payload)
}

// Update edits the non-key columns of one row
func (s *AdminService) Update(ctx context.Context, entity, id string, payload map[string]any) error {
	desc, err := store.LookupEntity(entity)
	if err != nil {
		return err
	}
	key, err := store.ParseIdentifier(desc, id)
	if err != nil {
		return err
	}
	return s.store.AdminUpdate(ctx, desc, key, payload)
}

// Delete removes one row and every row depending on it
func (s *AdminService) Delete(ctx context.Context, entity, id string) (int64, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.Delete")
	defer span.End()

	desc, err := store.LookupEntity(entity)
	if err != nil {
		return 0, err
	}
	key, err := store.ParseIdentifier(desc, id)
	if err != nil {
		return 0, err
	}

	removed, err := s.store.AdminCascadeDelete(ctx, desc, key)
	if err != nil {
		return 0, err
	}

	util.CascadeDeletedRowsTotal.WithLabelValues(string(desc.Kind)).Add(float64(removed))
	s.logger.Info("Cascade delete completed",
		zap.String("entity", string(desc.Kind)),
		zap.String("id", id),
		zap.Int64("rows_removed", removed))
	return removed, nil
}
