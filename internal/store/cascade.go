package store

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"market-service/internal/models"
)

// EntityKind names one of the relations the admin console may touch.
type EntityKind string

const (
	EntityClients       EntityKind = "clients"
	EntityFarms         EntityKind = "farms"
	EntityLocations     EntityKind = "locations"
	EntityProducts      EntityKind = "products"
	EntityInventory     EntityKind = "inventory"
	EntityOrders        EntityKind = "orders"
	EntitySubscriptions EntityKind = "subscriptions"
	EntityFarmProducts  EntityKind = "farmproducts"
)

// childRef declares that rows of Kind reference the parent entity.
// Columns maps child column -> parent key column.
type childRef struct {
	Kind    EntityKind
	Columns map[string]string
}

// EntityDescriptor is the typed schema record driving generic admin CRUD
// and cascading deletes.
type EntityDescriptor struct {
	Kind        EntityKind
	Label       string
	Table       string
	PrimaryKey  []string
	Columns     []string
	DefaultSort string
	Children    []childRef
}

// adminRegistry declares the admin-visible schema statically. The child
// links form the dependency DAG walked by AdminCascadeDelete: children are
// removed before their parent inside one transaction.
var adminRegistry = map[EntityKind]EntityDescriptor{
	EntityClients: {
		Kind:       EntityClients,
		Label:      "Clients",
		Table:      "clients",
		PrimaryKey: []string{"client_id"},
		Columns: []string{"client_id", "company_name", "first_name", "last_name",
			"honorific", "email", "location_id", "loyalty_points"},
		DefaultSort: "client_id ASC",
		Children: []childRef{
			{Kind: EntitySubscriptions, Columns: map[string]string{"client_id": "client_id"}},
			{Kind: EntityOrders, Columns: map[string]string{"client_id": "client_id"}},
		},
	},
	EntityFarms: {
		Kind:        EntityFarms,
		Label:       "Farms",
		Table:       "farms",
		PrimaryKey:  []string{"farm_id"},
		Columns:     []string{"farm_id", "name", "location_id"},
		DefaultSort: "farm_id ASC",
		Children: []childRef{
			{Kind: EntitySubscriptions, Columns: map[string]string{"farm_id": "farm_id"}},
			{Kind: EntityInventory, Columns: map[string]string{"farm_id": "farm_id"}},
			{Kind: EntityFarmProducts, Columns: map[string]string{"farm_id": "farm_id"}},
		},
	},
	EntityLocations: {
		Kind:        EntityLocations,
		Label:       "Locations",
		Table:       "locations",
		PrimaryKey:  []string{"location_id"},
		Columns:     []string{"location_id", "continent", "country", "state", "city", "street"},
		DefaultSort: "location_id ASC",
		Children: []childRef{
			{Kind: EntityFarms, Columns: map[string]string{"location_id": "location_id"}},
			{Kind: EntityClients, Columns: map[string]string{"location_id": "location_id"}},
			{Kind: EntitySubscriptions, Columns: map[string]string{"location_id": "location_id"}},
			{Kind: EntityOrders, Columns: map[string]string{"location_id": "location_id"}},
		},
	},
	EntityProducts: {
		Kind:       EntityProducts,
		Label:      "Raw Products",
		Table:      "raw_products",
		PrimaryKey: []string{"product_id"},
		Columns: []string{"product_id", "product_name", "product_type", "grade",
			"start_season", "end_season"},
		DefaultSort: "product_id ASC",
		Children: []childRef{
			{Kind: EntitySubscriptions, Columns: map[string]string{"product_id": "product_id"}},
			{Kind: EntityInventory, Columns: map[string]string{"product_id": "product_id"}},
			{Kind: EntityFarmProducts, Columns: map[string]string{"product_id": "product_id"}},
		},
	},
	EntityInventory: {
		Kind:       EntityInventory,
		Label:      "Inventory",
		Table:      "inventory",
		PrimaryKey: []string{"batch_id"},
		Columns: []string{"batch_id", "product_id", "farm_id", "price", "weight",
			"notes", "exp_date", "quantity"},
		DefaultSort: "batch_id DESC",
		Children: []childRef{
			{Kind: EntityOrders, Columns: map[string]string{"batch_id": "batch_id"}},
		},
	},
	EntityOrders: {
		Kind:       EntityOrders,
		Label:      "Orders",
		Table:      "orders",
		PrimaryKey: []string{"order_id"},
		Columns: []string{"order_id", "client_id", "batch_id", "location_id",
			"order_date", "quantity", "shipped_date", "due_by",
			"loyalty_points_used", "program_id"},
		DefaultSort: "order_id DESC",
	},
	EntitySubscriptions: {
		Kind:       EntitySubscriptions,
		Label:      "Subscriptions",
		Table:      "subscriptions",
		PrimaryKey: []string{"program_id"},
		Columns: []string{"program_id", "product_id", "farm_id", "client_id",
			"order_interval_days", "start_date", "quantity", "location_id",
			"price", "status"},
		DefaultSort: "program_id DESC",
		Children: []childRef{
			{Kind: EntityOrders, Columns: map[string]string{"program_id": "program_id"}},
		},
	},
	EntityFarmProducts: {
		Kind:        EntityFarmProducts,
		Label:       "Farm Products",
		Table:       "farm_products",
		PrimaryKey:  []string{"product_id", "farm_id"},
		Columns:     []string{"product_id", "farm_id", "population", "population_unit"},
		DefaultSort: "product_id ASC",
	},
}

// AdminEntities returns the registry in a stable order for the metadata view
func AdminEntities() []EntityDescriptor {
	kinds := []EntityKind{
		EntityClients, EntityFarms, EntityLocations, EntityProducts,
		EntityInventory, EntityOrders, EntitySubscriptions, EntityFarmProducts,
	}
	out := make([]EntityDescriptor, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, adminRegistry[k])
	}
	return out
}

// LookupEntity resolves an entity kind from its URL name
func LookupEntity(name string) (EntityDescriptor, error) {
	desc, ok := adminRegistry[EntityKind(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return EntityDescriptor{}, fmt.Errorf("%w: unknown admin entity %q", models.ErrInvalidInput, name)
	}
	return desc, nil
}

// ParseIdentifier turns a URL identifier into primary key values. Composite
// keys arrive as colon-separated segments in PrimaryKey order.
func ParseIdentifier(desc EntityDescriptor, raw string) (map[string]int64, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != len(desc.PrimaryKey) {
		return nil, fmt.Errorf("%w: identifier needs %d segment(s)", models.ErrInvalidInput, len(desc.PrimaryKey))
	}
	key := make(map[string]int64, len(parts))
	for i, column := range desc.PrimaryKey {
		v, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: identifier segment %q is not numeric", models.ErrInvalidInput, parts[i])
		}
		key[column] = v
	}
	return key, nil
}

// sanitizeValues filters a JSON payload to the entity's declared columns,
// optionally dropping primary key columns, and folds whole JSON numbers
// back to integers.
func sanitizeValues(desc EntityDescriptor, payload map[string]any, includeKeys bool) map[string]any {
	out := make(map[string]any)
	for _, column := range desc.Columns {
		if !includeKeys && contains(desc.PrimaryKey, column) {
			continue
		}
		raw, ok := payload[column]
		if !ok {
			continue
		}
		if f, isFloat := raw.(float64); isFloat && f == math.Trunc(f) {
			out[column] = int64(f)
			continue
		}
		out[column] = raw
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func keyClause(desc EntityDescriptor, key map[string]int64, argOffset int) (string, []any) {
	clauses := make([]string, 0, len(desc.PrimaryKey))
	args := make([]any, 0, len(desc.PrimaryKey))
	for _, column := range desc.PrimaryKey {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, argOffset+len(args)+1))
		args = append(args, key[column])
	}
	return strings.Join(clauses, " AND "), args
}

// AdminList retrieves up to limit rows of an entity in its default order
func (s *Store) AdminList(ctx context.Context, desc EntityDescriptor, limit int) ([]map[string]any, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %d",
		strings.Join(desc.Columns, ", "), desc.Table, desc.DefaultSort, limit)

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// AdminCreate inserts a row from a sanitized payload
func (s *Store) AdminCreate(ctx context.Context, desc EntityDescriptor, payload map[string]any) error {
	values := sanitizeValues(desc, payload, true)
	if len(values) == 0 {
		return fmt.Errorf("%w: no recognized fields", models.ErrInvalidInput)
	}

	columns := make([]string, 0, len(values))
	for _, column := range desc.Columns {
		if _, ok := values[column]; ok {
			columns = append(columns, column)
		}
	}
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[column]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		desc.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

// AdminUpdate edits the non-key columns of one row
func (s *Store) AdminUpdate(ctx context.Context, desc EntityDescriptor, key map[string]int64, payload map[string]any) error {
	values := sanitizeValues(desc, payload, false)
	if len(values) == 0 {
		return fmt.Errorf("%w: no recognized fields", models.ErrInvalidInput)
	}

	sets := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for _, column := range desc.Columns {
		v, ok := values[column]
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, v)
	}

	where, keyArgs := keyClause(desc, key, len(args))
	args = append(args, keyArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", desc.Table, strings.Join(sets, ", "), where)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapStoreErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AdminCascadeDelete removes one row and, recursively, every row the
// registry declares as dependent on it, children before parents, inside
// one transaction. An unmodeled foreign key aborts the whole delete as
// ErrConflict.
func (s *Store) AdminCascadeDelete(ctx context.Context, desc EntityDescriptor, key map[string]int64) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	where, args := keyClause(desc, key, 0)
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s)", desc.Table, where)
	if err := tx.GetContext(ctx, &exists, query, args...); err != nil {
		return 0, err
	}
	if !exists {
		return 0, models.ErrNotFound
	}

	removed, err := cascadeDelete(ctx, tx, desc, key)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}

func cascadeDelete(ctx context.Context, tx *sqlx.Tx, desc EntityDescriptor, key map[string]int64) (int64, error) {
	var removed int64
	for _, ref := range desc.Children {
		child := adminRegistry[ref.Kind]

		clauses := make([]string, 0, len(ref.Columns))
		args := make([]any, 0, len(ref.Columns))
		for childColumn, parentColumn := range ref.Columns {
			clauses = append(clauses, fmt.Sprintf("%s = $%d", childColumn, len(args)+1))
			args = append(args, key[parentColumn])
		}

		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
			strings.Join(child.PrimaryKey, ", "), child.Table, strings.Join(clauses, " AND "))
		rows, err := tx.QueryxContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}

		var childKeys []map[string]int64
		for rows.Next() {
			scanned := map[string]any{}
			if err := rows.MapScan(scanned); err != nil {
				rows.Close()
				return 0, err
			}
			childKey := make(map[string]int64, len(child.PrimaryKey))
			for _, column := range child.PrimaryKey {
				v, ok := scanned[column].(int64)
				if !ok {
					rows.Close()
					return 0, fmt.Errorf("unexpected key type for %s.%s", child.Table, column)
				}
				childKey[column] = v
			}
			childKeys = append(childKeys, childKey)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return 0, err
		}
		rows.Close()

		for _, childKey := range childKeys {
			n, err := cascadeDelete(ctx, tx, child, childKey)
			if err != nil {
				return 0, err
			}
			removed += n
		}
	}

	where, args := keyClause(desc, key, 0)
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", desc.Table, where)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapStoreErr(err)
	}
	n, _ := res.RowsAffected()
	return removed + n, nil
}
