package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skiffworks/sailing-campaign/backend/internal/metrics"
)

// ErrEquipmentNotFound is returned when a piece of equipment does not exist
var ErrEquipmentNotFound = errors.New("equipment not found")

// EquipmentRepository defines the interface for equipment data access
type EquipmentRepository interface {
	Create(ctx context.Context, equipment *Equipment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Equipment, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, activeOnly bool) ([]*Equipment, error)
	Update(ctx context.Context, equipment *Equipment) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// equipmentRepository implements EquipmentRepository using sqlx
type equipmentRepository struct {
	db *sqlx.DB
}

// NewEquipmentRepository creates a new EquipmentRepository instance
func NewEquipmentRepository(db *sqlx.DB) EquipmentRepository {
	return &equipmentRepository{db: db}
}

// Create inserts a new piece of equipment, active with zero wear
func (r *equipmentRepository) Create(ctx context.Context, equipment *Equipment) error {
	defer metrics.TimeQuery("create_equipment")()

	query := `
		INSERT INTO equipment (name, type, manufacturer, model, purchase_date, notes,
			active, wear, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, true, 0, $7)
		RETURNING id, created_at, updated_at
	`

	row := r.db.QueryRowxContext(ctx, query,
		equipment.Name,
		equipment.Type,
		equipment.Manufacturer,
		equipment.Model,
		equipment.PurchaseDate,
		equipment.Notes,
		equipment.OwnerID,
	)

	if err := row.Scan(&equipment.ID, &equipment.CreatedAt, &equipment.UpdatedAt); err != nil {
		return err
	}

	equipment.Active = true
	equipment.Wear = 0
	return nil
}

// GetByID retrieves equipment by its ID
func (r *equipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	query := `
		SELECT id, name, type, manufacturer, model, purchase_date, notes,
			active, wear, owner_id, created_at, updated_at
		FROM equipment
		WHERE id = $1
	`

	equipment := &Equipment{}
	if err := r.db.GetContext(ctx, equipment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}

	return equipment, nil
}

// ListByOwner retrieves equipment owned by a user, optionally active only
func (r *equipmentRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, activeOnly bool) ([]*Equipment, error) {
	defer metrics.TimeQuery("list_equipment")()

	query := `
		SELECT id, name, type, manufacturer, model, purchase_date, notes,
			active, wear, owner_id, created_at, updated_at
		FROM equipment
		WHERE owner_id = $1
	`
	if activeOnly {
		query += ` AND active = true`
	}
	query += ` ORDER BY name`

	var items []*Equipment
	if err := r.db.SelectContext(ctx, &items, query, ownerID); err != nil {
		return nil, err
	}

	return items, nil
}

// Update persists mutable equipment fields; active and wear are managed by
// the lifecycle actions and session links
func (r *equipmentRepository) Update(ctx context.Context, equipment *Equipment) error {
	query := `
		UPDATE equipment
		SET name = $1, type = $2, manufacturer = $3, model = $4,
			purchase_date = $5, notes = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	row := r.db.QueryRowxContext(ctx, query,
		equipment.Name,
		equipment.Type,
		equipment.Manufacturer,
		equipment.Model,
		equipment.PurchaseDate,
		equipment.Notes,
		equipment.ID,
	)

	if err := row.Scan(&equipment.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEquipmentNotFound
		}
		return err
	}

	return nil
}

// Delete removes equipment and its session links
func (r *equipmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM equipment WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrEquipmentNotFound
	}

	return nil
}

// SetActive flips the active flag, implementing retire and reactivate
func (r *equipmentRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE equipment SET active = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrEquipmentNotFound
	}

	return nil
}
