package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skiffworks/sailing-campaign/backend/internal/metrics"
)

// Common errors
var (
	ErrSessionNotFound  = errors.New("sailing session not found")
	ErrSettingsNotFound = errors.New("equipment settings not found")
	ErrSettingsExist    = errors.New("equipment settings already exist for this session")
)

// SessionRepository defines the interface for sailing session data access
type SessionRepository interface {
	Create(ctx context.Context, session *SailingSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*SailingSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*SailingSession, error)
	ListByUserDateRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*SailingSession, error)
	Update(ctx context.Context, session *SailingSession, wearDelta float64) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateSettings(ctx context.Context, settings *EquipmentSettings) error
	GetSettingsBySession(ctx context.Context, sessionID uuid.UUID) (*EquipmentSettings, error)

	ListEquipment(ctx context.Context, sessionID uuid.UUID) ([]*Equipment, error)
	AttachEquipment(ctx context.Context, sessionID uuid.UUID, equipmentIDs []uuid.UUID, wearHours float64) error
	DetachEquipment(ctx context.Context, sessionID, equipmentID uuid.UUID, wearHours float64) error
}

// sessionRepository implements SessionRepository using PostgreSQL
type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

const sessionColumns = `id, date, location, wind_speed_min, wind_speed_max, wave_type,
	wave_direction, hours_on_water, performance_rating, notes, created_by, created_at, updated_at`

func scanSession(row pgx.Row) (*SailingSession, error) {
	s := &SailingSession{}
	err := row.Scan(
		&s.ID,
		&s.Date,
		&s.Location,
		&s.WindSpeedMin,
		&s.WindSpeedMax,
		&s.WaveType,
		&s.WaveDirection,
		&s.HoursOnWater,
		&s.PerformanceRating,
		&s.Notes,
		&s.CreatedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a session, links its equipment, and accumulates wear on the
// linked equipment in one transaction
func (r *sessionRepository) Create(ctx context.Context, session *SailingSession) error {
	defer metrics.TimeQuery("create_session")()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO sessions (date, location, wind_speed_min, wind_speed_max, wave_type,
			wave_direction, hours_on_water, performance_rating, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRow(ctx, query,
		session.Date,
		session.Location,
		session.WindSpeedMin,
		session.WindSpeedMax,
		session.WaveType,
		session.WaveDirection,
		session.HoursOnWater,
		session.PerformanceRating,
		session.Notes,
		session.CreatedBy,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return err
	}

	if len(session.EquipmentIDs) > 0 {
		if err := linkEquipment(ctx, tx, session.ID, session.EquipmentIDs, session.HoursOnWater); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a session and its linked equipment IDs
func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*SailingSession, error) {
	defer metrics.TimeQuery("select_session")()

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	session.EquipmentIDs, err = r.equipmentIDs(ctx, id)
	if err != nil {
		return nil, err
	}

	return session, nil
}

// ListByUser retrieves sessions created by a user, newest first
func (r *sessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*SailingSession, error) {
	defer metrics.TimeQuery("list_sessions")()

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE created_by = $1
		ORDER BY date DESC, created_at DESC
		OFFSET $2 LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, userID, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSessions(rows)
}

// ListByUserDateRange retrieves sessions for a user between two dates inclusive
func (r *sessionRepository) ListByUserDateRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*SailingSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE created_by = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC, created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSessions(rows)
}

func collectSessions(rows pgx.Rows) ([]*SailingSession, error) {
	var sessions []*SailingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Update persists changed session fields and, when the session's hours
// changed, applies the wear delta to linked equipment in the same transaction
func (r *sessionRepository) Update(ctx context.Context, session *SailingSession, wearDelta float64) error {
	defer metrics.TimeQuery("update_session")()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE sessions
		SET date = $1, location = $2, wind_speed_min = $3, wind_speed_max = $4,
			wave_type = $5, wave_direction = $6, hours_on_water = $7,
			performance_rating = $8, notes = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING updated_at
	`

	err = tx.QueryRow(ctx, query,
		session.Date,
		session.Location,
		session.WindSpeedMin,
		session.WindSpeedMax,
		session.WaveType,
		session.WaveDirection,
		session.HoursOnWater,
		session.PerformanceRating,
		session.Notes,
		session.ID,
	).Scan(&session.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return err
	}

	if wearDelta != 0 {
		_, err = tx.Exec(ctx, `
			UPDATE equipment
			SET wear = GREATEST(wear + $1, 0), updated_at = NOW()
			WHERE id IN (SELECT equipment_id FROM session_equipment WHERE session_id = $2)
		`, wearDelta, session.ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Delete removes a session, its settings and equipment links, and rolls the
// session's hours back out of linked equipment wear
func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer metrics.TimeQuery("delete_session")()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var hours float64
	err = tx.QueryRow(ctx, `SELECT hours_on_water FROM sessions WHERE id = $1`, id).Scan(&hours)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE equipment
		SET wear = GREATEST(wear - $1, 0), updated_at = NOW()
		WHERE id IN (SELECT equipment_id FROM session_equipment WHERE session_id = $2)
	`, hours, id)
	if err != nil {
		return err
	}

	// session_equipment and equipment_settings rows cascade
	if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CreateSettings inserts the rig settings for a session, one set per session
func (r *sessionRepository) CreateSettings(ctx context.Context, settings *EquipmentSettings) error {
	query := `
		INSERT INTO equipment_settings (session_id, forestay_tension, shroud_tension,
			mast_rake, jib_halyard_tension, cunningham, outhaul, vang,
			main_tension, cap_tension, cap_hole, lowers_scale, mains_scale, pre_bend)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		settings.SessionID,
		settings.ForestayTension,
		settings.ShroudTension,
		settings.MastRake,
		settings.JibHalyardTension,
		settings.Cunningham,
		settings.Outhaul,
		settings.Vang,
		settings.MainTension,
		settings.CapTension,
		settings.CapHole,
		settings.LowersScale,
		settings.MainsScale,
		settings.PreBend,
	).Scan(&settings.ID, &settings.CreatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "idx_equipment_settings_session") {
			return ErrSettingsExist
		}
		return err
	}

	return nil
}

// GetSettingsBySession retrieves the rig settings recorded for a session
func (r *sessionRepository) GetSettingsBySession(ctx context.Context, sessionID uuid.UUID) (*EquipmentSettings, error) {
	query := `
		SELECT id, session_id, forestay_tension, shroud_tension, mast_rake,
			jib_halyard_tension, cunningham, outhaul, vang,
			main_tension, cap_tension, cap_hole, lowers_scale, mains_scale, pre_bend,
			created_at
		FROM equipment_settings
		WHERE session_id = $1
	`

	s := &EquipmentSettings{}
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&s.ID,
		&s.SessionID,
		&s.ForestayTension,
		&s.ShroudTension,
		&s.MastRake,
		&s.JibHalyardTension,
		&s.Cunningham,
		&s.Outhaul,
		&s.Vang,
		&s.MainTension,
		&s.CapTension,
		&s.CapHole,
		&s.LowersScale,
		&s.MainsScale,
		&s.PreBend,
		&s.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}

	return s, nil
}

// ListEquipment retrieves the equipment linked to a session
func (r *sessionRepository) ListEquipment(ctx context.Context, sessionID uuid.UUID) ([]*Equipment, error) {
	query := `
		SELECT e.id, e.name, e.type, e.manufacturer, e.model, e.purchase_date,
			e.notes, e.active, e.wear, e.owner_id, e.created_at, e.updated_at
		FROM equipment e
		JOIN session_equipment se ON se.equipment_id = e.id
		WHERE se.session_id = $1
		ORDER BY e.name
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Equipment
	for rows.Next() {
		e := &Equipment{}
		err := rows.Scan(
			&e.ID, &e.Name, &e.Type, &e.Manufacturer, &e.Model, &e.PurchaseDate,
			&e.Notes, &e.Active, &e.Wear, &e.OwnerID, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// AttachEquipment links equipment to a session and adds the session's hours
// to each newly linked item's wear
func (r *sessionRepository) AttachEquipment(ctx context.Context, sessionID uuid.UUID, equipmentIDs []uuid.UUID, wearHours float64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := linkEquipment(ctx, tx, sessionID, equipmentIDs, wearHours); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DetachEquipment unlinks one piece of equipment and rolls its wear back
func (r *sessionRepository) DetachEquipment(ctx context.Context, sessionID, equipmentID uuid.UUID, wearHours float64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		DELETE FROM session_equipment WHERE session_id = $1 AND equipment_id = $2
	`, sessionID, equipmentID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrEquipmentNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE equipment SET wear = GREATEST(wear - $1, 0), updated_at = NOW() WHERE id = $2
	`, wearHours, equipmentID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *sessionRepository) equipmentIDs(ctx context.Context, sessionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT equipment_id FROM session_equipment WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func linkEquipment(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID, equipmentIDs []uuid.UUID, wearHours float64) error {
	var linked []uuid.UUID
	for _, equipmentID := range equipmentIDs {
		result, err := tx.Exec(ctx, `
			INSERT INTO session_equipment (session_id, equipment_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, sessionID, equipmentID)
		if err != nil {
			return err
		}
		if result.RowsAffected() > 0 {
			linked = append(linked, equipmentID)
		}
	}

	// Wear accrues only on newly created links so re-attaching is idempotent
	if len(linked) > 0 && wearHours > 0 {
		_, err := tx.Exec(ctx, `
			UPDATE equipment SET wear = wear + $1, updated_at = NOW() WHERE id = ANY($2)
		`, wearHours, linked)
		if err != nil {
			return err
		}
	}

	return nil
}
