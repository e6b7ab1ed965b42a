package beds

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardboard/wardboard/internal/platform/httpx"
	"github.com/wardboard/wardboard/internal/shared"
)

// Repository defines persistence operations for wards and beds.
type Repository interface {
	ListWards(ctx context.Context) ([]Ward, error)
	CreateWard(ctx context.Context, code, name string) (Ward, error)
	ListBeds(ctx context.Context, wardID int64, limit, offset int) ([]Bed, int, error)
	GetBed(ctx context.Context, id int64) (Bed, error)
	UpdateBedStatus(ctx context.Context, id int64, status BedStatus, patientRef string) (Bed, error)
	Occupancy(ctx context.Context) ([]WardOccupancy, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListWards returns all wards ordered by code.
func (r *PGRepository) ListWards(ctx context.Context) ([]Ward, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, created_at FROM wards ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var wards []Ward
	for rows.Next() {
		var w Ward
		if err := rows.Scan(&w.ID, &w.Code, &w.Name, &w.CreatedAt); err != nil {
			return nil, err
		}
		wards = append(wards, w)
	}
	return wards, rows.Err()
}

// CreateWard inserts a new ward. Duplicate codes surface as ErrDuplicate.
func (r *PGRepository) CreateWard(ctx context.Context, code, name string) (Ward, error) {
	var w Ward
	err := r.pool.QueryRow(ctx, `
		INSERT INTO wards (code, name) VALUES ($1, $2)
		RETURNING id, code, name, created_at`, code, name).
		Scan(&w.ID, &w.Code, &w.Name, &w.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Ward{}, httpx.ErrDuplicate
		}
		return Ward{}, err
	}
	return w, nil
}

// ListBeds returns a page of beds for a ward plus the total count.
func (r *PGRepository) ListBeds(ctx context.Context, wardID int64, limit, offset int) ([]Bed, int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ward_id, code, status, COALESCE(patient_ref, ''), updated_at
		FROM beds WHERE ward_id = $1
		ORDER BY code
		LIMIT $2 OFFSET $3`, wardID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var beds []Bed
	for rows.Next() {
		var b Bed
		if err := rows.Scan(&b.ID, &b.WardID, &b.Code, &b.Status, &b.PatientRef, &b.UpdatedAt); err != nil {
			return nil, 0, err
		}
		beds = append(beds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM beds WHERE ward_id = $1`, wardID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return beds, total, nil
}

// GetBed fetches a single bed.
func (r *PGRepository) GetBed(ctx context.Context, id int64) (Bed, error) {
	var b Bed
	err := r.pool.QueryRow(ctx, `
		SELECT id, ward_id, code, status, COALESCE(patient_ref, ''), updated_at
		FROM beds WHERE id = $1`, id).
		Scan(&b.ID, &b.WardID, &b.Code, &b.Status, &b.PatientRef, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bed{}, shared.ErrNotFound
		}
		return Bed{}, err
	}
	return b, nil
}

// UpdateBedStatus writes the new status and patient reference.
func (r *PGRepository) UpdateBedStatus(ctx context.Context, id int64, status BedStatus, patientRef string) (Bed, error) {
	var b Bed
	err := r.pool.QueryRow(ctx, `
		UPDATE beds SET status = $2, patient_ref = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING id, ward_id, code, status, COALESCE(patient_ref, ''), updated_at`,
		id, status, patientRef).
		Scan(&b.ID, &b.WardID, &b.Code, &b.Status, &b.PatientRef, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bed{}, shared.ErrNotFound
		}
		return Bed{}, err
	}
	return b, nil
}

// Occupancy aggregates bed states per ward in one pass.
func (r *PGRepository) Occupancy(ctx context.Context) ([]WardOccupancy, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT w.id, w.code, w.name,
			COUNT(b.id),
			COUNT(b.id) FILTER (WHERE b.status = 'free'),
			COUNT(b.id) FILTER (WHERE b.status = 'occupied'),
			COUNT(b.id) FILTER (WHERE b.status = 'cleaning'),
			COUNT(b.id) FILTER (WHERE b.status = 'maintenance')
		FROM wards w
		LEFT JOIN beds b ON b.ward_id = w.id
		GROUP BY w.id, w.code, w.name
		ORDER BY w.code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WardOccupancy
	for rows.Next() {
		var o WardOccupancy
		if err := rows.Scan(&o.WardID, &o.WardCode, &o.WardName, &o.Total, &o.Free, &o.Occupied, &o.Cleaning, &o.Maintenance); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
