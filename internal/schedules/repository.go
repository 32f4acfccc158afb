package schedules

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ItsMalma/fiems-sub000/internal/platform/db"
	"github.com/ItsMalma/fiems-sub000/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	LatestNumber(ctx context.Context) (string, error)
	Get(ctx context.Context, id int64) (*VesselSchedule, error)
	List(ctx context.Context) ([]VesselSchedule, error)
	Create(ctx context.Context, v VesselSchedule) (int64, error)
	Update(ctx context.Context, v VesselSchedule) error
	UpdateActive(ctx context.Context, id int64, active bool) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) LatestNumber(ctx context.Context) (string, error) {
	var number string
	err := r.db.QueryRow(ctx,
		"SELECT number FROM vessel_schedules ORDER BY number DESC LIMIT 1").Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return number, err
}

const scheduleColumns = `
	v.id, v.number, v.shipping_code, v.vessel, v.voyage, v.port_code,
	v.etd, v.eta, v.active, v.created_at, v.updated_at, c.active`

const scheduleJoins = `
	FROM vessel_schedules v
	LEFT JOIN customers c ON c.code = v.shipping_code`

func scanSchedule(row pgx.Row) (*VesselSchedule, error) {
	var v VesselSchedule
	err := row.Scan(&v.ID, &v.Number, &v.ShippingCode, &v.Vessel, &v.Voyage,
		&v.PortCode, &v.ETD, &v.ETA, &v.Active, &v.CreatedAt, &v.UpdatedAt,
		&v.ShippingActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*VesselSchedule, error) {
	return scanSchedule(r.db.QueryRow(ctx,
		"SELECT"+scheduleColumns+scheduleJoins+" WHERE v.id = $1", id))
}

func (r *repository) List(ctx context.Context) ([]VesselSchedule, error) {
	rows, err := r.db.Query(ctx,
		"SELECT"+scheduleColumns+scheduleJoins+" ORDER BY v.number")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VesselSchedule
	for rows.Next() {
		v, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, v VesselSchedule) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO vessel_schedules (number, shipping_code, vessel, voyage, port_code, etd, eta, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, v.Number, v.ShippingCode, v.Vessel, v.Voyage, v.PortCode, v.ETD, v.ETA, v.Active).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, v VesselSchedule) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE vessel_schedules
		SET shipping_code = $2, vessel = $3, voyage = $4, port_code = $5,
		    etd = $6, eta = $7, updated_at = NOW()
		WHERE id = $1
	`, v.ID, v.ShippingCode, v.Vessel, v.Voyage, v.PortCode, v.ETD, v.ETA)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE vessel_schedules SET active = $2, updated_at = NOW() WHERE id = $1", id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
