package documents

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

	LatestNumber(ctx context.Context, family Family) (string, error)
	Get(ctx context.Context, id int64) (*Document, error)
	List(ctx context.Context, family Family) ([]Document, error)
	Create(ctx context.Context, d Document) (int64, error)
	Update(ctx context.Context, d Document) error

	ListDetails(ctx context.Context, documentID int64) ([]Detail, error)
	InsertDetail(ctx context.Context, d Detail) (int64, error)
	UpdateDetail(ctx context.Context, d Detail) error
	DeleteDetails(ctx context.Context, ids []int64) error
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

func (r *repository) LatestNumber(ctx context.Context, family Family) (string, error) {
	var number string
	err := r.db.QueryRow(ctx, `
		SELECT number FROM documents WHERE family = $1 ORDER BY created_at DESC, id DESC LIMIT 1
	`, family).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return number, err
}

const documentColumns = `
	d.id, d.family, d.number, d.doc_date, d.customer_code, d.marketing_code,
	d.remarks, d.active, d.created_at, d.updated_at, c.active, g.active`

const documentJoins = `
	FROM documents d
	LEFT JOIN customers c ON c.code = d.customer_code
	LEFT JOIN shipper_groups g ON g.code = c.group_code`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Family, &d.Number, &d.Date, &d.CustomerCode,
		&d.MarketingCode, &d.Remarks, &d.Active, &d.CreatedAt, &d.UpdatedAt,
		&d.CustomerActive, &d.GroupActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Document, error) {
	d, err := scanDocument(r.db.QueryRow(ctx,
		"SELECT"+documentColumns+documentJoins+" WHERE d.id = $1", id))
	if err != nil {
		return nil, err
	}
	d.Details, err = r.ListDetails(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *repository) List(ctx context.Context, family Family) ([]Document, error) {
	rows, err := r.db.Query(ctx,
		"SELECT"+documentColumns+documentJoins+" WHERE d.family = $1 ORDER BY d.doc_date DESC, d.id DESC",
		family)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Details, err = r.ListDetails(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *repository) Create(ctx context.Context, d Document) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO documents (family, number, doc_date, customer_code, marketing_code, remarks, active)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		RETURNING id
	`, d.Family, d.Number, d.Date, d.CustomerCode, d.MarketingCode, d.Remarks, d.Active).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, d Document) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE documents
		SET doc_date = $2, customer_code = $3, marketing_code = NULLIF($4, ''),
		    remarks = $5, active = $6, updated_at = NOW()
		WHERE id = $1
	`, d.ID, d.Date, d.CustomerCode, d.MarketingCode, d.Remarks, d.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ListDetails(ctx context.Context, documentID int64) ([]Detail, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, document_id, COALESCE(product_code, ''), COALESCE(route_code, ''),
		       description, quantity, active, created_at, updated_at
		FROM document_details WHERE document_id = $1 ORDER BY id
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Detail
	for rows.Next() {
		var d Detail
		err := rows.Scan(&d.ID, &d.DocumentID, &d.ProductCode, &d.RouteCode,
			&d.Description, &d.Quantity, &d.Active, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) InsertDetail(ctx context.Context, d Detail) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_details (document_id, product_code, route_code, description, quantity, active)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)
		RETURNING id
	`, d.DocumentID, d.ProductCode, d.RouteCode, d.Description, d.Quantity, d.Active).Scan(&id)
	return id, err
}

func (r *repository) UpdateDetail(ctx context.Context, d Detail) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE document_details
		SET product_code = NULLIF($2, ''), route_code = NULLIF($3, ''),
		    description = $4, quantity = $5, active = $6, updated_at = NOW()
		WHERE id = $1
	`, d.ID, d.ProductCode, d.RouteCode, d.Description, d.Quantity, d.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteDetails(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, "DELETE FROM document_details WHERE id = ANY($1)", ids)
	return err
}
