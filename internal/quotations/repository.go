package quotations

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
	Get(ctx context.Context, id int64) (*Quotation, error)
	List(ctx context.Context) ([]Quotation, error)
	Create(ctx context.Context, q Quotation) (int64, error)
	Update(ctx context.Context, q Quotation) error

	ListLines(ctx context.Context, quotationID int64) ([]Line, error)
	InsertLine(ctx context.Context, l Line) (int64, error)
	UpdateLine(ctx context.Context, l Line) error
	DeleteLines(ctx context.Context, ids []int64) error

	// LineRows returns every line in the system joined with its parent's
	// status inputs, for the system-wide lane guard.
	LineRows(ctx context.Context) ([]LineRow, error)
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
		"SELECT number FROM quotations ORDER BY number DESC LIMIT 1").Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return number, err
}

const quotationColumns = `
	q.id, q.number, q.shipper_code, q.marketing_code, q.start_date, q.end_date,
	q.active, q.created_at, q.updated_at, c.active, g.active`

const quotationJoins = `
	FROM quotations q
	LEFT JOIN customers c ON c.code = q.shipper_code
	LEFT JOIN shipper_groups g ON g.code = c.group_code`

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	err := row.Scan(&q.ID, &q.Number, &q.ShipperCode, &q.MarketingCode,
		&q.StartDate, &q.EndDate, &q.Active, &q.CreatedAt, &q.UpdatedAt,
		&q.ShipperActive, &q.GroupActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, err := scanQuotation(r.db.QueryRow(ctx,
		"SELECT"+quotationColumns+quotationJoins+" WHERE q.id = $1", id))
	if err != nil {
		return nil, err
	}
	q.Lines, err = r.ListLines(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) List(ctx context.Context) ([]Quotation, error) {
	rows, err := r.db.Query(ctx,
		"SELECT"+quotationColumns+quotationJoins+" ORDER BY q.number")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines, err = r.ListLines(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotations (number, shipper_code, marketing_code, start_date, end_date, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, q.Number, q.ShipperCode, q.MarketingCode, q.StartDate, q.EndDate, q.Active).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, q Quotation) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotations
		SET shipper_code = $2, marketing_code = $3, start_date = $4, end_date = $5,
		    active = $6, updated_at = NOW()
		WHERE id = $1
	`, q.ID, q.ShipperCode, q.MarketingCode, q.StartDate, q.EndDate, q.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const lineColumns = `
	l.id, l.quotation_id, l.route_code, l.port_code, l.delivery_to,
	l.container_size, l.container_type, l.service_type,
	l.origin_vendor_code, l.destination_vendor_code, l.shipping_code,
	l.origin_component_id, l.destination_component_id, l.shipping_component_id,
	l.admin_bl, l.cleaning, l.transshipment, l.stamp_duty, l.labor,
	l.stuffing, l.transit, l.forwarding, l.handling,
	l.tax_switch, l.tax_surcharge,
	l.insurance_switch, l.insurance_amount, l.insurance_admin_fee,
	l.ppn_switch, l.selling_price, l.active, l.created_at, l.updated_at`

func scanLine(row pgx.Row, l *Line) error {
	return row.Scan(&l.ID, &l.QuotationID, &l.RouteCode, &l.PortCode, &l.DeliveryTo,
		&l.ContainerSize, &l.ContainerType, &l.ServiceType,
		&l.OriginVendorCode, &l.DestinationVendor, &l.ShippingCode,
		&l.OriginComponentID, &l.DestComponentID, &l.ShippingComponentID,
		&l.Surcharges.AdminBL, &l.Surcharges.Cleaning, &l.Surcharges.Transshipment,
		&l.Surcharges.StampDuty, &l.Surcharges.Labor, &l.Surcharges.Stuffing,
		&l.Surcharges.Transit, &l.Surcharges.Forwarding, &l.Surcharges.Handling,
		&l.TaxSwitch, &l.TaxSurcharge,
		&l.InsuranceSwitch, &l.InsuranceAmount, &l.InsuranceAdminFee,
		&l.PPNSwitch, &l.SellingPrice, &l.Active, &l.CreatedAt, &l.UpdatedAt)
}

func (r *repository) ListLines(ctx context.Context, quotationID int64) ([]Line, error) {
	rows, err := r.db.Query(ctx,
		"SELECT"+lineColumns+" FROM quotation_lines l WHERE l.quotation_id = $1 ORDER BY l.id",
		quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := scanLine(rows, &l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) InsertLine(ctx context.Context, l Line) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotation_lines (
			quotation_id, route_code, port_code, delivery_to,
			container_size, container_type, service_type,
			origin_vendor_code, destination_vendor_code, shipping_code,
			origin_component_id, destination_component_id, shipping_component_id,
			admin_bl, cleaning, transshipment, stamp_duty, labor,
			stuffing, transit, forwarding, handling,
			tax_switch, tax_surcharge,
			insurance_switch, insurance_amount, insurance_admin_fee,
			ppn_switch, selling_price, active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22,
			$23, $24, $25, $26, $27, $28, $29, $30
		)
		RETURNING id
	`, l.QuotationID, l.RouteCode, l.PortCode, l.DeliveryTo,
		l.ContainerSize, l.ContainerType, l.ServiceType,
		l.OriginVendorCode, l.DestinationVendor, l.ShippingCode,
		l.OriginComponentID, l.DestComponentID, l.ShippingComponentID,
		l.Surcharges.AdminBL, l.Surcharges.Cleaning, l.Surcharges.Transshipment,
		l.Surcharges.StampDuty, l.Surcharges.Labor, l.Surcharges.Stuffing,
		l.Surcharges.Transit, l.Surcharges.Forwarding, l.Surcharges.Handling,
		l.TaxSwitch, l.TaxSurcharge,
		l.InsuranceSwitch, l.InsuranceAmount, l.InsuranceAdminFee,
		l.PPNSwitch, l.SellingPrice, l.Active).Scan(&id)
	return id, err
}

func (r *repository) UpdateLine(ctx context.Context, l Line) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotation_lines
		SET route_code = $2, port_code = $3, delivery_to = $4,
		    container_size = $5, container_type = $6, service_type = $7,
		    origin_vendor_code = $8, destination_vendor_code = $9, shipping_code = $10,
		    origin_component_id = $11, destination_component_id = $12, shipping_component_id = $13,
		    admin_bl = $14, cleaning = $15, transshipment = $16, stamp_duty = $17,
		    labor = $18, stuffing = $19, transit = $20, forwarding = $21, handling = $22,
		    tax_switch = $23, tax_surcharge = $24,
		    insurance_switch = $25, insurance_amount = $26, insurance_admin_fee = $27,
		    ppn_switch = $28, selling_price = $29, active = $30, updated_at = NOW()
		WHERE id = $1
	`, l.ID, l.RouteCode, l.PortCode, l.DeliveryTo,
		l.ContainerSize, l.ContainerType, l.ServiceType,
		l.OriginVendorCode, l.DestinationVendor, l.ShippingCode,
		l.OriginComponentID, l.DestComponentID, l.ShippingComponentID,
		l.Surcharges.AdminBL, l.Surcharges.Cleaning, l.Surcharges.Transshipment,
		l.Surcharges.StampDuty, l.Surcharges.Labor, l.Surcharges.Stuffing,
		l.Surcharges.Transit, l.Surcharges.Forwarding, l.Surcharges.Handling,
		l.TaxSwitch, l.TaxSurcharge,
		l.InsuranceSwitch, l.InsuranceAmount, l.InsuranceAdminFee,
		l.PPNSwitch, l.SellingPrice, l.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteLines(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, "DELETE FROM quotation_lines WHERE id = ANY($1)", ids)
	return err
}

func (r *repository) LineRows(ctx context.Context) ([]LineRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT`+lineColumns+`,
		       q.start_date, q.end_date, q.active, c.active, g.active
		FROM quotation_lines l
		JOIN quotations q ON q.id = l.quotation_id
		LEFT JOIN customers c ON c.code = q.shipper_code
		LEFT JOIN shipper_groups g ON g.code = c.group_code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineRow
	for rows.Next() {
		var lr LineRow
		err := rows.Scan(&lr.ID, &lr.QuotationID, &lr.RouteCode, &lr.PortCode, &lr.DeliveryTo,
			&lr.ContainerSize, &lr.ContainerType, &lr.ServiceType,
			&lr.OriginVendorCode, &lr.DestinationVendor, &lr.ShippingCode,
			&lr.OriginComponentID, &lr.DestComponentID, &lr.ShippingComponentID,
			&lr.Surcharges.AdminBL, &lr.Surcharges.Cleaning, &lr.Surcharges.Transshipment,
			&lr.Surcharges.StampDuty, &lr.Surcharges.Labor, &lr.Surcharges.Stuffing,
			&lr.Surcharges.Transit, &lr.Surcharges.Forwarding, &lr.Surcharges.Handling,
			&lr.TaxSwitch, &lr.TaxSurcharge,
			&lr.InsuranceSwitch, &lr.InsuranceAmount, &lr.InsuranceAdminFee,
			&lr.PPNSwitch, &lr.SellingPrice, &lr.Active, &lr.CreatedAt, &lr.UpdatedAt,
			&lr.QuotationStart, &lr.QuotationEnd, &lr.QuotationActive,
			&lr.ShipperActive, &lr.GroupActive)
		if err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}
