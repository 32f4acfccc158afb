package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ItsMalma/fiems-sub000/internal/platform/db"
	"github.com/ItsMalma/fiems-sub000/internal/shared"
)

// LineRef is the slice of a quotation line the combo cascade needs: its
// matching tuple and the components it references. Nil component IDs mean
// the lookup was unresolved at save time.
type LineRef struct {
	ID                  int64
	ServiceType         string
	PortCode            string
	ContainerSize       string
	ContainerType       string
	OriginComponentID   *int64
	DestComponentID     *int64
	ShippingComponentID *int64
}

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	LatestNumber(ctx context.Context, kind ListKind) (string, error)
	GetList(ctx context.Context, id int64) (*PriceList, error)
	ListLists(ctx context.Context, kind ListKind) ([]PriceList, error)
	CreateList(ctx context.Context, list PriceList) (int64, error)
	UpdateList(ctx context.Context, list PriceList) error

	ListDetails(ctx context.Context, listID int64) ([]Component, error)
	InsertComponent(ctx context.Context, c Component) (int64, error)
	UpdateComponent(ctx context.Context, c Component) error
	DeleteComponents(ctx context.Context, ids []int64) error

	// ComponentRows returns every component of the kind joined with its
	// status inputs, for lookup and uniqueness checks.
	ComponentRows(ctx context.Context, kind ListKind) ([]ComponentRow, error)
	GetComponentRow(ctx context.Context, id int64) (*ComponentRow, error)
	ComponentRowsByID(ctx context.Context, ids []int64) ([]ComponentRow, error)

	UpdateComponentSize(ctx context.Context, id int64, size string) error
	UpdateComponentsSizeForLists(ctx context.Context, listIDs []int64, from, to, serviceType, portCode, containerType string) error
	LinesReferencing(ctx context.Context, componentID int64) ([]LineRef, error)
	UpdateLineSize(ctx context.Context, lineID int64, size string) error
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

func (r *repository) LatestNumber(ctx context.Context, kind ListKind) (string, error) {
	var number string
	err := r.db.QueryRow(ctx, `
		SELECT number FROM price_lists WHERE kind = $1 ORDER BY number DESC LIMIT 1
	`, kind).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return number, err
}

func (r *repository) scanList(row pgx.Row) (*PriceList, error) {
	var list PriceList
	err := row.Scan(&list.ID, &list.Kind, &list.Number, &list.CounterpartyCode,
		&list.StartDate, &list.EndDate, &list.Active, &list.CreatedAt, &list.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *repository) GetList(ctx context.Context, id int64) (*PriceList, error) {
	list, err := r.scanList(r.db.QueryRow(ctx, `
		SELECT id, kind, number, counterparty_code, start_date, end_date, active, created_at, updated_at
		FROM price_lists WHERE id = $1
	`, id))
	if err != nil {
		return nil, err
	}
	list.Details, err = r.ListDetails(ctx, list.ID)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) ListLists(ctx context.Context, kind ListKind) ([]PriceList, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, kind, number, counterparty_code, start_date, end_date, active, created_at, updated_at
		FROM price_lists WHERE kind = $1 ORDER BY number
	`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []PriceList
	for rows.Next() {
		list, err := r.scanList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, *list)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range lists {
		details, err := r.ListDetails(ctx, lists[i].ID)
		if err != nil {
			return nil, err
		}
		lists[i].Details = details
	}
	return lists, nil
}

func (r *repository) CreateList(ctx context.Context, list PriceList) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO price_lists (kind, number, counterparty_code, start_date, end_date, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING id
	`, list.Kind, list.Number, list.CounterpartyCode, list.StartDate, list.EndDate, list.Active).Scan(&id)
	return id, err
}

func (r *repository) UpdateList(ctx context.Context, list PriceList) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE price_lists
		SET counterparty_code = $2, start_date = $3, end_date = $4, active = $5, updated_at = NOW()
		WHERE id = $1
	`, list.ID, list.CounterpartyCode, list.StartDate, list.EndDate, list.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const componentColumns = `
	id, price_list_id, route_code, port_code, container_size, container_type, service_type,
	base_rate, thc, bl_fee, seal_fee, lolo, storage, active, created_at, updated_at`

func scanComponent(row pgx.Row) (Component, error) {
	var c Component
	err := row.Scan(&c.ID, &c.PriceListID, &c.RouteCode, &c.PortCode, &c.ContainerSize,
		&c.ContainerType, &c.ServiceType, &c.BaseRate, &c.THC, &c.BLFee, &c.SealFee,
		&c.LoLo, &c.Storage, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) ListDetails(ctx context.Context, listID int64) ([]Component, error) {
	rows, err := r.db.Query(ctx,
		"SELECT"+componentColumns+" FROM price_components WHERE price_list_id = $1 ORDER BY id", listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, c)
	}
	return details, rows.Err()
}

func (r *repository) InsertComponent(ctx context.Context, c Component) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO price_components
			(price_list_id, route_code, port_code, container_size, container_type, service_type,
			 base_rate, thc, bl_fee, seal_fee, lolo, storage, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING id
	`, c.PriceListID, c.RouteCode, c.PortCode, c.ContainerSize, c.ContainerType, c.ServiceType,
		c.BaseRate, c.THC, c.BLFee, c.SealFee, c.LoLo, c.Storage, c.Active).Scan(&id)
	return id, err
}

func (r *repository) UpdateComponent(ctx context.Context, c Component) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE price_components
		SET route_code = $2, port_code = $3, container_size = $4, container_type = $5,
		    service_type = $6, base_rate = $7, thc = $8, bl_fee = $9, seal_fee = $10,
		    lolo = $11, storage = $12, active = $13, updated_at = NOW()
		WHERE id = $1
	`, c.ID, c.RouteCode, c.PortCode, c.ContainerSize, c.ContainerType, c.ServiceType,
		c.BaseRate, c.THC, c.BLFee, c.SealFee, c.LoLo, c.Storage, c.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteComponents(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, "DELETE FROM price_components WHERE id = ANY($1)", ids)
	return err
}

const componentRowColumns = `
	c.id, c.price_list_id, c.route_code, c.port_code, c.container_size, c.container_type,
	c.service_type, c.base_rate, c.thc, c.bl_fee, c.seal_fee, c.lolo, c.storage, c.active,
	c.created_at, c.updated_at,
	l.id, l.kind, l.number, l.counterparty_code, l.start_date, l.end_date, l.active,
	cu.active, g.active`

const componentRowJoins = `
	FROM price_components c
	JOIN price_lists l ON l.id = c.price_list_id
	LEFT JOIN customers cu ON cu.code = l.counterparty_code
	LEFT JOIN shipper_groups g ON g.code = cu.group_code`

func scanComponentRow(row pgx.Row) (ComponentRow, error) {
	var cr ComponentRow
	err := row.Scan(&cr.ID, &cr.PriceListID, &cr.RouteCode, &cr.PortCode, &cr.ContainerSize,
		&cr.ContainerType, &cr.ServiceType, &cr.BaseRate, &cr.THC, &cr.BLFee, &cr.SealFee,
		&cr.LoLo, &cr.Storage, &cr.Active, &cr.CreatedAt, &cr.UpdatedAt,
		&cr.ListID, &cr.ListKind, &cr.ListNumber, &cr.CounterpartyCode,
		&cr.ListStart, &cr.ListEnd, &cr.ListActive, &cr.CounterpartyActive, &cr.GroupActive)
	return cr, err
}

func (r *repository) ComponentRows(ctx context.Context, kind ListKind) ([]ComponentRow, error) {
	rows, err := r.db.Query(ctx,
		"SELECT"+componentRowColumns+componentRowJoins+" WHERE l.kind = $1 ORDER BY c.id", kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ComponentRow
	for rows.Next() {
		cr, err := scanComponentRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, cr)
	}
	return result, rows.Err()
}

func (r *repository) GetComponentRow(ctx context.Context, id int64) (*ComponentRow, error) {
	cr, err := scanComponentRow(r.db.QueryRow(ctx,
		"SELECT"+componentRowColumns+componentRowJoins+" WHERE c.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

func (r *repository) ComponentRowsByID(ctx context.Context, ids []int64) ([]ComponentRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		"SELECT"+componentRowColumns+componentRowJoins+" WHERE c.id = ANY($1)", ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ComponentRow
	for rows.Next() {
		cr, err := scanComponentRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, cr)
	}
	return result, rows.Err()
}

func (r *repository) UpdateComponentSize(ctx context.Context, id int64, size string) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE price_components SET container_size = $2, updated_at = NOW() WHERE id = $1", id, size)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateComponentsSizeForLists(ctx context.Context, listIDs []int64, from, to, serviceType, portCode, containerType string) error {
	if len(listIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		UPDATE price_components
		SET container_size = $3, updated_at = NOW()
		WHERE price_list_id = ANY($1) AND container_size = $2
		  AND service_type = $4 AND port_code = $5 AND container_type = $6
	`, listIDs, from, to, serviceType, portCode, containerType)
	return err
}

func (r *repository) LinesReferencing(ctx context.Context, componentID int64) ([]LineRef, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, service_type, port_code, container_size, container_type,
		       origin_component_id, destination_component_id, shipping_component_id
		FROM quotation_lines
		WHERE origin_component_id = $1 OR destination_component_id = $1
	`, componentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []LineRef
	for rows.Next() {
		var ref LineRef
		if err := rows.Scan(&ref.ID, &ref.ServiceType, &ref.PortCode, &ref.ContainerSize,
			&ref.ContainerType, &ref.OriginComponentID, &ref.DestComponentID, &ref.ShippingComponentID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *repository) UpdateLineSize(ctx context.Context, lineID int64, size string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE quotation_lines SET container_size = $2, updated_at = NOW() WHERE id = $1", lineID, size)
	return err
}
