package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ItsMalma/fiems-sub000/internal/platform/db"
	"github.com/ItsMalma/fiems-sub000/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	LatestCode(ctx context.Context, table string) (string, error)

	GetShipperGroup(ctx context.Context, code string) (*ShipperGroup, error)
	ListShipperGroups(ctx context.Context) ([]ShipperGroup, error)
	CreateShipperGroup(ctx context.Context, g ShipperGroup) (int64, error)
	UpdateShipperGroup(ctx context.Context, g ShipperGroup) error

	GetCustomer(ctx context.Context, code string) (*Customer, error)
	GetCustomerByID(ctx context.Context, id int64) (*Customer, error)
	ListCustomers(ctx context.Context, kind *CustomerKind) ([]Customer, error)
	CreateCustomer(ctx context.Context, c Customer) (int64, error)
	UpdateCustomer(ctx context.Context, c Customer) error

	GetRoute(ctx context.Context, code string) (*Route, error)
	ListRoutes(ctx context.Context) ([]Route, error)
	CreateRoute(ctx context.Context, r Route) (int64, error)
	UpdateRoute(ctx context.Context, r Route) error

	GetPort(ctx context.Context, code string) (*Port, error)
	ListPorts(ctx context.Context) ([]Port, error)
	CreatePort(ctx context.Context, p Port) (int64, error)
	UpdatePort(ctx context.Context, p Port) error

	GetProductCategory(ctx context.Context, name string) (*ProductCategory, error)
	ListProductCategories(ctx context.Context) ([]ProductCategory, error)
	CreateProductCategory(ctx context.Context, c ProductCategory) (int64, error)

	GetProduct(ctx context.Context, sku string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	CreateProduct(ctx context.Context, p Product) (int64, error)
	UpdateProduct(ctx context.Context, p Product) error

	GetMarketing(ctx context.Context, code string) (*Marketing, error)
	ListMarketing(ctx context.Context) ([]Marketing, error)
	CreateMarketing(ctx context.Context, m Marketing) (int64, error)
	UpdateMarketing(ctx context.Context, m Marketing) error
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

// codeColumns maps the per-table business code column for LatestCode.
var codeColumns = map[string]string{
	"shipper_groups": "code",
	"customers":      "code",
	"routes":         "code",
	"ports":          "code",
	"products":       "sku",
	"marketing":      "code",
}

func (r *repository) LatestCode(ctx context.Context, table string) (string, error) {
	col, ok := codeColumns[table]
	if !ok {
		return "", fmt.Errorf("masterdata: no code column for table %q", table)
	}
	var code string
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s DESC LIMIT 1", col, table, col)
	err := r.db.QueryRow(ctx, query).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("masterdata: latest code %s: %w", table, err)
	}
	return code, nil
}

func (r *repository) GetShipperGroup(ctx context.Context, code string) (*ShipperGroup, error) {
	var g ShipperGroup
	err := r.db.QueryRow(ctx, `
		SELECT id, code, name, active, created_at, updated_at
		FROM shipper_groups WHERE code = $1
	`, code).Scan(&g.ID, &g.Code, &g.Name, &g.Active, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *repository) ListShipperGroups(ctx context.Context) ([]ShipperGroup, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, code, name, active, created_at, updated_at
		FROM shipper_groups ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []ShipperGroup
	for rows.Next() {
		var g ShipperGroup
		if err := rows.Scan(&g.ID, &g.Code, &g.Name, &g.Active, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *repository) CreateShipperGroup(ctx context.Context, g ShipperGroup) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO shipper_groups (code, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id
	`, g.Code, g.Name, g.Active).Scan(&id)
	return id, err
}

func (r *repository) UpdateShipperGroup(ctx context.Context, g ShipperGroup) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE shipper_groups SET name = $2, active = $3, updated_at = NOW()
		WHERE id = $1
	`, g.ID, g.Name, g.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const customerColumns = `
	c.id, c.code, c.kind, c.name, COALESCE(c.group_code, ''), c.address, c.city,
	c.active, c.created_at, c.updated_at`

func (r *repository) scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Code, &c.Kind, &c.Name, &c.GroupCode, &c.Address, &c.City,
		&c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) GetCustomer(ctx context.Context, code string) (*Customer, error) {
	c, err := r.scanCustomer(r.db.QueryRow(ctx,
		"SELECT"+customerColumns+" FROM customers c WHERE c.code = $1", code))
	if err != nil {
		return nil, err
	}
	return r.attachGroup(ctx, c)
}

func (r *repository) GetCustomerByID(ctx context.Context, id int64) (*Customer, error) {
	c, err := r.scanCustomer(r.db.QueryRow(ctx,
		"SELECT"+customerColumns+" FROM customers c WHERE c.id = $1", id))
	if err != nil {
		return nil, err
	}
	return r.attachGroup(ctx, c)
}

func (r *repository) attachGroup(ctx context.Context, c *Customer) (*Customer, error) {
	if c.GroupCode == "" {
		return c, nil
	}
	group, err := r.GetShipperGroup(ctx, c.GroupCode)
	if errors.Is(err, shared.ErrNotFound) {
		// Dangling reference stays unresolved; status defaults it to live.
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	c.Group = group
	return c, nil
}

func (r *repository) ListCustomers(ctx context.Context, kind *CustomerKind) ([]Customer, error) {
	query := "SELECT" + customerColumns + " FROM customers c"
	var args []interface{}
	if kind != nil {
		query += " WHERE c.kind = $1"
		args = append(args, *kind)
	}
	query += " ORDER BY c.code"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := map[string]*ShipperGroup{}
	var customers []Customer
	for rows.Next() {
		c, err := r.scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range customers {
		code := customers[i].GroupCode
		if code == "" {
			continue
		}
		if cached, ok := groups[code]; ok {
			customers[i].Group = cached
			continue
		}
		group, err := r.GetShipperGroup(ctx, code)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		groups[code] = group
		customers[i].Group = group
	}
	return customers, nil
}

func (r *repository) CreateCustomer(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO customers (code, kind, name, group_code, address, city, active, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NOW(), NOW()) RETURNING id
	`, c.Code, c.Kind, c.Name, c.GroupCode, c.Address, c.City, c.Active).Scan(&id)
	return id, err
}

func (r *repository) UpdateCustomer(ctx context.Context, c Customer) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE customers
		SET kind = $2, name = $3, group_code = NULLIF($4, ''), address = $5, city = $6,
		    active = $7, updated_at = NOW()
		WHERE id = $1
	`, c.ID, c.Kind, c.Name, c.GroupCode, c.Address, c.City, c.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetRoute(ctx context.Context, code string) (*Route, error) {
	var rt Route
	err := r.db.QueryRow(ctx, `
		SELECT id, code, origin, destination, active, created_at, updated_at
		FROM routes WHERE code = $1
	`, code).Scan(&rt.ID, &rt.Code, &rt.Origin, &rt.Destination, &rt.Active, &rt.CreatedAt, &rt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *repository) ListRoutes(ctx context.Context) ([]Route, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, code, origin, destination, active, created_at, updated_at
		FROM routes ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []Route
	for rows.Next() {
		var rt Route
		if err := rows.Scan(&rt.ID, &rt.Code, &rt.Origin, &rt.Destination, &rt.Active, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, err
		}
		routes = append(routes, rt)
	}
	return routes, rows.Err()
}

func (r *repository) CreateRoute(ctx context.Context, rt Route) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO routes (code, origin, destination, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id
	`, rt.Code, rt.Origin, rt.Destination, rt.Active).Scan(&id)
	return id, err
}

func (r *repository) UpdateRoute(ctx context.Context, rt Route) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE routes SET origin = $2, destination = $3, active = $4, updated_at = NOW()
		WHERE id = $1
	`, rt.ID, rt.Origin, rt.Destination, rt.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetPort(ctx context.Context, code string) (*Port, error) {
	var p Port
	err := r.db.QueryRow(ctx, `
		SELECT id, code, name, city, active, created_at, updated_at
		FROM ports WHERE code = $1
	`, code).Scan(&p.ID, &p.Code, &p.Name, &p.City, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListPorts(ctx context.Context) ([]Port, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, code, name, city, active, created_at, updated_at
		FROM ports ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ports []Port
	for rows.Next() {
		var p Port
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.City, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		ports = append(ports, p)
	}
	return ports, rows.Err()
}

func (r *repository) CreatePort(ctx context.Context, p Port) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO ports (code, name, city, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id
	`, p.Code, p.Name, p.City, p.Active).Scan(&id)
	return id, err
}

func (r *repository) UpdatePort(ctx context.Context, p Port) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE ports SET name = $2, city = $3, active = $4, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Name, p.City, p.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetProductCategory(ctx context.Context, name string) (*ProductCategory, error) {
	var c ProductCategory
	err := r.db.QueryRow(ctx, `
		SELECT id, name, active, created_at, updated_at
		FROM product_categories WHERE name = $1
	`, name).Scan(&c.ID, &c.Name, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) ListProductCategories(ctx context.Context) ([]ProductCategory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, active, created_at, updated_at
		FROM product_categories ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []ProductCategory
	for rows.Next() {
		var c ProductCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *repository) CreateProductCategory(ctx context.Context, c ProductCategory) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO product_categories (name, active, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW()) RETURNING id
	`, c.Name, c.Active).Scan(&id)
	return id, err
}

func (r *repository) GetProduct(ctx context.Context, sku string) (*Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, `
		SELECT id, sku, name, category_name, active, created_at, updated_at
		FROM products WHERE sku = $1
	`, sku).Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryName, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	category, err := r.GetProductCategory(ctx, p.CategoryName)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	p.Category = category
	return &p, nil
}

func (r *repository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, sku, name, category_name, active, created_at, updated_at
		FROM products ORDER BY sku
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryName, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	categories := map[string]*ProductCategory{}
	for i := range products {
		name := products[i].CategoryName
		if cached, ok := categories[name]; ok {
			products[i].Category = cached
			continue
		}
		category, err := r.GetProductCategory(ctx, name)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		categories[name] = category
		products[i].Category = category
	}
	return products, nil
}

func (r *repository) CreateProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (sku, name, category_name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id
	`, p.SKU, p.Name, p.CategoryName, p.Active).Scan(&id)
	return id, err
}

func (r *repository) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products SET name = $2, category_name = $3, active = $4, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Name, p.CategoryName, p.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetMarketing(ctx context.Context, code string) (*Marketing, error) {
	var m Marketing
	err := r.db.QueryRow(ctx, `
		SELECT id, code, name, active, created_at, updated_at
		FROM marketing WHERE code = $1
	`, code).Scan(&m.ID, &m.Code, &m.Name, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) ListMarketing(ctx context.Context) ([]Marketing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, code, name, active, created_at, updated_at
		FROM marketing ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []Marketing
	for rows.Next() {
		var m Marketing
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		staff = append(staff, m)
	}
	return staff, rows.Err()
}

func (r *repository) CreateMarketing(ctx context.Context, m Marketing) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO marketing (code, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id
	`, m.Code, m.Name, m.Active).Scan(&id)
	return id, err
}

func (r *repository) UpdateMarketing(ctx context.Context, m Marketing) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE marketing SET name = $2, active = $3, updated_at = NOW()
		WHERE id = $1
	`, m.ID, m.Name, m.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
