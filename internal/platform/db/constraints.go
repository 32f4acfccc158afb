package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// constraintFields maps unique index names to the form field that should
// carry the violation. The indexes are the second line of defense behind the
// application-level uniqueness guard.
var constraintFields = map[string]string{
	"uq_products_sku":            "sku",
	"uq_documents_number":        "number",
	"uq_quotations_number":       "number",
	"uq_quotation_lines_lane":    "route",
	"uq_price_components_key":    "route",
	"uq_vessel_schedules_slot":   "voyage",
	"uq_customers_code":          "code",
	"uq_routes_code":             "code",
	"uq_ports_code":              "code",
	"uq_shipper_groups_code":     "code",
	"uq_product_categories_name": "name",
	"uq_marketing_code":          "code",
}

// ConstraintField resolves a unique-violation error to the field path it
// should be reported on. The second return is false when err is not a unique
// violation or the constraint is unknown.
func ConstraintField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return "", false
	}
	field, ok := constraintFields[pgErr.ConstraintName]
	return field, ok
}
