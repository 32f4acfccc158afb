// Package sequence issues the next human-readable document number for a
// family given the highest number issued so far. Numbers are assigned inside
// the same transaction as the insert; a unique index on the number column
// catches the losing side of a concurrent create and the transaction helper
// retries it once.
package sequence

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Family identifies a document numbering format.
type Family string

const (
	FamilyProduct       Family = "product"
	FamilyQuotation     Family = "quotation"
	FamilyInquiry       Family = "inquiry"
	FamilyRequest       Family = "request"
	FamilyDeliveryNote  Family = "delivery_note"
	FamilyHandover      Family = "handover"
	FamilyCustomer      Family = "customer"
	FamilyShipperGroup  Family = "shipper_group"
	FamilyRoute         Family = "route"
	FamilyPort          Family = "port"
	FamilyMarketing     Family = "marketing"
	FamilyVendorPrice   Family = "vendor_price"
	FamilyShippingPrice Family = "shipping_price"
	FamilySchedule      Family = "schedule"
)

// format describes one family's number shape. Plain families are a prefix
// plus a zero-padded suffix; dated families embed the English month name and
// year of the issue date.
type format struct {
	prefix string // plain families
	tag    string // dated families, e.g. "SJ" in 0001/SJ/March/2024
	width  int
}

var formats = map[Family]format{
	FamilyProduct:       {prefix: "SKU", width: 4},
	FamilyQuotation:     {prefix: "QUO", width: 4},
	FamilyInquiry:       {prefix: "INQ", width: 4},
	FamilyRequest:       {prefix: "REQ", width: 4},
	FamilyDeliveryNote:  {tag: "SJ", width: 4},
	FamilyHandover:      {tag: "BAST", width: 4},
	FamilyCustomer:      {prefix: "CUS", width: 4},
	FamilyShipperGroup:  {prefix: "GRP", width: 4},
	FamilyRoute:         {prefix: "RTE", width: 4},
	FamilyPort:          {prefix: "PRT", width: 4},
	FamilyMarketing:     {prefix: "MKT", width: 4},
	FamilyVendorPrice:   {prefix: "VPL", width: 4},
	FamilyShippingPrice: {prefix: "SPL", width: 4},
	FamilySchedule:      {prefix: "SCH", width: 4},
}

var datedPattern = regexp.MustCompile(`^(\d+)/([A-Z]+)/([A-Za-z]+)/(\d{4})$`)

// Generator produces document numbers. PeriodReset controls dated families:
// when true (the default) the suffix restarts at 0001 whenever the calendar
// month or year of "now" differs from the one embedded in the last issued
// number; when false the suffix keeps incrementing across periods.
type Generator struct {
	PeriodReset bool
}

func NewGenerator(periodReset bool) Generator {
	return Generator{PeriodReset: periodReset}
}

// Next returns the number following last for the family. An empty last
// yields the family's seed value.
func (g Generator) Next(family Family, last string, now time.Time) (string, error) {
	f, ok := formats[family]
	if !ok {
		return "", fmt.Errorf("sequence: unknown family %q", family)
	}
	if f.tag != "" {
		return g.nextDated(f, last, now)
	}
	return g.nextPlain(f, last)
}

func (g Generator) nextPlain(f format, last string) (string, error) {
	if last == "" {
		return fmt.Sprintf("%s%0*d", f.prefix, f.width, 1), nil
	}
	if len(last) <= len(f.prefix) || last[:len(f.prefix)] != f.prefix {
		return "", fmt.Errorf("sequence: malformed number %q for prefix %s", last, f.prefix)
	}
	n, err := strconv.Atoi(last[len(f.prefix):])
	if err != nil {
		return "", fmt.Errorf("sequence: malformed number %q: %w", last, err)
	}
	return fmt.Sprintf("%s%0*d", f.prefix, f.width, n+1), nil
}

func (g Generator) nextDated(f format, last string, now time.Time) (string, error) {
	month := now.Month().String()
	year := now.Year()

	if last == "" {
		return fmt.Sprintf("%0*d/%s/%s/%d", f.width, 1, f.tag, month, year), nil
	}

	m := datedPattern.FindStringSubmatch(last)
	if m == nil || m[2] != f.tag {
		return "", fmt.Errorf("sequence: malformed number %q for tag %s", last, f.tag)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "", fmt.Errorf("sequence: malformed number %q: %w", last, err)
	}

	if g.PeriodReset {
		lastYear, _ := strconv.Atoi(m[4])
		if m[3] != month || lastYear != year {
			n = 0
		}
	}
	return fmt.Sprintf("%0*d/%s/%s/%d", f.width, n+1, f.tag, month, year), nil
}
