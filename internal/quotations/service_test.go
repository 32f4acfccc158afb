package quotations

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItsMalma/fiems-sub000/internal/pricing"
	"github.com/ItsMalma/fiems-sub000/internal/sequence"
	"github.com/ItsMalma/fiems-sub000/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	quotations map[int64]*Quotation
	nextID     int64
	nextLineID int64
	lastNumber string

	// Status inputs joined per shipper code.
	shipperActive map[string]bool

	// Error injection
	insertLineError error
	updateLineError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		quotations:    make(map[int64]*Quotation),
		nextID:        1,
		nextLineID:    1,
		shipperActive: make(map[string]bool),
	}
}

func (m *mockRepository) shipperFlag(code string) *bool {
	if active, ok := m.shipperActive[code]; ok {
		return &active
	}
	return nil
}

// WithTx snapshots state and restores it when fn fails.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	saved := make(map[int64]*Quotation, len(m.quotations))
	for id, q := range m.quotations {
		cp := *q
		cp.Lines = append([]Line(nil), q.Lines...)
		saved[id] = &cp
	}
	savedNumber := m.lastNumber
	if err := fn(ctx, m); err != nil {
		m.quotations = saved
		m.lastNumber = savedNumber
		return err
	}
	return nil
}

func (m *mockRepository) LatestNumber(ctx context.Context) (string, error) {
	return m.lastNumber, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, ok := m.quotations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *q
	cp.Lines = append([]Line(nil), q.Lines...)
	cp.ShipperActive = m.shipperFlag(q.ShipperCode)
	return &cp, nil
}

func (m *mockRepository) List(ctx context.Context) ([]Quotation, error) {
	var out []Quotation
	for id := range m.quotations {
		q, _ := m.Get(ctx, id)
		out = append(out, *q)
	}
	return out, nil
}

func (m *mockRepository) Create(ctx context.Context, q Quotation) (int64, error) {
	q.ID = m.nextID
	m.nextID++
	m.quotations[q.ID] = &q
	m.lastNumber = q.Number
	return q.ID, nil
}

func (m *mockRepository) Update(ctx context.Context, q Quotation) error {
	existing, ok := m.quotations[q.ID]
	if !ok {
		return shared.ErrNotFound
	}
	existing.ShipperCode = q.ShipperCode
	existing.MarketingCode = q.MarketingCode
	existing.StartDate = q.StartDate
	existing.EndDate = q.EndDate
	existing.Active = q.Active
	return nil
}

func (m *mockRepository) ListLines(ctx context.Context, quotationID int64) ([]Line, error) {
	q, ok := m.quotations[quotationID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return append([]Line(nil), q.Lines...), nil
}

func (m *mockRepository) InsertLine(ctx context.Context, l Line) (int64, error) {
	if m.insertLineError != nil {
		return 0, m.insertLineError
	}
	q, ok := m.quotations[l.QuotationID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	l.ID = m.nextLineID
	m.nextLineID++
	q.Lines = append(q.Lines, l)
	return l.ID, nil
}

func (m *mockRepository) UpdateLine(ctx context.Context, l Line) error {
	if m.updateLineError != nil {
		return m.updateLineError
	}
	for _, q := range m.quotations {
		for i := range q.Lines {
			if q.Lines[i].ID == l.ID {
				l.QuotationID = q.Lines[i].QuotationID
				q.Lines[i] = l
				return nil
			}
		}
	}
	return shared.ErrNotFound
}

func (m *mockRepository) DeleteLines(ctx context.Context, ids []int64) error {
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for _, q := range m.quotations {
		kept := q.Lines[:0]
		for _, l := range q.Lines {
			if !drop[l.ID] {
				kept = append(kept, l)
			}
		}
		q.Lines = kept
	}
	return nil
}

func (m *mockRepository) LineRows(ctx context.Context) ([]LineRow, error) {
	var out []LineRow
	for _, q := range m.quotations {
		for _, l := range q.Lines {
			out = append(out, LineRow{
				Line:            l,
				QuotationStart:  q.StartDate,
				QuotationEnd:    q.EndDate,
				QuotationActive: q.Active,
				ShipperActive:   m.shipperFlag(q.ShipperCode),
			})
		}
	}
	return out, nil
}

// ============================================================================
// MOCK COMPONENT SOURCE
// ============================================================================

type mockComponents struct {
	byLookup map[pricing.Lookup]pricing.ComponentRow
}

func newMockComponents() *mockComponents {
	return &mockComponents{byLookup: make(map[pricing.Lookup]pricing.ComponentRow)}
}

func (m *mockComponents) add(lookup pricing.Lookup, id int64, total int64) {
	m.byLookup[lookup] = pricing.ComponentRow{
		Component: pricing.Component{
			ID:            id,
			RouteCode:     lookup.RouteCode,
			PortCode:      lookup.PortCode,
			ContainerSize: lookup.ContainerSize,
			ContainerType: lookup.ContainerType,
			ServiceType:   lookup.ServiceType,
			BaseRate:      decimal.NewFromInt(total),
			Active:        true,
		},
		ListKind:         lookup.Kind,
		CounterpartyCode: lookup.Counterparty,
	}
}

func (m *mockComponents) FindComponent(ctx context.Context, lookup pricing.Lookup) (*pricing.ComponentRow, error) {
	row, ok := m.byLookup[lookup]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &row, nil
}

func (m *mockComponents) ComponentTotals(ctx context.Context, ids []int64) (map[int64]pricing.ComponentRow, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[int64]pricing.ComponentRow)
	for _, row := range m.byLookup {
		if want[row.ID] {
			out[row.ID] = row
		}
	}
	return out, nil
}

// ============================================================================
// HELPERS
// ============================================================================

var testNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepository, components *mockComponents) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, components, sequence.NewGenerator(true), shared.FixedClock{T: testNow}, logger)
}

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func lineInput(route string) SaveLineInput {
	return SaveLineInput{
		Route:             route,
		Port:              "TPK",
		DeliveryTo:        "CUS0002",
		ContainerSize:     "20 Feet",
		ContainerType:     "Dry",
		ServiceType:       "Door to Door",
		OriginVendor:      "VEN0001",
		DestinationVendor: "VEN0002",
		ShippingCompany:   "SHP0001",
		Surcharges: pricing.Surcharges{
			AdminBL:       money(10000),
			Cleaning:      money(5000),
			Transshipment: money(5000),
			StampDuty:     money(5000),
			Labor:         money(5000),
			Stuffing:      money(5000),
			Transit:       money(5000),
			Forwarding:    money(5000),
			Handling:      money(5000),
		},
		TaxSwitch:         pricing.SwitchInclude,
		TaxSurcharge:      money(10000),
		InsuranceSwitch:   pricing.SwitchInclude,
		InsuranceAmount:   money(1000000),
		InsuranceAdminFee: money(5000),
		PPNSwitch:         pricing.SwitchInclude,
		SellingPrice:      money(600000),
		Active:            true,
	}
}

func quotationRequest(shipper string, details ...SaveLineInput) SaveQuotationRequest {
	return SaveQuotationRequest{
		Shipper:   shipper,
		Marketing: "MKT0001",
		StartDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
		Active:    true,
		Details:   details,
	}
}

// registerComponents makes the three lookups of lineInput resolvable with the
// reference totals 100000 / 150000 / 200000.
func registerComponents(components *mockComponents, route string) {
	base := pricing.Lookup{
		RouteCode:     route,
		PortCode:      "TPK",
		ContainerSize: "20 Feet",
		ContainerType: "Dry",
		ServiceType:   "Door to Door",
	}
	origin := base
	origin.Kind = pricing.KindVendor
	origin.Counterparty = "VEN0001"
	components.add(origin, 101, 100000)

	dest := base
	dest.Kind = pricing.KindVendor
	dest.Counterparty = "VEN0002"
	components.add(dest, 102, 150000)

	sea := base
	sea.Kind = pricing.KindShipping
	sea.Counterparty = "SHP0001"
	components.add(sea, 103, 200000)
}

// ============================================================================
// SAVE TESTS
// ============================================================================

func TestSaveQuotationAssignsNumberAndDerivesValuation(t *testing.T) {
	repo := newMockRepository()
	components := newMockComponents()
	registerComponents(components, "RTE0001")
	svc := newTestService(repo, components)

	dto, err := svc.Save(context.Background(), quotationRequest("CUS0001", lineInput("RTE0001")))
	require.NoError(t, err)
	assert.Equal(t, "QUO0001", dto.Number)
	require.Len(t, dto.Details, 1)

	line := dto.Details[0]
	assert.True(t, line.OriginCost.Equal(money(100000)))
	assert.True(t, line.DestinationCost.Equal(money(150000)))
	assert.True(t, line.ShippingCost.Equal(money(200000)))

	v := line.Valuation
	assert.True(t, v.SurchargeTotal.Equal(money(50000)))
	assert.True(t, v.InsuranceSurcharge.Equal(money(6000)))
	assert.True(t, v.CostBasis.Equal(money(516000)), "hpp = %s", v.CostBasis)
	assert.True(t, v.SellingPriceExTax.Round(1).Equal(decimal.RequireFromString("593472.8")),
		"exTax = %s", v.SellingPriceExTax)
	assert.True(t, v.Profit.Round(1).Equal(decimal.RequireFromString("77472.8")),
		"profit = %s", v.Profit)

	// A lane that resolves no components is rejected with field errors
	// rather than silently priced at zero.
	_, err = svc.Save(context.Background(), quotationRequest("CUS0002", lineInput("RTE0002")))
	require.Error(t, err)
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fe.Fields()[0].Field, "details[0]")
}

func TestSaveQuotationStoresResolvedComponentIDs(t *testing.T) {
	repo := newMockRepository()
	components := newMockComponents()
	registerComponents(components, "RTE0001")
	svc := newTestService(repo, components)

	dto, err := svc.Save(context.Background(), quotationRequest("CUS0001", lineInput("RTE0001")))
	require.NoError(t, err)

	stored := repo.quotations[dto.ID].Lines[0]
	require.NotNil(t, stored.OriginComponentID)
	require.NotNil(t, stored.DestComponentID)
	require.NotNil(t, stored.ShippingComponentID)
	assert.Equal(t, int64(101), *stored.OriginComponentID)
	assert.Equal(t, int64(102), *stored.DestComponentID)
	assert.Equal(t, int64(103), *stored.ShippingComponentID)
}

func TestSaveQuotationRejectsUnmatchedComponent(t *testing.T) {
	repo := newMockRepository()
	components := newMockComponents()
	registerComponents(components, "RTE0001")
	svc := newTestService(repo, components)

	in := lineInput("RTE0001")
	in.OriginVendor = "VEN9999"
	_, err := svc.Save(context.Background(), quotationRequest("CUS0001", in))
	require.Error(t, err)

	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "details[0].originVendor", fe.Fields()[0].Field)
	assert.Empty(t, repo.quotations, "nothing persisted when a lookup misses")
}

func TestSaveQuotationRejectsDuplicateLaneInBatch(t *testing.T) {
	repo := newMockRepository()
	components := newMockComponents()
	registerComponents(components, "RTE0001")
	svc := newTestService(repo, components)

	_, err := svc.Save(context.Background(),
		quotationRequest("CUS0001", lineInput("RTE0001"), lineInput("RTE0001")))
	require.Error(t, err)

	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fe.Fields()[0].Field, "details[1]")
}

func TestSaveQuotationRejectsLaneOfferedElsewhere(t *testing.T) {
	repo := newMockRepository()
	components := newMockComponents()
	registerComponents(components, "RTE0001")
	svc := newTestService(repo, components)

	_, err := svc.Save(context.Background(), quotationRequest("CUS0001", lineInput("RTE0001")))
	require.NoError(t, err)

	// A different quotation offering the same lane collides system-wide.
	_, err = svc.Save(context.Background(), quotationRequest("CUS0002", lineInput("RTE0001")))
	require.Error(t, err)
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fe.Fields()[0].Field, "details[0]")
}

func TestSaveQuotationSelfEditKeepsOwnLane(t *testing.T) {
	repo := newMockRepository()
	components := newMockComponents()
	registerComponents(components, "RTE0001")
	svc := newTestService(repo, components)

	dto, err := svc.Save(context.Background(), quotationRequest("CUS0001", lineInput("RTE0001")))
	require.NoError(t, err)

	edit := quotationRequest("CUS0001", lineInput("RTE0001"))
	edit.ID = dto.ID
	edit.Details[0].ID = dto.Details[0].ID
	edit.Details[0].SellingPrice = money(650000)

	dto2, err := svc.Save(context.Background(), edit)
	require.NoError(t, err)
	assert.True(t, dto2.Details[0].SellingPrice.Equal(money(650000)))
	assert.Equal(t, dto.Number, dto2.Number)
}

func TestSaveQuotationAllowsLaneWhenOtherQuotationRetired(t *testing.T) {
	repo := newMockRepository()
	components := newMockComponents()
	registerComponents(components, "RTE0001")
	svc := newTestService(repo, components)

	first, err := svc.Save(context.Background(), quotationRequest("CUS0001", lineInput("RTE0001")))
	require.NoError(t, err)

	retire := quotationRequest("CUS0001", lineInput("RTE0001"))
	retire.ID = first.ID
	retire.Active = false
	retire.Details[0].ID = first.Details[0].ID
	_, err = svc.Save(context.Background(), retire)
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), quotationRequest("CUS0002", lineInput("RTE0001")))
	require.NoError(t, err)
}

func TestSaveQuotationReconcilesLines(t *testing.T) {
	repo := newMockRepository()
	components := newMockComponents()
	registerComponents(components, "RTE0001")
	registerComponents(components, "RTE0002")
	registerComponents(components, "RTE0003")
	svc := newTestService(repo, components)

	dto, err := svc.Save(context.Background(),
		quotationRequest("CUS0001", lineInput("RTE0001"), lineInput("RTE0002")))
	require.NoError(t, err)
	require.Len(t, dto.Details, 2)

	kept := lineInput("RTE0001")
	kept.ID = dto.Details[0].ID
	kept.SellingPrice = money(700000)
	edit := quotationRequest("CUS0001", kept, lineInput("RTE0003"))
	edit.ID = dto.ID

	dto2, err := svc.Save(context.Background(), edit)
	require.NoError(t, err)
	require.Len(t, dto2.Details, 2)

	byRoute := map[string]LineDTO{}
	for _, d := range dto2.Details {
		byRoute[d.Route] = d
	}
	require.Contains(t, byRoute, "RTE0001")
	require.Contains(t, byRoute, "RTE0003")
	assert.NotContains(t, byRoute, "RTE0002")
	assert.Equal(t, kept.ID, byRoute["RTE0001"].ID)
	assert.True(t, byRoute["RTE0001"].SellingPrice.Equal(money(700000)))
}

func TestSaveQuotationRollsBackOnFailure(t *testing.T) {
	repo := newMockRepository()
	components := newMockComponents()
	registerComponents(components, "RTE0001")
	registerComponents(components, "RTE0002")
	svc := newTestService(repo, components)

	dto, err := svc.Save(context.Background(), quotationRequest("CUS0001", lineInput("RTE0001")))
	require.NoError(t, err)

	repo.insertLineError = errors.New("boom")
	kept := lineInput("RTE0001")
	kept.ID = dto.Details[0].ID
	edit := quotationRequest("CUS0001", kept, lineInput("RTE0002"))
	edit.ID = dto.ID

	_, err = svc.Save(context.Background(), edit)
	require.Error(t, err)
	assert.Len(t, repo.quotations[dto.ID].Lines, 1, "failed save leaves the quotation untouched")
}

func TestSaveQuotationMapsUniqueViolationToField(t *testing.T) {
	repo := newMockRepository()
	components := newMockComponents()
	registerComponents(components, "RTE0001")
	svc := newTestService(repo, components)

	repo.insertLineError = &pgconn.PgError{Code: "23505", ConstraintName: "uq_quotation_lines_lane"}

	_, err := svc.Save(context.Background(), quotationRequest("CUS0001", lineInput("RTE0001")))
	require.Error(t, err)
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok, "unique violation must map to field errors, got %v", err)
	assert.Equal(t, "route", fe.Fields()[0].Field)
}

// ============================================================================
// STATUS CASCADE TESTS
// ============================================================================

func TestQuotationEffectiveFollowsShipper(t *testing.T) {
	repo := newMockRepository()
	components := newMockComponents()
	registerComponents(components, "RTE0001")
	svc := newTestService(repo, components)

	dto, err := svc.Save(context.Background(), quotationRequest("CUS0001", lineInput("RTE0001")))
	require.NoError(t, err)
	assert.True(t, dto.Effective)
	assert.True(t, dto.Details[0].Effective)

	// Deactivating the shipper flips the quotation and every line on the
	// next read without touching either record.
	repo.shipperActive["CUS0001"] = false
	after, err := svc.Get(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.False(t, after.Effective)
	assert.False(t, after.Details[0].Effective)
	assert.True(t, after.Active, "stored flag untouched")
}

func TestRetiredShipperLaneDoesNotBlockOthers(t *testing.T) {
	repo := newMockRepository()
	components := newMockComponents()
	registerComponents(components, "RTE0001")
	svc := newTestService(repo, components)

	_, err := svc.Save(context.Background(), quotationRequest("CUS0001", lineInput("RTE0001")))
	require.NoError(t, err)

	// With the first quotation's shipper retired its lines are no longer
	// effectively active, so the lane is free.
	repo.shipperActive["CUS0001"] = false
	_, err = svc.Save(context.Background(), quotationRequest("CUS0002", lineInput("RTE0001")))
	require.NoError(t, err)
}
