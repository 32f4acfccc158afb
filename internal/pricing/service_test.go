package pricing

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

	"github.com/ItsMalma/fiems-sub000/internal/sequence"
	"github.com/ItsMalma/fiems-sub000/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	lists           map[int64]*PriceList
	lines           map[int64]*LineRef
	nextListID      int64
	nextComponentID int64
	lastNumber      map[ListKind]string

	// Error injection
	updateLineSizeError     error
	updateListComponentsErr error
	insertComponentError    error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		lists:           make(map[int64]*PriceList),
		lines:           make(map[int64]*LineRef),
		nextListID:      1,
		nextComponentID: 1,
		lastNumber:      make(map[ListKind]string),
	}
}

// WithTx snapshots the in-memory state and restores it when fn fails, so
// tests can assert that a failed cascade leaves nothing half applied.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	savedLists := make(map[int64]*PriceList, len(m.lists))
	for id, list := range m.lists {
		cp := *list
		cp.Details = append([]Component(nil), list.Details...)
		savedLists[id] = &cp
	}
	savedLines := make(map[int64]*LineRef, len(m.lines))
	for id, line := range m.lines {
		cp := *line
		savedLines[id] = &cp
	}
	if err := fn(ctx, m); err != nil {
		m.lists = savedLists
		m.lines = savedLines
		return err
	}
	return nil
}

func (m *mockRepository) LatestNumber(ctx context.Context, kind ListKind) (string, error) {
	return m.lastNumber[kind], nil
}

func (m *mockRepository) GetList(ctx context.Context, id int64) (*PriceList, error) {
	list, ok := m.lists[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *list
	cp.Details = append([]Component(nil), list.Details...)
	return &cp, nil
}

func (m *mockRepository) ListLists(ctx context.Context, kind ListKind) ([]PriceList, error) {
	var out []PriceList
	for _, list := range m.lists {
		if list.Kind == kind {
			cp := *list
			cp.Details = append([]Component(nil), list.Details...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *mockRepository) CreateList(ctx context.Context, list PriceList) (int64, error) {
	list.ID = m.nextListID
	m.nextListID++
	m.lists[list.ID] = &list
	m.lastNumber[list.Kind] = list.Number
	return list.ID, nil
}

func (m *mockRepository) UpdateList(ctx context.Context, list PriceList) error {
	existing, ok := m.lists[list.ID]
	if !ok {
		return shared.ErrNotFound
	}
	existing.CounterpartyCode = list.CounterpartyCode
	existing.StartDate = list.StartDate
	existing.EndDate = list.EndDate
	existing.Active = list.Active
	return nil
}

func (m *mockRepository) ListDetails(ctx context.Context, listID int64) ([]Component, error) {
	list, ok := m.lists[listID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return append([]Component(nil), list.Details...), nil
}

func (m *mockRepository) InsertComponent(ctx context.Context, c Component) (int64, error) {
	if m.insertComponentError != nil {
		return 0, m.insertComponentError
	}
	list, ok := m.lists[c.PriceListID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	c.ID = m.nextComponentID
	m.nextComponentID++
	list.Details = append(list.Details, c)
	return c.ID, nil
}

func (m *mockRepository) UpdateComponent(ctx context.Context, c Component) error {
	list, ok := m.lists[c.PriceListID]
	if !ok {
		return shared.ErrNotFound
	}
	for i := range list.Details {
		if list.Details[i].ID == c.ID {
			list.Details[i] = c
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *mockRepository) DeleteComponents(ctx context.Context, ids []int64) error {
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for _, list := range m.lists {
		kept := list.Details[:0]
		for _, c := range list.Details {
			if !drop[c.ID] {
				kept = append(kept, c)
			}
		}
		list.Details = kept
	}
	return nil
}

func (m *mockRepository) rowFor(list *PriceList, c Component) ComponentRow {
	return ComponentRow{
		Component:        c,
		ListID:           list.ID,
		ListKind:         list.Kind,
		ListNumber:       list.Number,
		CounterpartyCode: list.CounterpartyCode,
		ListStart:        list.StartDate,
		ListEnd:          list.EndDate,
		ListActive:       list.Active,
	}
}

func (m *mockRepository) ComponentRows(ctx context.Context, kind ListKind) ([]ComponentRow, error) {
	var rows []ComponentRow
	for _, list := range m.lists {
		if list.Kind != kind {
			continue
		}
		for _, c := range list.Details {
			rows = append(rows, m.rowFor(list, c))
		}
	}
	return rows, nil
}

func (m *mockRepository) GetComponentRow(ctx context.Context, id int64) (*ComponentRow, error) {
	for _, list := range m.lists {
		for _, c := range list.Details {
			if c.ID == id {
				row := m.rowFor(list, c)
				return &row, nil
			}
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) ComponentRowsByID(ctx context.Context, ids []int64) ([]ComponentRow, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var rows []ComponentRow
	for _, list := range m.lists {
		for _, c := range list.Details {
			if want[c.ID] {
				rows = append(rows, m.rowFor(list, c))
			}
		}
	}
	return rows, nil
}

func (m *mockRepository) UpdateComponentSize(ctx context.Context, id int64, size string) error {
	for _, list := range m.lists {
		for i := range list.Details {
			if list.Details[i].ID == id {
				list.Details[i].ContainerSize = size
				return nil
			}
		}
	}
	return shared.ErrNotFound
}

func (m *mockRepository) UpdateComponentsSizeForLists(ctx context.Context, listIDs []int64, from, to, serviceType, portCode, containerType string) error {
	if m.updateListComponentsErr != nil {
		return m.updateListComponentsErr
	}
	want := make(map[int64]bool, len(listIDs))
	for _, id := range listIDs {
		want[id] = true
	}
	for _, list := range m.lists {
		if !want[list.ID] {
			continue
		}
		for i := range list.Details {
			c := &list.Details[i]
			if c.ContainerSize == from && c.ServiceType == serviceType &&
				c.PortCode == portCode && c.ContainerType == containerType {
				c.ContainerSize = to
			}
		}
	}
	return nil
}

func (m *mockRepository) LinesReferencing(ctx context.Context, componentID int64) ([]LineRef, error) {
	var out []LineRef
	for _, line := range m.lines {
		if (line.OriginComponentID != nil && *line.OriginComponentID == componentID) ||
			(line.DestComponentID != nil && *line.DestComponentID == componentID) {
			out = append(out, *line)
		}
	}
	return out, nil
}

func (m *mockRepository) UpdateLineSize(ctx context.Context, lineID int64, size string) error {
	if m.updateLineSizeError != nil {
		return m.updateLineSizeError
	}
	line, ok := m.lines[lineID]
	if !ok {
		return shared.ErrNotFound
	}
	line.ContainerSize = size
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

var testNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepository) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, sequence.NewGenerator(true), shared.FixedClock{T: testNow}, logger)
}

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func validWindow() (time.Time, time.Time) {
	return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func componentInput(route string) SaveComponentInput {
	return SaveComponentInput{
		Route:         route,
		Port:          "TPK",
		ContainerSize: Size20Feet,
		ContainerType: "Dry",
		ServiceType:   "Door to Door",
		BaseRate:      money(500000),
		THC:           money(50000),
		BLFee:         money(10000),
		SealFee:       money(5000),
		LoLo:          money(20000),
		Storage:       money(15000),
		Active:        true,
	}
}

func listRequest(counterparty string, details ...SaveComponentInput) SavePriceListRequest {
	start, end := validWindow()
	return SavePriceListRequest{
		Counterparty: counterparty,
		StartDate:    start,
		EndDate:      end,
		Active:       true,
		Details:      details,
	}
}

// ============================================================================
// SAVE TESTS
// ============================================================================

func TestSaveAssignsNumberAndPersistsDetails(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	dto, err := svc.Save(context.Background(), KindVendor, listRequest("VEN0001", componentInput("RTE0001")))
	require.NoError(t, err)
	assert.Equal(t, "VPL0001", dto.Number)
	require.Len(t, dto.Details, 1)
	assert.True(t, dto.Details[0].GrandTotal.Equal(money(600000)))
	assert.True(t, dto.Effective)
	assert.True(t, dto.Details[0].Effective)

	dto2, err := svc.Save(context.Background(), KindVendor, listRequest("VEN0002", componentInput("RTE0002")))
	require.NoError(t, err)
	assert.Equal(t, "VPL0002", dto2.Number)
}

func TestSaveShippingUsesOwnSequence(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	_, err := svc.Save(context.Background(), KindVendor, listRequest("VEN0001", componentInput("RTE0001")))
	require.NoError(t, err)

	dto, err := svc.Save(context.Background(), KindShipping, listRequest("SHP0001", componentInput("RTE0001")))
	require.NoError(t, err)
	assert.Equal(t, "SPL0001", dto.Number)
}

func TestSaveRejectsDuplicateLaneInBatch(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	_, err := svc.Save(context.Background(), KindVendor,
		listRequest("VEN0001", componentInput("RTE0001"), componentInput("RTE0001")))
	require.Error(t, err)

	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	fields := fe.Fields()
	require.NotEmpty(t, fields)
	assert.Contains(t, fields[0].Field, "details[1]")
	assert.Empty(t, repo.lists, "nothing persisted on validation failure")
}

func TestSaveRejectsLanePricedByAnotherActiveList(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	_, err := svc.Save(context.Background(), KindVendor, listRequest("VEN0001", componentInput("RTE0001")))
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), KindVendor, listRequest("VEN0001", componentInput("RTE0001")))
	require.Error(t, err)
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fe.Fields()[0].Field, "details[0]")
}

func TestSaveAllowsLaneWhenSiblingListIsRetired(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	first, err := svc.Save(context.Background(), KindVendor, listRequest("VEN0001", componentInput("RTE0001")))
	require.NoError(t, err)

	// Retire the first list, keeping its details untouched.
	retire := listRequest("VEN0001", componentInput("RTE0001"))
	retire.ID = first.ID
	retire.Active = false
	retire.Details[0].ID = first.Details[0].ID
	_, err = svc.Save(context.Background(), KindVendor, retire)
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), KindVendor, listRequest("VEN0001", componentInput("RTE0001")))
	require.NoError(t, err)
}

func TestSaveAllowsSameLaneAcrossKinds(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	_, err := svc.Save(context.Background(), KindVendor, listRequest("VEN0001", componentInput("RTE0001")))
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), KindShipping, listRequest("VEN0001", componentInput("RTE0001")))
	require.NoError(t, err)
}

func TestSaveReconcilesDetails(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	dto, err := svc.Save(context.Background(), KindVendor,
		listRequest("VEN0001", componentInput("RTE0001"), componentInput("RTE0002")))
	require.NoError(t, err)
	require.Len(t, dto.Details, 2)

	// Keep the first detail with a changed rate, drop the second, add a third.
	kept := componentInput("RTE0001")
	kept.ID = dto.Details[0].ID
	kept.BaseRate = money(700000)
	update := listRequest("VEN0001", kept, componentInput("RTE0003"))
	update.ID = dto.ID

	dto2, err := svc.Save(context.Background(), KindVendor, update)
	require.NoError(t, err)
	require.Len(t, dto2.Details, 2)

	byRoute := map[string]ComponentDTO{}
	for _, d := range dto2.Details {
		byRoute[d.Route] = d
	}
	require.Contains(t, byRoute, "RTE0001")
	require.Contains(t, byRoute, "RTE0003")
	assert.NotContains(t, byRoute, "RTE0002")
	assert.Equal(t, kept.ID, byRoute["RTE0001"].ID, "updated in place, identity preserved")
	assert.True(t, byRoute["RTE0001"].BaseRate.Equal(money(700000)))
	assert.Equal(t, dto.Number, dto2.Number, "number assigned once, never on update")
}

func TestSaveRollsBackWhenInsertFails(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	dto, err := svc.Save(context.Background(), KindVendor, listRequest("VEN0001", componentInput("RTE0001")))
	require.NoError(t, err)

	repo.insertComponentError = errors.New("boom")
	kept := componentInput("RTE0001")
	kept.ID = dto.Details[0].ID
	update := listRequest("VEN0001", kept, componentInput("RTE0002"))
	update.ID = dto.ID

	_, err = svc.Save(context.Background(), KindVendor, update)
	require.Error(t, err)

	after, err := svc.Get(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Len(t, after.Details, 1, "failed save leaves the list untouched")
}

func TestSaveMapsUniqueViolationToField(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	// The partial unique index is the second line of defense behind the
	// guard; a violation surfacing at commit must land on the same field.
	repo.insertComponentError = &pgconn.PgError{Code: "23505", ConstraintName: "uq_price_components_key"}

	_, err := svc.Save(context.Background(), KindVendor, listRequest("VEN0001", componentInput("RTE0001")))
	require.Error(t, err)
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok, "unique violation must map to field errors, got %v", err)
	assert.Equal(t, "route", fe.Fields()[0].Field)
}

func TestSaveRejectsInvertedWindow(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	req := listRequest("VEN0001", componentInput("RTE0001"))
	req.StartDate, req.EndDate = req.EndDate, req.StartDate
	_, err := svc.Save(context.Background(), KindVendor, req)
	require.Error(t, err)
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "endDate", fe.Fields()[0].Field)
}

// ============================================================================
// LOOKUP TESTS
// ============================================================================

func TestFindComponentMatchesFullTuple(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	_, err := svc.Save(context.Background(), KindShipping, listRequest("SHP0001", componentInput("RTE0001")))
	require.NoError(t, err)

	lookup := Lookup{
		Kind:          KindShipping,
		Counterparty:  "SHP0001",
		RouteCode:     "RTE0001",
		PortCode:      "TPK",
		ContainerSize: Size20Feet,
		ContainerType: "Dry",
		ServiceType:   "Door to Door",
	}
	row, err := svc.FindComponent(context.Background(), lookup)
	require.NoError(t, err)
	assert.True(t, row.GrandTotal().Equal(money(600000)))

	lookup.ContainerSize = Size40HC
	_, err = svc.FindComponent(context.Background(), lookup)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFindComponentSkipsLapsedLists(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	req := listRequest("SHP0001", componentInput("RTE0001"))
	req.StartDate = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	req.EndDate = time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)
	_, err := svc.Save(context.Background(), KindShipping, req)
	require.NoError(t, err)

	_, err = svc.FindComponent(context.Background(), Lookup{
		Kind:          KindShipping,
		Counterparty:  "SHP0001",
		RouteCode:     "RTE0001",
		PortCode:      "TPK",
		ContainerSize: Size20Feet,
		ContainerType: "Dry",
		ServiceType:   "Door to Door",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// ============================================================================
// EXPIRY SCAN TESTS
// ============================================================================

func TestExpiredListsReportsLapsedButStillFlagged(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	lapsed := listRequest("VEN0001", componentInput("RTE0001"))
	lapsed.StartDate = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	lapsed.EndDate = time.Date(2023, time.June, 30, 0, 0, 0, 0, time.UTC)
	_, err := svc.Save(context.Background(), KindVendor, lapsed)
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), KindVendor, listRequest("VEN0002", componentInput("RTE0002")))
	require.NoError(t, err)

	expired, err := svc.ExpiredLists(context.Background(), KindVendor)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "VEN0001", expired[0].Counterparty)
	assert.False(t, expired[0].Effective)
	assert.True(t, expired[0].Active, "expiry is derived, the stored flag stays")
}

// ============================================================================
// COMBO CONVERSION TESTS
// ============================================================================

func seedCombo(t *testing.T, repo *mockRepository, svc *Service) (truckingID, shippingComponentID, lineID int64) {
	t.Helper()

	trucking := componentInput("RTE0001")
	trucking.ContainerSize = Size40HC
	vendorList, err := svc.Save(context.Background(), KindVendor, listRequest("VEN0001", trucking))
	require.NoError(t, err)
	truckingID = vendorList.Details[0].ID

	sea := componentInput("RTE0001")
	sea.ContainerSize = Size40HC
	shippingList, err := svc.Save(context.Background(), KindShipping, listRequest("SHP0001", sea))
	require.NoError(t, err)
	shippingComponentID = shippingList.Details[0].ID

	lineID = 1
	repo.lines[lineID] = &LineRef{
		ID:                  lineID,
		ServiceType:         "Door to Door",
		PortCode:            "TPK",
		ContainerSize:       Size40HC,
		ContainerType:       "Dry",
		OriginComponentID:   &truckingID,
		ShippingComponentID: &shippingComponentID,
	}
	return truckingID, shippingComponentID, lineID
}

func TestConvertComboCascades(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	truckingID, shippingID, lineID := seedCombo(t, repo, svc)

	require.NoError(t, svc.ConvertCombo(context.Background(), truckingID))

	trucking, err := repo.GetComponentRow(context.Background(), truckingID)
	require.NoError(t, err)
	assert.Equal(t, Size20Feet, trucking.ContainerSize)

	assert.Equal(t, Size20Feet, repo.lines[lineID].ContainerSize)

	// The shipping component the line resolved is reached through its list.
	sea, err := repo.GetComponentRow(context.Background(), shippingID)
	require.NoError(t, err)
	assert.Equal(t, Size20Feet, sea.ContainerSize)
}

func TestConvertComboWithoutLines(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	trucking := componentInput("RTE0001")
	trucking.ContainerSize = Size40HC
	list, err := svc.Save(context.Background(), KindVendor, listRequest("VEN0001", trucking))
	require.NoError(t, err)

	require.NoError(t, svc.ConvertCombo(context.Background(), list.Details[0].ID))

	row, err := repo.GetComponentRow(context.Background(), list.Details[0].ID)
	require.NoError(t, err)
	assert.Equal(t, Size20Feet, row.ContainerSize)
}

func TestConvertComboRejectsShippingComponent(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	sea := componentInput("RTE0001")
	sea.ContainerSize = Size40HC
	list, err := svc.Save(context.Background(), KindShipping, listRequest("SHP0001", sea))
	require.NoError(t, err)

	err = svc.ConvertCombo(context.Background(), list.Details[0].ID)
	require.Error(t, err)
	_, ok := shared.AsFieldErrors(err)
	assert.True(t, ok)
}

func TestConvertComboRejectsTwentyFeetComponent(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	list, err := svc.Save(context.Background(), KindVendor, listRequest("VEN0001", componentInput("RTE0001")))
	require.NoError(t, err)

	err = svc.ConvertCombo(context.Background(), list.Details[0].ID)
	require.Error(t, err)
	_, ok := shared.AsFieldErrors(err)
	assert.True(t, ok)
}

func TestConvertComboIsAtomic(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	truckingID, shippingID, lineID := seedCombo(t, repo, svc)

	repo.updateListComponentsErr = errors.New("boom")
	err := svc.ConvertCombo(context.Background(), truckingID)
	require.Error(t, err)

	// Every step before the failure is rolled back.
	trucking, err := repo.GetComponentRow(context.Background(), truckingID)
	require.NoError(t, err)
	assert.Equal(t, Size40HC, trucking.ContainerSize)
	assert.Equal(t, Size40HC, repo.lines[lineID].ContainerSize)
	sea, err := repo.GetComponentRow(context.Background(), shippingID)
	require.NoError(t, err)
	assert.Equal(t, Size40HC, sea.ContainerSize)
}

func TestConvertComboSkipsAlreadyConvertedLines(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	truckingID, _, lineID := seedCombo(t, repo, svc)
	repo.lines[lineID].ContainerSize = Size20Feet

	repo.updateLineSizeError = errors.New("should not be called")
	require.NoError(t, svc.ConvertCombo(context.Background(), truckingID))
}
