package documents

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

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
	documents    map[int64]*Document
	nextID       int64
	nextDetailID int64
	lastNumbers  map[Family]string

	customerActive map[string]bool

	// Error injection
	insertDetailError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		documents:      make(map[int64]*Document),
		nextID:         1,
		nextDetailID:   1,
		lastNumbers:    make(map[Family]string),
		customerActive: make(map[string]bool),
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	saved := make(map[int64]*Document, len(m.documents))
	for id, d := range m.documents {
		cp := *d
		cp.Details = append([]Detail(nil), d.Details...)
		saved[id] = &cp
	}
	savedNumbers := make(map[Family]string, len(m.lastNumbers))
	for f, n := range m.lastNumbers {
		savedNumbers[f] = n
	}
	if err := fn(ctx, m); err != nil {
		m.documents = saved
		m.lastNumbers = savedNumbers
		return err
	}
	return nil
}

func (m *mockRepository) LatestNumber(ctx context.Context, family Family) (string, error) {
	return m.lastNumbers[family], nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Document, error) {
	d, ok := m.documents[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *d
	cp.Details = append([]Detail(nil), d.Details...)
	if active, ok := m.customerActive[d.CustomerCode]; ok {
		cp.CustomerActive = &active
	}
	return &cp, nil
}

func (m *mockRepository) List(ctx context.Context, family Family) ([]Document, error) {
	var out []Document
	for id, d := range m.documents {
		if d.Family == family {
			doc, _ := m.Get(ctx, id)
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (m *mockRepository) Create(ctx context.Context, d Document) (int64, error) {
	d.ID = m.nextID
	m.nextID++
	m.documents[d.ID] = &d
	m.lastNumbers[d.Family] = d.Number
	return d.ID, nil
}

func (m *mockRepository) Update(ctx context.Context, d Document) error {
	existing, ok := m.documents[d.ID]
	if !ok {
		return shared.ErrNotFound
	}
	existing.Date = d.Date
	existing.CustomerCode = d.CustomerCode
	existing.MarketingCode = d.MarketingCode
	existing.Remarks = d.Remarks
	existing.Active = d.Active
	return nil
}

func (m *mockRepository) ListDetails(ctx context.Context, documentID int64) ([]Detail, error) {
	d, ok := m.documents[documentID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return append([]Detail(nil), d.Details...), nil
}

func (m *mockRepository) InsertDetail(ctx context.Context, d Detail) (int64, error) {
	if m.insertDetailError != nil {
		return 0, m.insertDetailError
	}
	doc, ok := m.documents[d.DocumentID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	d.ID = m.nextDetailID
	m.nextDetailID++
	doc.Details = append(doc.Details, d)
	return d.ID, nil
}

func (m *mockRepository) UpdateDetail(ctx context.Context, d Detail) error {
	for _, doc := range m.documents {
		for i := range doc.Details {
			if doc.Details[i].ID == d.ID {
				d.DocumentID = doc.Details[i].DocumentID
				doc.Details[i] = d
				return nil
			}
		}
	}
	return shared.ErrNotFound
}

func (m *mockRepository) DeleteDetails(ctx context.Context, ids []int64) error {
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for _, doc := range m.documents {
		kept := doc.Details[:0]
		for _, d := range doc.Details {
			if !drop[d.ID] {
				kept = append(kept, d)
			}
		}
		doc.Details = kept
	}
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

func detailInput(description string) SaveDetailInput {
	return SaveDetailInput{
		Product:     "SKU0001",
		Route:       "RTE0001",
		Description: description,
		Quantity:    decimal.NewFromInt(2),
		Active:      true,
	}
}

func documentRequest(details ...SaveDetailInput) SaveDocumentRequest {
	return SaveDocumentRequest{
		Date:      testNow,
		Customer:  "CUS0001",
		Marketing: "MKT0001",
		Active:    true,
		Details:   details,
	}
}

// ============================================================================
// NUMBERING TESTS
// ============================================================================

func TestSaveDocumentSeedsNumberPerFamily(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	cases := []struct {
		family Family
		seed   string
		next   string
	}{
		{FamilyInquiry, "INQ0001", "INQ0002"},
		{FamilyRequest, "REQ0001", "REQ0002"},
		{FamilyDeliveryNote, "0001/SJ/March/2024", "0002/SJ/March/2024"},
		{FamilyHandover, "0001/BAST/March/2024", "0002/BAST/March/2024"},
	}
	for _, tc := range cases {
		first, err := svc.Save(context.Background(), tc.family, documentRequest(detailInput("first")))
		require.NoError(t, err, tc.family)
		assert.Equal(t, tc.seed, first.Number)

		second, err := svc.Save(context.Background(), tc.family, documentRequest(detailInput("second")))
		require.NoError(t, err, tc.family)
		assert.Equal(t, tc.next, second.Number)
	}
}

func TestSaveDocumentRejectsUnknownFamily(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	_, err := svc.Save(context.Background(), Family("invoice"), documentRequest(detailInput("x")))
	require.Error(t, err)
}

// ============================================================================
// RECONCILIATION TESTS
// ============================================================================

func TestSaveDocumentReconcilesDetails(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	dto, err := svc.Save(context.Background(), FamilyInquiry,
		documentRequest(detailInput("keep"), detailInput("drop")))
	require.NoError(t, err)
	require.Len(t, dto.Details, 2)

	kept := detailInput("keep")
	kept.ID = dto.Details[0].ID
	kept.Quantity = decimal.NewFromInt(5)
	edit := documentRequest(kept, detailInput("added"))
	edit.ID = dto.ID

	dto2, err := svc.Save(context.Background(), FamilyInquiry, edit)
	require.NoError(t, err)
	require.Len(t, dto2.Details, 2)

	byDesc := map[string]DetailDTO{}
	for _, d := range dto2.Details {
		byDesc[d.Description] = d
	}
	require.Contains(t, byDesc, "keep")
	require.Contains(t, byDesc, "added")
	assert.NotContains(t, byDesc, "drop")
	assert.Equal(t, kept.ID, byDesc["keep"].ID, "identity preserved on update")
	assert.True(t, byDesc["keep"].Quantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, dto.Number, dto2.Number)
}

func TestSaveDocumentNoOpEditChangesNothing(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	dto, err := svc.Save(context.Background(), FamilyRequest, documentRequest(detailInput("only")))
	require.NoError(t, err)

	edit := documentRequest(detailInput("only"))
	edit.ID = dto.ID
	edit.Details[0].ID = dto.Details[0].ID

	dto2, err := svc.Save(context.Background(), FamilyRequest, edit)
	require.NoError(t, err)
	assert.Equal(t, dto.Details[0].ID, dto2.Details[0].ID)
	assert.Equal(t, dto.Number, dto2.Number)
}

func TestSaveDocumentRejectsDuplicateDetailIdentity(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	dto, err := svc.Save(context.Background(), FamilyInquiry, documentRequest(detailInput("one")))
	require.NoError(t, err)

	dup := detailInput("one")
	dup.ID = dto.Details[0].ID
	edit := documentRequest(dup, dup)
	edit.ID = dto.ID

	_, err = svc.Save(context.Background(), FamilyInquiry, edit)
	require.Error(t, err)
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fe.Fields()[0].Field, "details[1]")
}

func TestSaveDocumentRollsBackOnFailure(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	dto, err := svc.Save(context.Background(), FamilyHandover, documentRequest(detailInput("only")))
	require.NoError(t, err)

	repo.insertDetailError = errors.New("boom")
	kept := detailInput("only")
	kept.ID = dto.Details[0].ID
	edit := documentRequest(kept, detailInput("new"))
	edit.ID = dto.ID

	_, err = svc.Save(context.Background(), FamilyHandover, edit)
	require.Error(t, err)
	assert.Len(t, repo.documents[dto.ID].Details, 1)
}

// ============================================================================
// STATUS TESTS
// ============================================================================

func TestDocumentDetailFlagIndependentOfParent(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	off := detailInput("off")
	off.Active = false
	dto, err := svc.Save(context.Background(), FamilyInquiry,
		documentRequest(detailInput("on"), off))
	require.NoError(t, err)

	byDesc := map[string]DetailDTO{}
	for _, d := range dto.Details {
		byDesc[d.Description] = d
	}
	assert.True(t, byDesc["on"].Effective)
	assert.False(t, byDesc["off"].Effective)
	assert.True(t, dto.Effective, "inactive detail does not drag the parent down")
}

func TestDocumentEffectiveFollowsCustomer(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	dto, err := svc.Save(context.Background(), FamilyInquiry, documentRequest(detailInput("only")))
	require.NoError(t, err)
	assert.True(t, dto.Effective)

	repo.customerActive["CUS0001"] = false
	after, err := svc.Get(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.False(t, after.Effective)
	assert.False(t, after.Details[0].Effective)
}
