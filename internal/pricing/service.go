package pricing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/ItsMalma/fiems-sub000/internal/platform/db"
	"github.com/ItsMalma/fiems-sub000/internal/reconcile"
	"github.com/ItsMalma/fiems-sub000/internal/sequence"
	"github.com/ItsMalma/fiems-sub000/internal/shared"
	"github.com/ItsMalma/fiems-sub000/internal/status"
	"github.com/ItsMalma/fiems-sub000/internal/uniqueness"
)

type Service struct {
	repo     Repository
	seq      sequence.Generator
	clock    shared.Clock
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(repo Repository, seq sequence.Generator, clock shared.Clock, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		seq:      seq,
		clock:    clock,
		validate: shared.NewValidator(),
		logger:   logger,
	}
}

func listFamily(kind ListKind) sequence.Family {
	if kind == KindShipping {
		return sequence.FamilyShippingPrice
	}
	return sequence.FamilyVendorPrice
}

// Save creates or updates a price list with its full detail set. The natural
// key of every detail is checked against the submitted batch itself and
// against every other effectively active component of the same kind before
// the reconciled changes are applied in one transaction.
func (s *Service) Save(ctx context.Context, kind ListKind, req SavePriceListRequest) (*PriceListDTO, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.FromValidator(err).Err()
	}
	fe := &shared.FieldErrors{}
	if req.EndDate.Before(req.StartDate) {
		fe.Add("endDate", "must not precede startDate")
	}

	submitted := make([]Component, len(req.Details))
	keys := make([]uniqueness.Key, len(req.Details))
	for i, in := range req.Details {
		submitted[i] = Component{
			ID:            in.ID,
			PriceListID:   req.ID,
			RouteCode:     in.Route,
			PortCode:      in.Port,
			ContainerSize: in.ContainerSize,
			ContainerType: in.ContainerType,
			ServiceType:   in.ServiceType,
			BaseRate:      in.BaseRate,
			THC:           in.THC,
			BLFee:         in.BLFee,
			SealFee:       in.SealFee,
			LoLo:          in.LoLo,
			Storage:       in.Storage,
			Active:        in.Active,
		}
		keys[i] = submitted[i].NaturalKey(req.Counterparty)
	}

	// Sibling rows inside the same submission must not share a lane.
	fe.Merge(uniqueness.CheckBatch("details", keys))

	// Nor may any lane collide with another list's effectively active
	// component. Components of the list being edited are excluded through
	// their identity.
	existing, err := s.repo.ComponentRows(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("load components: %w", err)
	}
	now := s.clock.Now()
	for i, key := range keys {
		for _, row := range existing {
			if row.ListID == req.ID {
				continue
			}
			candidate := uniqueness.Candidate{
				ID:        row.ID,
				Key:       row.Component.NaturalKey(row.CounterpartyCode),
				Effective: status.Effective(now, row.StatusNode()),
			}
			if collision := uniqueness.Check(key, submitted[i].ID, []uniqueness.Candidate{candidate}); !collision.Empty() {
				for _, f := range key {
					fe.Add(fmt.Sprintf("details[%d].%s", i, f.Path), "already priced by another active list")
				}
				break
			}
		}
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	listID := req.ID
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		list := PriceList{
			ID:               req.ID,
			Kind:             kind,
			CounterpartyCode: req.Counterparty,
			StartDate:        req.StartDate,
			EndDate:          req.EndDate,
			Active:           req.Active,
		}

		if req.ID == 0 {
			last, err := repo.LatestNumber(ctx, kind)
			if err != nil {
				return fmt.Errorf("latest number: %w", err)
			}
			number, err := s.seq.Next(listFamily(kind), last, s.clock.Now())
			if err != nil {
				return fmt.Errorf("assign number: %w", err)
			}
			list.Number = number

			id, err := repo.CreateList(ctx, list)
			if err != nil {
				return fmt.Errorf("create list: %w", err)
			}
			listID = id
			for i := range submitted {
				submitted[i].PriceListID = id
				if _, err := repo.InsertComponent(ctx, submitted[i]); err != nil {
					return fmt.Errorf("insert component: %w", err)
				}
			}
			return nil
		}

		persisted, err := repo.ListDetails(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("load details: %w", err)
		}
		plan, err := reconcile.Diff(persisted, submitted)
		if err != nil {
			return err
		}
		if err := repo.DeleteComponents(ctx, plan.DeleteIDs); err != nil {
			return fmt.Errorf("delete components: %w", err)
		}
		for _, c := range plan.Updates {
			if err := repo.UpdateComponent(ctx, c); err != nil {
				return fmt.Errorf("update component: %w", err)
			}
		}
		for _, c := range plan.Inserts {
			c.PriceListID = req.ID
			if _, err := repo.InsertComponent(ctx, c); err != nil {
				return fmt.Errorf("insert component: %w", err)
			}
		}
		return repo.UpdateList(ctx, list)
	})
	if err != nil {
		if field, ok := db.ConstraintField(err); ok {
			cfe := &shared.FieldErrors{}
			cfe.Add(field, "already used by another record")
			return nil, cfe.Err()
		}
		return nil, err
	}

	return s.Get(ctx, listID)
}

func (s *Service) Get(ctx context.Context, id int64) (*PriceListDTO, error) {
	list, err := s.repo.GetList(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := s.mapList(*list)
	return &dto, nil
}

func (s *Service) List(ctx context.Context, kind ListKind) ([]PriceListDTO, error) {
	lists, err := s.repo.ListLists(ctx, kind)
	if err != nil {
		return nil, err
	}
	dtos := make([]PriceListDTO, 0, len(lists))
	for _, list := range lists {
		dtos = append(dtos, s.mapList(list))
	}
	return dtos, nil
}

func (s *Service) mapList(list PriceList) PriceListDTO {
	now := s.clock.Now()
	listNode := status.Windowed(list.Active, list.StartDate, list.EndDate)

	dto := PriceListDTO{
		ID:           list.ID,
		Kind:         list.Kind,
		Number:       list.Number,
		Counterparty: list.CounterpartyCode,
		StartDate:    list.StartDate,
		EndDate:      list.EndDate,
		Active:       list.Active,
		Effective:    status.Effective(now, listNode),
		Details:      make([]ComponentDTO, 0, len(list.Details)),
	}
	for _, c := range list.Details {
		dto.Details = append(dto.Details, ComponentDTO{
			ID:            c.ID,
			Route:         c.RouteCode,
			Port:          c.PortCode,
			ContainerSize: c.ContainerSize,
			ContainerType: c.ContainerType,
			ServiceType:   c.ServiceType,
			BaseRate:      c.BaseRate,
			THC:           c.THC,
			BLFee:         c.BLFee,
			SealFee:       c.SealFee,
			LoLo:          c.LoLo,
			Storage:       c.Storage,
			GrandTotal:    c.GrandTotal(),
			Active:        c.Active,
			Effective:     status.Effective(now, status.Leaf(c.Active).WithRefs(listNode)),
		})
	}
	return dto
}

// FindComponent resolves the first effectively active component matching the
// lookup tuple exactly. shared.ErrNotFound means no active component prices
// that lane.
func (s *Service) FindComponent(ctx context.Context, lookup Lookup) (*ComponentRow, error) {
	rows, err := s.repo.ComponentRows(ctx, lookup.Kind)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for _, row := range rows {
		if lookup.matches(row) && status.Effective(now, row.StatusNode()) {
			return &row, nil
		}
	}
	return nil, shared.ErrNotFound
}

// ComponentTotals fetches grand totals for already-resolved component IDs.
// Missing components contribute nothing; the valuation defaults them to
// zero rather than failing the read.
func (s *Service) ComponentTotals(ctx context.Context, ids []int64) (map[int64]ComponentRow, error) {
	rows, err := s.repo.ComponentRowsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	totals := make(map[int64]ComponentRow, len(rows))
	for _, row := range rows {
		totals[row.ID] = row
	}
	return totals, nil
}

// ExpiredLists reports effectively dead lists whose stored flag is still
// set, for the worker's expiry scan. Status stays derived; the scan only
// logs what operators should retire.
func (s *Service) ExpiredLists(ctx context.Context, kind ListKind) ([]PriceListDTO, error) {
	lists, err := s.repo.ListLists(ctx, kind)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	var expired []PriceListDTO
	for _, list := range lists {
		if list.Active && !status.Effective(now, status.Windowed(list.Active, list.StartDate, list.EndDate)) {
			expired = append(expired, s.mapList(list))
		}
	}
	return expired, nil
}
