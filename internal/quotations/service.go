package quotations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/ItsMalma/fiems-sub000/internal/platform/db"
	"github.com/ItsMalma/fiems-sub000/internal/pricing"
	"github.com/ItsMalma/fiems-sub000/internal/reconcile"
	"github.com/ItsMalma/fiems-sub000/internal/sequence"
	"github.com/ItsMalma/fiems-sub000/internal/shared"
	"github.com/ItsMalma/fiems-sub000/internal/status"
	"github.com/ItsMalma/fiems-sub000/internal/uniqueness"
)

// ComponentSource resolves price components for quotation lines. Satisfied
// by the pricing service.
type ComponentSource interface {
	FindComponent(ctx context.Context, lookup pricing.Lookup) (*pricing.ComponentRow, error)
	ComponentTotals(ctx context.Context, ids []int64) (map[int64]pricing.ComponentRow, error)
}

type Service struct {
	repo       Repository
	components ComponentSource
	seq        sequence.Generator
	clock      shared.Clock
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewService(repo Repository, components ComponentSource, seq sequence.Generator, clock shared.Clock, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		components: components,
		seq:        seq,
		clock:      clock,
		validate:   shared.NewValidator(),
		logger:     logger,
	}
}

// Save creates or updates a quotation with its lines. Each line's three cost
// components are resolved here, at save time, and their identities stored on
// the line; a lookup that matches no effectively active component aborts the
// save with field errors naming the unmatched selection.
func (s *Service) Save(ctx context.Context, req SaveQuotationRequest) (*QuotationDTO, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.FromValidator(err).Err()
	}
	fe := &shared.FieldErrors{}
	if req.EndDate.Before(req.StartDate) {
		fe.Add("endDate", "must not precede startDate")
	}

	submitted := make([]Line, len(req.Details))
	keys := make([]uniqueness.Key, len(req.Details))
	for i, in := range req.Details {
		l := Line{
			ID:                in.ID,
			QuotationID:       req.ID,
			RouteCode:         in.Route,
			PortCode:          in.Port,
			DeliveryTo:        in.DeliveryTo,
			ContainerSize:     in.ContainerSize,
			ContainerType:     in.ContainerType,
			ServiceType:       in.ServiceType,
			OriginVendorCode:  in.OriginVendor,
			DestinationVendor: in.DestinationVendor,
			ShippingCode:      in.ShippingCompany,
			Surcharges:        in.Surcharges,
			TaxSwitch:         in.TaxSwitch,
			TaxSurcharge:      in.TaxSurcharge,
			InsuranceSwitch:   in.InsuranceSwitch,
			InsuranceAmount:   in.InsuranceAmount,
			InsuranceAdminFee: in.InsuranceAdminFee,
			PPNSwitch:         in.PPNSwitch,
			SellingPrice:      in.SellingPrice,
			Active:            in.Active,
		}
		s.resolveComponents(ctx, &l, i, fe)
		submitted[i] = l
		keys[i] = l.NaturalKey()
	}

	fe.Merge(uniqueness.CheckBatch("details", keys))

	// A lane may be offered by at most one effectively active line across
	// the whole system. Lines of the quotation being edited are superseded
	// by the submitted batch and excluded wholesale.
	persisted, err := s.repo.LineRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	now := s.clock.Now()
	for i, key := range keys {
		for _, row := range persisted {
			if row.QuotationID == req.ID {
				continue
			}
			candidate := uniqueness.Candidate{
				ID:        row.ID,
				Key:       row.NaturalKey(),
				Effective: status.Effective(now, row.StatusNode()),
			}
			if collision := uniqueness.Check(key, submitted[i].ID, []uniqueness.Candidate{candidate}); !collision.Empty() {
				for _, f := range key {
					fe.Add(fmt.Sprintf("details[%d].%s", i, f.Path), "lane already offered by another active quotation")
				}
				break
			}
		}
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	quotationID := req.ID
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q := Quotation{
			ID:            req.ID,
			ShipperCode:   req.Shipper,
			MarketingCode: req.Marketing,
			StartDate:     req.StartDate,
			EndDate:       req.EndDate,
			Active:        req.Active,
		}

		if req.ID == 0 {
			last, err := repo.LatestNumber(ctx)
			if err != nil {
				return fmt.Errorf("latest number: %w", err)
			}
			q.Number, err = s.seq.Next(sequence.FamilyQuotation, last, s.clock.Now())
			if err != nil {
				return fmt.Errorf("assign number: %w", err)
			}

			id, err := repo.Create(ctx, q)
			if err != nil {
				return fmt.Errorf("create quotation: %w", err)
			}
			quotationID = id
			for i := range submitted {
				submitted[i].QuotationID = id
				if _, err := repo.InsertLine(ctx, submitted[i]); err != nil {
					return fmt.Errorf("insert line: %w", err)
				}
			}
			return nil
		}

		current, err := repo.ListLines(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("load lines: %w", err)
		}
		plan, err := reconcile.Diff(current, submitted)
		if err != nil {
			return err
		}
		if err := repo.DeleteLines(ctx, plan.DeleteIDs); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		for _, l := range plan.Updates {
			if err := repo.UpdateLine(ctx, l); err != nil {
				return fmt.Errorf("update line: %w", err)
			}
		}
		for _, l := range plan.Inserts {
			l.QuotationID = req.ID
			if _, err := repo.InsertLine(ctx, l); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}
		return repo.Update(ctx, q)
	})
	if err != nil {
		if field, ok := db.ConstraintField(err); ok {
			cfe := &shared.FieldErrors{}
			cfe.Add(field, "already used by another record")
			return nil, cfe.Err()
		}
		return nil, err
	}

	return s.Get(ctx, quotationID)
}

func (s *Service) resolveComponents(ctx context.Context, l *Line, i int, fe *shared.FieldErrors) {
	base := pricing.Lookup{
		RouteCode:     l.RouteCode,
		PortCode:      l.PortCode,
		ContainerSize: l.ContainerSize,
		ContainerType: l.ContainerType,
		ServiceType:   l.ServiceType,
	}

	origin := base
	origin.Kind = pricing.KindVendor
	origin.Counterparty = l.OriginVendorCode
	l.OriginComponentID = s.resolveOne(ctx, origin, fmt.Sprintf("details[%d].originVendor", i), fe)

	dest := base
	dest.Kind = pricing.KindVendor
	dest.Counterparty = l.DestinationVendor
	l.DestComponentID = s.resolveOne(ctx, dest, fmt.Sprintf("details[%d].destinationVendor", i), fe)

	sea := base
	sea.Kind = pricing.KindShipping
	sea.Counterparty = l.ShippingCode
	l.ShippingComponentID = s.resolveOne(ctx, sea, fmt.Sprintf("details[%d].shippingCompany", i), fe)
}

func (s *Service) resolveOne(ctx context.Context, lookup pricing.Lookup, path string, fe *shared.FieldErrors) *int64 {
	row, err := s.components.FindComponent(ctx, lookup)
	if err != nil {
		fe.Add(path, "no active price component matches this selection")
		return nil
	}
	return &row.ID
}

func (s *Service) Get(ctx context.Context, id int64) (*QuotationDTO, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.mapQuotation(ctx, *q)
}

func (s *Service) List(ctx context.Context) ([]QuotationDTO, error) {
	quotations, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]QuotationDTO, 0, len(quotations))
	for _, q := range quotations {
		dto, err := s.mapQuotation(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, *dto)
	}
	return out, nil
}

// mapQuotation builds the read model: effective status resolved fresh and
// every line's valuation recomputed from the current component totals. A
// component deleted since save contributes zero rather than failing the read.
func (s *Service) mapQuotation(ctx context.Context, q Quotation) (*QuotationDTO, error) {
	var ids []int64
	for _, l := range q.Lines {
		for _, id := range []*int64{l.OriginComponentID, l.DestComponentID, l.ShippingComponentID} {
			if id != nil {
				ids = append(ids, *id)
			}
		}
	}
	totals := map[int64]pricing.ComponentRow{}
	if len(ids) > 0 {
		var err error
		totals, err = s.components.ComponentTotals(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load component totals: %w", err)
		}
	}

	now := s.clock.Now()
	parent := q.StatusNode()

	dto := QuotationDTO{
		ID:        q.ID,
		Number:    q.Number,
		Shipper:   q.ShipperCode,
		Marketing: q.MarketingCode,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Active:    q.Active,
		Effective: status.Effective(now, parent),
		Details:   make([]LineDTO, 0, len(q.Lines)),
	}
	for _, l := range q.Lines {
		in := pricing.ValuationInput{
			Surcharges:        l.Surcharges,
			TaxSwitch:         l.TaxSwitch,
			TaxSurcharge:      l.TaxSurcharge,
			InsuranceSwitch:   l.InsuranceSwitch,
			InsuranceAmount:   l.InsuranceAmount,
			InsuranceAdminFee: l.InsuranceAdminFee,
			PPNSwitch:         l.PPNSwitch,
			SellingPrice:      l.SellingPrice,
		}
		if l.OriginComponentID != nil {
			if row, ok := totals[*l.OriginComponentID]; ok {
				in.OriginTrucking = row.GrandTotal()
			}
		}
		if l.DestComponentID != nil {
			if row, ok := totals[*l.DestComponentID]; ok {
				in.DestinationTrucking = row.GrandTotal()
			}
		}
		if l.ShippingComponentID != nil {
			if row, ok := totals[*l.ShippingComponentID]; ok {
				in.ShippingLeg = row.GrandTotal()
			}
		}

		dto.Details = append(dto.Details, LineDTO{
			ID:                l.ID,
			Route:             l.RouteCode,
			Port:              l.PortCode,
			DeliveryTo:        l.DeliveryTo,
			ContainerSize:     l.ContainerSize,
			ContainerType:     l.ContainerType,
			ServiceType:       l.ServiceType,
			OriginVendor:      l.OriginVendorCode,
			DestinationVendor: l.DestinationVendor,
			ShippingCompany:   l.ShippingCode,
			OriginCost:        in.OriginTrucking,
			DestinationCost:   in.DestinationTrucking,
			ShippingCost:      in.ShippingLeg,
			Surcharges:        l.Surcharges,
			TaxSwitch:         l.TaxSwitch,
			TaxSurcharge:      l.TaxSurcharge,
			InsuranceSwitch:   l.InsuranceSwitch,
			InsuranceAmount:   l.InsuranceAmount,
			InsuranceAdminFee: l.InsuranceAdminFee,
			PPNSwitch:         l.PPNSwitch,
			SellingPrice:      l.SellingPrice,
			Valuation:         pricing.Valuate(in),
			Active:            l.Active,
			Effective:         status.Effective(now, status.Leaf(l.Active).WithRefs(parent)),
		})
	}
	return &dto, nil
}
