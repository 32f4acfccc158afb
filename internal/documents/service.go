package documents

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
)

// Service handles every document family through one save/read path; the
// family only selects the number format.
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

func (s *Service) Save(ctx context.Context, family Family, req SaveDocumentRequest) (*DocumentDTO, error) {
	if !family.Valid() {
		return nil, fmt.Errorf("documents: unknown family %q", family)
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.FromValidator(err).Err()
	}

	submitted := make([]Detail, len(req.Details))
	for i, in := range req.Details {
		submitted[i] = Detail{
			ID:          in.ID,
			DocumentID:  req.ID,
			ProductCode: in.Product,
			RouteCode:   in.Route,
			Description: in.Description,
			Quantity:    in.Quantity,
			Active:      in.Active,
		}
	}

	documentID := req.ID
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		doc := Document{
			ID:            req.ID,
			Family:        family,
			Date:          req.Date,
			CustomerCode:  req.Customer,
			MarketingCode: req.Marketing,
			Remarks:       req.Remarks,
			Active:        req.Active,
		}

		if req.ID == 0 {
			last, err := repo.LatestNumber(ctx, family)
			if err != nil {
				return fmt.Errorf("latest number: %w", err)
			}
			doc.Number, err = s.seq.Next(sequenceFamilies[family], last, s.clock.Now())
			if err != nil {
				return fmt.Errorf("assign number: %w", err)
			}

			id, err := repo.Create(ctx, doc)
			if err != nil {
				return fmt.Errorf("create document: %w", err)
			}
			documentID = id
			for i := range submitted {
				submitted[i].DocumentID = id
				if _, err := repo.InsertDetail(ctx, submitted[i]); err != nil {
					return fmt.Errorf("insert detail: %w", err)
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
		if err := repo.DeleteDetails(ctx, plan.DeleteIDs); err != nil {
			return fmt.Errorf("delete details: %w", err)
		}
		for _, d := range plan.Updates {
			if err := repo.UpdateDetail(ctx, d); err != nil {
				return fmt.Errorf("update detail: %w", err)
			}
		}
		for _, d := range plan.Inserts {
			d.DocumentID = req.ID
			if _, err := repo.InsertDetail(ctx, d); err != nil {
				return fmt.Errorf("insert detail: %w", err)
			}
		}
		return repo.Update(ctx, doc)
	})
	if err != nil {
		if field, ok := db.ConstraintField(err); ok {
			cfe := &shared.FieldErrors{}
			cfe.Add(field, "already used by another record")
			return nil, cfe.Err()
		}
		return nil, err
	}

	return s.Get(ctx, documentID)
}

func (s *Service) Get(ctx context.Context, id int64) (*DocumentDTO, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := s.mapDocument(*doc)
	return &dto, nil
}

func (s *Service) List(ctx context.Context, family Family) ([]DocumentDTO, error) {
	if !family.Valid() {
		return nil, fmt.Errorf("documents: unknown family %q", family)
	}
	docs, err := s.repo.List(ctx, family)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentDTO, 0, len(docs))
	for _, d := range docs {
		out = append(out, s.mapDocument(d))
	}
	return out, nil
}

func (s *Service) mapDocument(d Document) DocumentDTO {
	now := s.clock.Now()
	parent := d.StatusNode()

	dto := DocumentDTO{
		ID:        d.ID,
		Family:    d.Family,
		Number:    d.Number,
		Date:      d.Date,
		Customer:  d.CustomerCode,
		Marketing: d.MarketingCode,
		Remarks:   d.Remarks,
		Active:    d.Active,
		Effective: status.Effective(now, parent),
		Details:   make([]DetailDTO, 0, len(d.Details)),
	}
	for _, det := range d.Details {
		dto.Details = append(dto.Details, DetailDTO{
			ID:          det.ID,
			Product:     det.ProductCode,
			Route:       det.RouteCode,
			Description: det.Description,
			Quantity:    det.Quantity,
			Active:      det.Active,
			Effective:   status.Effective(now, status.Leaf(det.Active).WithRefs(parent)),
		})
	}
	return dto
}
