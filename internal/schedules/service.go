package schedules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/ItsMalma/fiems-sub000/internal/platform/db"
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

// Save creates or updates a schedule. The slot tuple is guarded against
// every effectively active schedule; the active flag itself only changes
// through SetActive so the slot policy cannot be bypassed by an edit.
func (s *Service) Save(ctx context.Context, req SaveScheduleRequest) (*ScheduleDTO, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.FromValidator(err).Err()
	}
	fe := &shared.FieldErrors{}
	if req.ETA.Before(req.ETD) {
		fe.Add("eta", "must not precede etd")
	}

	schedule := VesselSchedule{
		ID:           req.ID,
		ShippingCode: req.ShippingCompany,
		Vessel:       req.Vessel,
		Voyage:       req.Voyage,
		PortCode:     req.Port,
		ETD:          req.ETD,
		ETA:          req.ETA,
		Active:       req.Active,
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}

	// An inactive schedule may share a slot; only a schedule that will be
	// live after the save is guarded. On update the stored flag governs,
	// since Save never flips it.
	willBeActive := req.Active
	if req.ID != 0 {
		for _, other := range existing {
			if other.ID == req.ID {
				willBeActive = other.Active
				break
			}
		}
	}
	if willBeActive {
		now := s.clock.Now()
		candidates := make([]uniqueness.Candidate, 0, len(existing))
		for _, other := range existing {
			candidates = append(candidates, uniqueness.Candidate{
				ID:        other.ID,
				Key:       other.SlotKey(),
				Effective: status.Effective(now, other.StatusNode()),
			})
		}
		fe.Merge(uniqueness.Check(schedule.SlotKey(), schedule.ID, candidates))
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	scheduleID := req.ID
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if req.ID == 0 {
			last, err := repo.LatestNumber(ctx)
			if err != nil {
				return fmt.Errorf("latest number: %w", err)
			}
			schedule.Number, err = s.seq.Next(sequence.FamilySchedule, last, s.clock.Now())
			if err != nil {
				return fmt.Errorf("assign number: %w", err)
			}
			id, err := repo.Create(ctx, schedule)
			if err != nil {
				return fmt.Errorf("create schedule: %w", err)
			}
			scheduleID = id
			return nil
		}
		return repo.Update(ctx, schedule)
	})
	if err != nil {
		if field, ok := db.ConstraintField(err); ok {
			cfe := &shared.FieldErrors{}
			cfe.Add(field, "already used by another record")
			return nil, cfe.Err()
		}
		return nil, err
	}

	return s.Get(ctx, scheduleID)
}

// SetActive flips a schedule's stored flag. Policy for the exclusive slot:
// activating a schedule whose slot already holds an effectively active
// sibling is a silent no-op (the save succeeds, the flag stays off);
// deactivating is always permitted.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (*ScheduleDTO, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		schedule, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if schedule.Active == active {
			return nil
		}

		if active {
			all, err := repo.List(ctx)
			if err != nil {
				return fmt.Errorf("load schedules: %w", err)
			}
			now := s.clock.Now()
			for _, other := range all {
				if other.ID == id || !other.SlotKey().Matches(schedule.SlotKey()) {
					continue
				}
				if status.Effective(now, other.StatusNode()) {
					s.logger.Info("slot occupied, activation skipped",
						slog.Int64("schedule_id", id),
						slog.Int64("occupied_by", other.ID))
					return nil
				}
			}
		}
		return repo.UpdateActive(ctx, id, active)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*ScheduleDTO, error) {
	schedule, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := s.mapSchedule(*schedule)
	return &dto, nil
}

func (s *Service) List(ctx context.Context) ([]ScheduleDTO, error) {
	schedules, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ScheduleDTO, 0, len(schedules))
	for _, v := range schedules {
		out = append(out, s.mapSchedule(v))
	}
	return out, nil
}

func (s *Service) mapSchedule(v VesselSchedule) ScheduleDTO {
	return ScheduleDTO{
		ID:              v.ID,
		Number:          v.Number,
		ShippingCompany: v.ShippingCode,
		Vessel:          v.Vessel,
		Voyage:          v.Voyage,
		Port:            v.PortCode,
		ETD:             v.ETD,
		ETA:             v.ETA,
		Active:          v.Active,
		Effective:       status.Effective(s.clock.Now(), v.StatusNode()),
	}
}
