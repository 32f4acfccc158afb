package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ItsMalma/fiems-sub000/internal/jobs"
	"github.com/ItsMalma/fiems-sub000/internal/pricing"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PricingExpiryScanJob reports price lists that are still flagged active
// even though their validity window has already closed.
type PricingExpiryScanJob struct {
	Pricing *pricing.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPricingExpiryScanJob wires dependencies for the expiry scan handler.
func NewPricingExpiryScanJob(pricingSvc *pricing.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *PricingExpiryScanJob {
	return &PricingExpiryScanJob{
		Pricing: pricingSvc,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes pricing expiry scan tasks.
func (j *PricingExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pricing == nil {
		return errors.New("expiry scan: handler not configured")
	}
	var payload PricingExpiryScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	kinds := make([]pricing.ListKind, 0, 2)
	for _, raw := range payload.Kinds {
		switch pricing.ListKind(raw) {
		case pricing.KindVendor:
			kinds = append(kinds, pricing.KindVendor)
		case pricing.KindShipping:
			kinds = append(kinds, pricing.KindShipping)
		default:
			return asynq.SkipRetry
		}
	}
	if len(kinds) == 0 {
		kinds = []pricing.ListKind{pricing.KindVendor, pricing.KindShipping}
	}

	tracker := j.metrics().Track(TaskPricingExpiryScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	logger := j.logger()
	logger.Info("starting expiry scan")

	total := 0
	for _, kind := range kinds {
		scanCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		lists, err := j.Pricing.ExpiredLists(scanCtx, kind)
		cancel()
		if err != nil {
			resultErr = err
			logger.Error("scan kind", slog.String("kind", string(kind)), slog.Any("error", err))
			return resultErr
		}
		for _, list := range lists {
			logger.Warn("price list lapsed",
				slog.String("kind", string(kind)),
				slog.String("number", list.Number),
				slog.Time("end_date", list.EndDate))
		}
		j.metrics().AddExpiredLists(string(kind), len(lists))
		total += len(lists)
	}

	logger.Info("completed expiry scan", slog.Int("lapsed", total), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *PricingExpiryScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPricingExpiryScan))
	}
	return slog.Default().With(slog.String("job", TaskPricingExpiryScan))
}

func (j *PricingExpiryScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PricingExpiryScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
