package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPricingExpiryScan flags price lists whose validity window has lapsed.
	TaskPricingExpiryScan = "pricing:expiry-scan"
	// TaskMasterdataCacheWarmup repopulates the reference data cache.
	TaskMasterdataCacheWarmup = "masterdata:cache-warmup"
)

// PricingExpiryScanPayload selects which price list kinds the scan covers.
type PricingExpiryScanPayload struct {
	Kinds []string `json:"kinds"`
}

// NewPricingExpiryScanTask constructs an expiry scan task. An empty kind
// list means both vendor and shipping lists are scanned.
func NewPricingExpiryScanTask(kinds ...string) (*asynq.Task, error) {
	data, err := json.Marshal(PricingExpiryScanPayload{Kinds: kinds})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPricingExpiryScan, data), nil
}

// CacheWarmupPayload carries the warmup task parameters.
type CacheWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewCacheWarmupTask constructs a cache warmup task.
func NewCacheWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(CacheWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMasterdataCacheWarmup, data), nil
}
