package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/gomarketplace-cart/internal/app/model"
	"github.com/ikkim/gomarketplace-cart/internal/app/repository"
	"github.com/ikkim/gomarketplace-cart/internal/app/service"
	"github.com/ikkim/gomarketplace-cart/pkg/logger"
	"github.com/robfig/cron/v3"
)

const auditTimeout = 30 * time.Second

// AuditResult describes one comparison of memory against storage.
type AuditResult struct {
	Skipped     bool // writes were in flight
	InSync      bool
	Missing     bool // nothing persisted yet
	Malformed   bool
	MemoryCount int
	StoredCount int
	Resynced    bool
}

// CartAuditScheduler periodically checks that the persisted cart matches the
// in-memory one and optionally rewrites it when they drift apart.
type CartAuditScheduler struct {
	cron     *cron.Cron
	store    service.CartService
	repo     repository.CartRepository
	schedule string
	resync   bool
}

func NewCartAuditScheduler(store service.CartService, repo repository.CartRepository, schedule string, resync bool) *CartAuditScheduler {
	return &CartAuditScheduler{
		cron:     cron.New(),
		store:    store,
		repo:     repo,
		schedule: schedule,
		resync:   resync,
	}
}

// Start registers the audit job. An empty schedule leaves the scheduler idle.
func (s *CartAuditScheduler) Start() error {
	if s.schedule == "" {
		logger.Info("Cart audit disabled", nil)
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()

		if _, err := s.RunOnce(ctx); err != nil {
			logger.Error("Scheduled cart audit failed", err)
		}
	})
	if err != nil {
		logger.Error("Failed to add cron job for cart audit", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Cart audit scheduler started", map[string]interface{}{
		"schedule": s.schedule,
		"resync":   s.resync,
	})
	return nil
}

// Stop halts the scheduler and waits for a running audit to finish.
func (s *CartAuditScheduler) Stop() {
	logger.Info("Stopping cart audit scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Cart audit scheduler stopped", nil)
}

// RunOnce compares the stored cart with memory. On drift it logs a warning and,
// when resync is enabled, issues a single write of the memory snapshot.
func (s *CartAuditScheduler) RunOnce(ctx context.Context) (AuditResult, error) {
	var result AuditResult

	if pending := s.store.Status().PendingWrites; pending > 0 {
		logger.Debug("Skipping cart audit, writes in flight", map[string]interface{}{
			"pending": pending,
		})
		result.Skipped = true
		return result, nil
	}

	memory := s.store.Products()
	result.MemoryCount = len(memory)

	stored, found, err := s.repo.Load(ctx)
	switch {
	case err != nil && found:
		result.Malformed = true
	case err != nil:
		return result, err
	case !found:
		result.Missing = true
	default:
		result.StoredCount = len(stored)
		result.InSync = model.EqualItems(memory, stored)
	}

	// an empty cart that was never written is not drift
	if result.Missing && len(memory) == 0 {
		result.InSync = true
	}

	if result.InSync {
		logger.Debug("Cart audit passed", map[string]interface{}{
			"count": result.MemoryCount,
		})
		return result, nil
	}

	logger.Warn("Persisted cart differs from memory", map[string]interface{}{
		"memory_count": result.MemoryCount,
		"stored_count": result.StoredCount,
		"missing":      result.Missing,
		"malformed":    result.Malformed,
	})

	if !s.resync {
		return result, nil
	}

	if err := s.store.Sync().Wait(ctx); err != nil {
		return result, err
	}
	result.Resynced = true
	logger.Info("Cart re-persisted after audit", map[string]interface{}{
		"count": result.MemoryCount,
	})
	return result, nil
}
