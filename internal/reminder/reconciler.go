package reminder

import (
	"context"
	"fmt"

	"noteria/internal/notifications/core"
	"noteria/internal/types"
)

// Reconciler keeps the registry consistent with the task store across
// restarts and out-of-band deletes.
type Reconciler struct {
	service *Service
	store   TaskStore
	metrics core.ReminderMetrics
	logger  types.Logger
}

func NewReconciler(service *Service) *Reconciler {
	return &Reconciler{
		service: service,
		store:   service.store,
		metrics: service.metrics,
		logger:  service.logger,
	}
}

// LoadExisting arms a job for every task whose email reminder is still in
// the future. It returns the number of jobs armed.
func (r *Reconciler) LoadExisting(ctx context.Context) (int, error) {
	tasks, err := r.store.ListFutureEmailReminders(ctx, r.service.clock.Now())
	if err != nil {
		r.logger.Error("reminder boot load failed", "error", err.Error())
		return 0, fmt.Errorf("load future reminders: %w", err)
	}

	armed := 0
	for _, t := range tasks {
		if r.service.scheduleTask(t, unobserved) {
			armed++
		}
	}

	r.logger.Info("existing reminders loaded", "found", len(tasks), "armed", armed)
	r.metrics.RecordPending(ctx, r.service.registry.Len())
	return armed, nil
}

// Sweep cancels jobs whose task no longer exists, using one batch lookup.
// On a store error the registry is left untouched. It returns the number of
// jobs cancelled.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	ids := r.service.registry.IDs()
	if len(ids) == 0 {
		r.metrics.RecordPending(ctx, 0)
		return 0, nil
	}

	existing, err := r.store.FilterExisting(ctx, ids)
	if err != nil {
		r.logger.Error("reminder sweep failed", "pending", len(ids), "error", err.Error())
		return 0, fmt.Errorf("filter existing tasks: %w", err)
	}

	keep := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		keep[id] = struct{}{}
	}

	removed := 0
	for _, id := range ids {
		if _, ok := keep[id]; ok {
			continue
		}
		if r.service.registry.Cancel(id) {
			removed++
		}
	}

	pending := r.service.registry.Len()
	if removed > 0 {
		r.logger.Info("reminder sweep removed orphaned jobs", "removed", removed, "pending", pending)
	}
	r.metrics.RecordPending(ctx, pending)
	return removed, nil
}
