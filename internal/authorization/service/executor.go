package service

import (
	"context"
	"fmt"

	"studio_portal_backend/platform/logger"
)

// StepError records which required step aborted the unit of work.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// Executor runs steps all-or-nothing inside one Store transaction.
type Executor struct {
	store Store
	log   *logger.Logger
}

func NewExecutor(store Store, log *logger.Logger) *Executor {
	return &Executor{store: store, log: log}
}

// Run executes steps in order. A required step failure rolls back every
// prior step. A best-effort failure rolls back to its savepoint and is
// returned as a warning.
func (e *Executor) Run(ctx context.Context, steps []Step, p *plan) ([]string, error) {
	var warnings []string
	err := e.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		warnings = nil
		for _, step := range steps {
			if !step.BestEffort {
				if err := step.Run(ctx, tx, p); err != nil {
					return &StepError{Step: step.Name, Err: err}
				}
				continue
			}
			err := tx.Savepoint(ctx, func(sp TxStore) error {
				return step.Run(ctx, sp, p)
			})
			if err != nil {
				e.log.WithContext(ctx).Warn("best-effort authorization step failed",
					"step", step.Name,
					"quotationId", p.req.QuotationID,
					"error", err,
				)
				warnings = append(warnings, fmt.Sprintf("%s failed", step.Name))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return warnings, nil
}
