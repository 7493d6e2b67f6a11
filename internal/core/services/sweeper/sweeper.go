// package sweeper reconciles submissions that never reached a terminal
// state: jobs whose stream entry was lost, whose worker crashed before
// commit, or whose consumer group had not been created yet when they were
// enqueued. It reuses the grading worker's settlement path, so the
// check-and-set commit arbitrates any race with a live worker.
package sweeper

import (
	"context"
	"errors"
	"time"

	"gitlab.com/grader-api/internal/config"
	"gitlab.com/grader-api/internal/core/ports/primary"
	"gitlab.com/grader-api/internal/core/ports/secondary"
	"gitlab.com/grader-api/internal/core/services/grader"
	"gitlab.com/grader-api/internal/domain"
	"gitlab.com/grader-api/internal/static/errs"
)

// Engine periodically re-drives stale pending submissions through grading
type Engine struct {
	cfg    *config.SweeperConfig
	store  secondary.SubmissionStore
	grader *grader.Service
	logger primary.Logger
}

// NewEngine creates a new sweeper engine
func NewEngine(cfg *config.SweeperConfig, store secondary.SubmissionStore, graderSvc *grader.Service, logger primary.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		store:  store,
		grader: graderSvc,
		logger: logger,
	}
}

// Start launches the sweep loop on its own goroutine
func (e *Engine) Start(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("Sweeper stopping")
				return
			case <-ticker.C:
				e.Sweep(ctx)
			}
		}
	}()
	e.logger.Info("Sweeper started",
		"interval", e.cfg.Interval,
		"pendingMaxAge", e.cfg.PendingMaxAge)
}

// Sweep runs one reconciliation pass: every submission still pending past
// the age threshold is re-graded and re-published with the reprocessed tag.
// One submission failing never stops the pass.
func (e *Engine) Sweep(ctx context.Context) {
	stale, err := e.store.GetPendingOlderThan(ctx, e.cfg.PendingMaxAge)
	if err != nil {
		e.logger.Error("Failed to get stale pending submissions", "error", err)
		return
	}
	if len(stale) == 0 {
		e.logger.Debug("No stale pending submissions")
		return
	}

	e.logger.Info("Reprocessing stale submissions", "count", len(stale))

	for _, submission := range stale {
		if err := e.reprocess(ctx, submission); err != nil {
			e.logger.Error("Failed to reprocess submission",
				"submissionId", submission.ID,
				"assignmentId", submission.AssignmentID,
				"error", err)
		}
	}
}

func (e *Engine) reprocess(ctx context.Context, submission domain.Submission) error {
	testCode, err := e.store.GetTestCode(ctx, submission.AssignmentID)
	if err != nil {
		return err
	}

	job := &domain.JobMessage{
		SubmissionID: submission.ID,
		UserID:       submission.UserID,
		AssignmentID: submission.AssignmentID,
		Code:         submission.Code,
		TestCode:     testCode,
	}

	err = e.grader.Grade(ctx, job, domain.EventTypeReprocessed)
	if errors.Is(err, errs.SubmissionNotFound) {
		// Deleted between the select and the commit; nothing to recover.
		return nil
	}
	return err
}
