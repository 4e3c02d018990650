// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielhkuo/applicant-pipeline/apperr"
	"github.com/danielhkuo/applicant-pipeline/inactivity"
	"github.com/danielhkuo/applicant-pipeline/models"
)

// Purger permanently deletes inactive applicants. There is no soft delete
// and no undo.
type Purger struct {
	pipelines  PipelineRepository
	applicants ApplicantRepository
	timeout    time.Duration
	clock      Clock
}

// NewPurger bounds each purge run by timeout; zero means no bound.
func NewPurger(pipelines PipelineRepository, applicants ApplicantRepository, timeout time.Duration, clock Clock) *Purger {
	return &Purger{pipelines: pipelines, applicants: applicants, timeout: timeout, clock: clock}
}

// Purge deletes the inactive applicants in scope. With explicit ids, ids that
// are not inactive or not in the pipeline are skipped. Without ids, the scope
// is the pipeline's retention policy. Each id is handled independently.
func (p *Purger) Purge(ctx context.Context, pipelineID string, req models.PurgeRequest) (models.PurgeResult, error) {
	result := models.PurgeResult{SkippedIDs: []string{}}
	if !req.Confirm {
		return result, apperr.New(apperr.CodePurgeConfirmationRequired, "purge is permanent; resend with confirm=true")
	}

	pl, err := p.pipelines.GetPipeline(ctx, pipelineID)
	if err != nil {
		return result, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var ids []string
	if len(req.ApplicantIDs) > 0 {
		ids, result.SkippedIDs, err = p.explicitScope(ctx, pl.ID, req.ApplicantIDs)
	} else {
		ids, err = p.policyScope(ctx, pl)
	}
	if err != nil {
		return result, err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			if result.Failed == nil {
				result.Failed = map[string]string{}
			}
			result.Failed[id] = err.Error()
			continue
		}
		deleted, err := p.applicants.DeleteInactiveApplicant(ctx, id)
		switch {
		case err != nil:
			slog.Warn("purge failed for applicant", "applicant_id", id, "error", err)
			if result.Failed == nil {
				result.Failed = map[string]string{}
			}
			result.Failed[id] = err.Error()
		case !deleted:
			// reactivated or already gone since the scope was read
			result.SkippedIDs = append(result.SkippedIDs, id)
		default:
			result.PurgedCount++
		}
	}

	slog.Info("purge completed",
		"pipeline_id", pl.ID,
		"purged", result.PurgedCount,
		"skipped", len(result.SkippedIDs),
		"failed", len(result.Failed),
	)
	return result, nil
}

// explicitScope splits requested ids into purgeable and skipped, keeping
// request order and dropping duplicates.
func (p *Purger) explicitScope(ctx context.Context, pipelineID string, requested []string) (purge, skipped []string, err error) {
	applicants, err := p.applicants.ListApplicants(ctx, ApplicantFilter{PipelineID: pipelineID, IDs: requested})
	if err != nil {
		return nil, nil, err
	}
	status := make(map[string]string, len(applicants))
	for _, a := range applicants {
		status[a.ID] = a.Status
	}

	skipped = []string{}
	seen := make(map[string]bool, len(requested))
	for _, id := range requested {
		if seen[id] {
			continue
		}
		seen[id] = true
		if status[id] == models.StatusInactive {
			purge = append(purge, id)
		} else {
			skipped = append(skipped, id)
		}
	}
	return purge, skipped, nil
}

// policyScope selects applicants inactive for at least purge_days_after_inactive,
// only when the pipeline enables auto purge.
func (p *Purger) policyScope(ctx context.Context, pl *models.Pipeline) ([]string, error) {
	cfg := pl.Inactivity
	if !cfg.AutoPurgeEnabled {
		return nil, nil
	}
	applicants, err := p.applicants.ListApplicants(ctx, ApplicantFilter{
		PipelineID: pl.ID,
		Statuses:   []string{models.StatusInactive},
	})
	if err != nil {
		return nil, err
	}

	now := p.clock.now()
	var ids []string
	for _, a := range applicants {
		if a.DeactivatedAt == nil {
			continue
		}
		if inactivity.DaysSince(*a.DeactivatedAt, now) >= cfg.PurgeDaysAfterInactive {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

// AutoPurge applies the retention policy of every active pipeline that
// enables it. A failing pipeline is logged and the rest still run.
func (p *Purger) AutoPurge(ctx context.Context) (models.PurgeResult, error) {
	total := models.PurgeResult{SkippedIDs: []string{}}

	pipelines, err := p.pipelines.ListPipelines(ctx, "", false)
	if err != nil {
		return total, err
	}
	for _, pl := range pipelines {
		if !pl.Inactivity.AutoPurgeEnabled {
			continue
		}
		res, err := p.Purge(ctx, pl.ID, models.PurgeRequest{Confirm: true})
		if err != nil {
			slog.Warn("auto purge failed for pipeline", "pipeline_id", pl.ID, "error", err)
			continue
		}
		total.PurgedCount += res.PurgedCount
		total.SkippedIDs = append(total.SkippedIDs, res.SkippedIDs...)
		for id, msg := range res.Failed {
			if total.Failed == nil {
				total.Failed = map[string]string{}
			}
			total.Failed[id] = msg
		}
	}
	return total, nil
}
