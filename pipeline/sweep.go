// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/applicant-pipeline/inactivity"
	"github.com/danielhkuo/applicant-pipeline/models"
)

// Sweeper deactivates applicants whose inactivity reached the critical level.
type Sweeper struct {
	pipelines  PipelineRepository
	applicants ApplicantRepository
	machine    *Machine
	notifier   Notifier
	clock      Clock
}

func NewSweeper(pipelines PipelineRepository, applicants ApplicantRepository, machine *Machine, notifier Notifier, clock Clock) *Sweeper {
	return &Sweeper{
		pipelines:  pipelines,
		applicants: applicants,
		machine:    machine,
		notifier:   notifier,
		clock:      clock,
	}
}

// Sweep runs one pass over every active pipeline. A failure on one applicant
// is logged and counted; the pass carries on. Running it again right away
// finds nothing new to deactivate.
func (s *Sweeper) Sweep(ctx context.Context) (models.SweepResult, error) {
	var result models.SweepResult

	pipelines, err := s.pipelines.ListPipelines(ctx, "", false)
	if err != nil {
		return result, err
	}

	for i := range pipelines {
		p := &pipelines[i]
		applicants, err := s.applicants.ListApplicants(ctx, ApplicantFilter{
			PipelineID: p.ID,
			Statuses:   []string{models.StatusActive, models.StatusOnHold},
		})
		if err != nil {
			slog.Warn("sweep skipped pipeline", "pipeline_id", p.ID, "error", err)
			result.Failed++
			continue
		}

		now := s.clock.now()
		for j := range applicants {
			a := &applicants[j]
			result.Scanned++

			ev := inactivity.Evaluate(p, a, now)
			if ev.Level != models.AlertCritical {
				continue
			}

			reason := fmt.Sprintf("no recorded activity since %s (inactivity timeout %d days)",
				humanize.RelTime(a.LastActivityAt, now, "ago", "from now"), *ev.TimeoutDays)
			if _, err := s.machine.deactivate(ctx, a.ID, a.Version, reason); err != nil {
				slog.Warn("sweep failed to deactivate applicant",
					"applicant_id", a.ID,
					"pipeline_id", p.ID,
					"error", err,
				)
				result.Failed++
				continue
			}
			result.Deactivated++
			s.notify(ctx, p, a.ID)
		}
	}

	return result, nil
}

func (s *Sweeper) notify(ctx context.Context, p *models.Pipeline, applicantID string) {
	if s.notifier == nil {
		return
	}
	if p.Inactivity.NotifyCoordinator {
		s.notifier.Notify(ctx, NotifyCoordinator, applicantID, models.AlertCritical)
	}
	if p.Inactivity.NotifyApplicant {
		s.notifier.Notify(ctx, NotifyApplicant, applicantID, models.AlertCritical)
	}
}
