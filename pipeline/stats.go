// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pipeline

import (
	"context"
	"math"

	"github.com/danielhkuo/applicant-pipeline/models"
)

// Stats computes pipeline KPIs from current applicant state.
type Stats struct {
	pipelines  PipelineRepository
	applicants ApplicantRepository
	clock      Clock
}

func NewStats(pipelines PipelineRepository, applicants ApplicantRepository, clock Clock) *Stats {
	return &Stats{pipelines: pipelines, applicants: applicants, clock: clock}
}

// Compute aggregates one pipeline. Inactive and withdrawn applicants count
// as abandoned rather than failed, so they stay out of the conversion rate
// and the time to convert.
func (s *Stats) Compute(ctx context.Context, pipelineID string) (*models.PipelineStats, error) {
	p, err := s.pipelines.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	applicants, err := s.applicants.ListApplicants(ctx, ApplicantFilter{PipelineID: pipelineID, WithHistory: true})
	if err != nil {
		return nil, err
	}

	stats := &models.PipelineStats{
		PipelineID:      p.ID,
		TotalApplicants: len(applicants),
		ByStage:         make(map[string]int, len(p.Stages)),
		ComputedAt:      s.clock.now(),
	}
	for _, st := range p.Stages {
		stats.ByStage[st.ID] = 0
	}

	var convertDays float64
	for i := range applicants {
		a := &applicants[i]
		switch a.Status {
		case models.StatusActive:
			stats.ActiveApplicants++
			stats.ByStage[a.CurrentStageID]++
		case models.StatusOnHold:
			stats.ActiveApplicants++
			stats.OnHoldApplicants++
			stats.ByStage[a.CurrentStageID]++
		case models.StatusConverted:
			stats.ConvertedCount++
			if a.ConvertedAt != nil {
				convertDays += a.ConvertedAt.Sub(a.StartedAt()).Hours() / 24
			}
		case models.StatusRejected:
			stats.RejectedCount++
		case models.StatusWithdrawn:
			stats.WithdrawnCount++
		case models.StatusInactive:
			stats.InactiveCount++
		}
	}

	if decided := stats.ConvertedCount + stats.RejectedCount; decided > 0 {
		stats.ConversionRate = round2(float64(stats.ConvertedCount) / float64(decided) * 100)
	}
	if stats.ConvertedCount > 0 {
		stats.AvgDaysToConvert = round2(convertDays / float64(stats.ConvertedCount))
	}
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
