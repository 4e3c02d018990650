// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/danielhkuo/applicant-pipeline/models"
	"github.com/danielhkuo/applicant-pipeline/pipeline"
)

// LogNotifier records inactivity alerts in the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, target pipeline.NotifyTarget, applicantID string, level models.AlertLevel) {
	slog.InfoContext(ctx, "inactivity notification",
		"target", string(target),
		"applicant_id", applicantID,
		"level", string(level),
	)
}

// Notification is one alert captured by Recorder.
type Notification struct {
	Target      pipeline.NotifyTarget
	ApplicantID string
	Level       models.AlertLevel
}

// Recorder keeps every alert in memory. Safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(_ context.Context, target pipeline.NotifyTarget, applicantID string, level models.AlertLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Notification{Target: target, ApplicantID: applicantID, Level: level})
}

// Sent returns a copy of the recorded alerts in arrival order.
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// Multi fans an alert out to several notifiers.
type Multi []pipeline.Notifier

func (m Multi) Notify(ctx context.Context, target pipeline.NotifyTarget, applicantID string, level models.AlertLevel) {
	for _, n := range m {
		n.Notify(ctx, target, applicantID, level)
	}
}
