// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pipeline

import (
	"context"
	"time"

	"github.com/danielhkuo/applicant-pipeline/models"
)

// PipelineRepository persists pipelines and their ordered stages.
type PipelineRepository interface {
	CreatePipeline(ctx context.Context, p *models.Pipeline) error
	GetPipeline(ctx context.Context, id string) (*models.Pipeline, error)
	ListPipelines(ctx context.Context, organizationID string, includeInactive bool) ([]models.Pipeline, error)
	UpdatePipeline(ctx context.Context, p *models.Pipeline) error
	DeletePipeline(ctx context.Context, id string) error

	// CreateStage appends the stage after the last sibling and sets its SortOrder.
	CreateStage(ctx context.Context, s *models.PipelineStage) error
	UpdateStage(ctx context.Context, s *models.PipelineStage) error
	// DeleteStage removes the stage and renumbers the remaining siblings densely
	// in the same transaction.
	DeleteStage(ctx context.Context, pipelineID, stageID string, now time.Time) error
	// ReorderStages assigns sort orders 0..n-1 following stageIDs in one
	// transaction. stageIDs must name every stage of the pipeline exactly once.
	ReorderStages(ctx context.Context, pipelineID string, stageIDs []string, now time.Time) error
}

// ApplicantFilter narrows applicant listings. Zero values match everything.
type ApplicantFilter struct {
	PipelineID  string
	StageID     string
	Statuses    []string
	IDs         []string
	WithHistory bool
}

// Transition is one atomic applicant write: the new row state, the version it
// was derived from, the history entry to append and an optional document.
type Transition struct {
	Applicant       *models.Applicant
	ExpectedVersion int64
	Entry           models.StageHistoryEntry
	Document        *models.ApplicantDocument
}

// ApplicantRepository persists applicants with optimistic concurrency.
type ApplicantRepository interface {
	CreateApplicant(ctx context.Context, a *models.Applicant, entry models.StageHistoryEntry) error
	GetApplicant(ctx context.Context, id string) (*models.Applicant, error)
	ListApplicants(ctx context.Context, filter ApplicantFilter) ([]models.Applicant, error)
	CountApplicants(ctx context.Context, filter ApplicantFilter) (int, error)
	// ApplyTransition writes t.Applicant only if the stored version still equals
	// t.ExpectedVersion, appending t.Entry in the same transaction. A mismatch
	// returns an apperr conflict; on success t.Applicant.Version is bumped and
	// the entry is appended to its history.
	ApplyTransition(ctx context.Context, t Transition) error
	ListDocuments(ctx context.Context, applicantID string) ([]models.ApplicantDocument, error)
	// DeleteInactiveApplicant permanently removes the applicant, its history,
	// documents and packages, but only while its status is inactive. It
	// reports whether a row was deleted.
	DeleteInactiveApplicant(ctx context.Context, id string) (bool, error)
}

// PackageFilter narrows election package listings.
type PackageFilter struct {
	PipelineID  string
	ApplicantID string
	Status      string
}

// PackageRepository persists election packages.
type PackageRepository interface {
	// CreatePackageIfAbsent inserts pkg unless one already exists for its
	// (applicant, stage) pair, and returns whichever package is stored.
	CreatePackageIfAbsent(ctx context.Context, pkg *models.ElectionPackage) (*models.ElectionPackage, bool, error)
	GetPackage(ctx context.Context, id string) (*models.ElectionPackage, error)
	ListPackages(ctx context.Context, filter PackageFilter) ([]models.ElectionPackage, error)
	// UpdatePackage writes pkg only while the stored status equals expectedStatus.
	UpdatePackage(ctx context.Context, pkg *models.ElectionPackage, expectedStatus string) error
}

// NotifyTarget selects who receives an inactivity notification.
type NotifyTarget string

const (
	NotifyCoordinator NotifyTarget = "coordinator"
	NotifyApplicant   NotifyTarget = "applicant"
)

// Notifier delivers inactivity alerts. Delivery is fire-and-forget: the
// engine never waits on or inspects the outcome.
type Notifier interface {
	Notify(ctx context.Context, target NotifyTarget, applicantID string, level models.AlertLevel)
}

// ConversionRequest is what the membership service needs to create a member.
type ConversionRequest struct {
	ApplicantID    string
	FirstName      string
	LastName       string
	Email          string
	MembershipType string
	RoleID         string
}

// MembershipService turns an applicant into a full member.
type MembershipService interface {
	Convert(ctx context.Context, req ConversionRequest) (memberID string, err error)
	// Revoke removes the member created for an applicant whose conversion
	// did not commit. Members of converted applicants are left alone.
	Revoke(ctx context.Context, applicantID string) error
}

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
