// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pipeline

import (
	"context"
	"log/slog"

	"github.com/danielhkuo/applicant-pipeline/apperr"
	"github.com/danielhkuo/applicant-pipeline/auth"
	"github.com/danielhkuo/applicant-pipeline/models"
)

// ballotTransitions are the package moves reported by the election subsystem.
var ballotTransitions = map[string][]string{
	models.PackageReady:         {models.PackageAddedToBallot},
	models.PackageAddedToBallot: {models.PackageElected, models.PackageNotElected},
}

// Bridge hands applicants on election stages over to the election subsystem.
// It never reads ballot outcomes back into the applicant: conversion stays a
// coordinator action even after an elected result.
type Bridge struct {
	packages PackageRepository
	clock    Clock
}

func NewBridge(packages PackageRepository, clock Clock) *Bridge {
	return &Bridge{packages: packages, clock: clock}
}

// EnsurePackage opens a draft package for the applicant on stage, or returns
// the one already open for that pair. The identity snapshot is taken once.
func (b *Bridge) EnsurePackage(ctx context.Context, a *models.Applicant, stage models.PipelineStage) (*models.ElectionPackage, error) {
	if stage.StageType != models.StageElectionVote {
		return nil, apperr.Newf(apperr.CodeValidation, "stage %s is not an election stage", stage.ID)
	}

	now := b.clock.now()
	pkg := &models.ElectionPackage{
		ID:          auth.GenerateID(),
		ApplicantID: a.ID,
		PipelineID:  a.PipelineID,
		StageID:     stage.ID,
		Status:      models.PackageDraft,
		Snapshot: models.ApplicantSnapshot{
			FirstName:            a.FirstName,
			LastName:             a.LastName,
			Email:                a.Email,
			Phone:                a.Phone,
			TargetMembershipType: a.TargetMembershipType,
			CapturedAt:           now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	stored, created, err := b.packages.CreatePackageIfAbsent(ctx, pkg)
	if err != nil {
		return nil, err
	}
	if created {
		slog.Info("election package opened", "package_id", stored.ID, "applicant_id", a.ID, "stage_id", stage.ID)
	}
	return stored, nil
}

func (b *Bridge) GetPackage(ctx context.Context, id string) (*models.ElectionPackage, error) {
	return b.packages.GetPackage(ctx, id)
}

func (b *Bridge) ListPackages(ctx context.Context, filter PackageFilter) ([]models.ElectionPackage, error) {
	switch filter.Status {
	case "", models.PackageDraft, models.PackageReady, models.PackageAddedToBallot,
		models.PackageElected, models.PackageNotElected:
	default:
		return nil, apperr.Newf(apperr.CodeValidation, "unknown package status %q", filter.Status)
	}
	return b.packages.ListPackages(ctx, filter)
}

// UpdatePackage edits the coordinator-authored fields of a draft package.
func (b *Bridge) UpdatePackage(ctx context.Context, id string, req models.UpdatePackageRequest) (*models.ElectionPackage, error) {
	pkg, err := b.packages.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	if pkg.Status != models.PackageDraft {
		return nil, packageTransition(pkg.Status, "edit")
	}

	if req.Summary != nil {
		pkg.Summary = *req.Summary
	}
	if req.Recommendation != nil {
		pkg.Recommendation = *req.Recommendation
	}
	if req.CoordinatorNotes != nil {
		pkg.CoordinatorNotes = *req.CoordinatorNotes
	}
	pkg.UpdatedAt = b.clock.now()

	if err := b.packages.UpdatePackage(ctx, pkg, models.PackageDraft); err != nil {
		return nil, err
	}
	return pkg, nil
}

// MarkReady releases a draft package to the election subsystem.
func (b *Bridge) MarkReady(ctx context.Context, id string) (*models.ElectionPackage, error) {
	pkg, err := b.packages.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	if pkg.Status != models.PackageDraft {
		return nil, packageTransition(pkg.Status, "mark ready")
	}

	now := b.clock.now()
	pkg.Status = models.PackageReady
	pkg.ReadyAt = &now
	pkg.UpdatedAt = now
	if err := b.packages.UpdatePackage(ctx, pkg, models.PackageDraft); err != nil {
		return nil, err
	}

	slog.Info("election package ready", "package_id", pkg.ID, "applicant_id", pkg.ApplicantID)
	return pkg, nil
}

// ReturnToDraft pulls a ready package back before it is put on a ballot.
func (b *Bridge) ReturnToDraft(ctx context.Context, id string) (*models.ElectionPackage, error) {
	pkg, err := b.packages.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	if pkg.Status != models.PackageReady {
		return nil, packageTransition(pkg.Status, "return to draft")
	}

	pkg.Status = models.PackageDraft
	pkg.ReadyAt = nil
	pkg.UpdatedAt = b.clock.now()
	if err := b.packages.UpdatePackage(ctx, pkg, models.PackageReady); err != nil {
		return nil, err
	}
	return pkg, nil
}

// RecordBallotStatus applies a status reported by the election subsystem.
func (b *Bridge) RecordBallotStatus(ctx context.Context, id, status string) (*models.ElectionPackage, error) {
	switch status {
	case models.PackageAddedToBallot, models.PackageElected, models.PackageNotElected:
	default:
		return nil, apperr.Newf(apperr.CodeValidation, "election subsystem cannot set package status %q", status)
	}

	pkg, err := b.packages.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !allowedBallotMove(pkg.Status, status) {
		return nil, packageTransition(pkg.Status, "move to "+status)
	}

	from := pkg.Status
	pkg.Status = status
	pkg.UpdatedAt = b.clock.now()
	if err := b.packages.UpdatePackage(ctx, pkg, from); err != nil {
		return nil, err
	}

	slog.Info("election package status recorded", "package_id", pkg.ID, "from", from, "to", status)
	return pkg, nil
}

func allowedBallotMove(from, to string) bool {
	for _, next := range ballotTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func packageTransition(current, attempted string) error {
	return apperr.WithMetadata(apperr.CodeInvalidTransition,
		"cannot "+attempted+" election package in status "+current,
		map[string]string{"current_status": current, "attempted": attempted})
}
