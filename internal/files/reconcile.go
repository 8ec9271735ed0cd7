package files

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/docudir-api/internal/repository"
)

// FindingKind names a metadata/blob inconsistency.
type FindingKind string

const (
	// MissingBlob: active record without a live blob (failed upload).
	MissingBlob FindingKind = "missing_blob"
	// UntrashedBlob: deleted record whose blob is still live (failed delete).
	UntrashedBlob FindingKind = "untrashed_blob"
	// OrphanBlob: live blob that no record names.
	OrphanBlob FindingKind = "orphan_blob"
	// LostBlob: deleted record whose blob is neither live nor trashed.
	LostBlob FindingKind = "lost_blob"
)

type Finding struct {
	Kind   FindingKind `json:"kind"`
	SiteID string      `json:"site_id"`
	FileID string      `json:"file_id"`
	Blob   string      `json:"blob"`
	Fixed  bool        `json:"fixed"`
}

type ReconcileReport struct {
	Sites    int       `json:"sites"`
	Findings []Finding `json:"findings"`
}

// Reconcile compares every site's file records with its live blobs.
// With fix set, untrashed and orphan blobs are moved to the trash;
// missing and lost blobs are only reported.
func (s *Service) Reconcile(ctx context.Context, fix bool) (*ReconcileReport, error) {
	siteIDs, err := s.sites.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}

	report := &ReconcileReport{Findings: make([]Finding, 0)}
	for _, siteID := range siteIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		findings, err := s.reconcileSite(ctx, siteID, fix)
		if err != nil {
			return report, fmt.Errorf("reconcile site %s: %w", siteID, err)
		}
		report.Sites++
		report.Findings = append(report.Findings, findings...)
	}

	for _, f := range report.Findings {
		reconcileFindingsTotal.WithLabelValues(string(f.Kind)).Inc()
	}
	return report, nil
}

func (s *Service) reconcileSite(ctx context.Context, siteID string, fix bool) ([]Finding, error) {
	records, err := s.meta.ListAll(ctx, siteID)
	if err != nil {
		return nil, err
	}
	blobs, err := s.blobs.List(ctx, siteID)
	if err != nil {
		return nil, err
	}

	live := make(map[string]bool, len(blobs))
	for _, name := range blobs {
		live[name] = true
	}

	var findings []Finding
	known := make(map[string]bool, len(records))
	for _, rec := range records {
		name := rec.BlobName()
		known[name] = true

		switch {
		case !rec.Deleted && !live[name]:
			findings = append(findings, Finding{Kind: MissingBlob, SiteID: siteID, FileID: rec.ID, Blob: name})
		case rec.Deleted && live[name]:
			findings = append(findings, Finding{Kind: UntrashedBlob, SiteID: siteID, FileID: rec.ID, Blob: name})
		case rec.Deleted:
			trashed, err := s.blobs.InTrash(ctx, siteID, name)
			if err != nil {
				return nil, err
			}
			if !trashed {
				findings = append(findings, Finding{Kind: LostBlob, SiteID: siteID, FileID: rec.ID, Blob: name})
			}
		}
	}

	for _, name := range blobs {
		if !known[name] {
			findings = append(findings, Finding{Kind: OrphanBlob, SiteID: siteID, FileID: blobStem(name), Blob: name})
		}
	}

	if fix {
		for i := range findings {
			if findings[i].Kind == MissingBlob || findings[i].Kind == LostBlob {
				continue
			}
			fixed, err := s.trashStray(ctx, findings[i])
			if err != nil {
				s.logger.WithFields(logrus.Fields{
					"site_id": siteID,
					"blob":    findings[i].Blob,
					"kind":    findings[i].Kind,
				}).WithError(err).Warn("reconcile fix failed")
				continue
			}
			findings[i].Fixed = fixed
		}
	}

	for _, f := range findings {
		s.logger.WithFields(logrus.Fields{
			"site_id": f.SiteID,
			"file_id": f.FileID,
			"blob":    f.Blob,
			"kind":    f.Kind,
			"fixed":   f.Fixed,
		}).Info("reconcile finding")
	}
	return findings, nil
}

// trashStray moves a blob to the trash after re-checking, under the file
// lock, that no active record names it and that the blob is still live.
// A rename, upload or delete that finished since the scan makes the
// finding stale.
func (s *Service) trashStray(ctx context.Context, f Finding) (bool, error) {
	unlock := s.locks.Lock(f.FileID)
	defer unlock()

	rec, err := s.meta.Find(ctx, f.SiteID, f.FileID)
	switch {
	case err == nil:
		if !rec.Deleted && rec.BlobName() == f.Blob {
			return false, nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return false, err
	}

	live, err := s.blobs.Exists(ctx, f.SiteID, f.Blob)
	if err != nil || !live {
		return false, err
	}

	if err := s.blobs.MoveToTrash(ctx, f.SiteID, f.Blob); err != nil {
		return false, err
	}
	return true, nil
}

// blobStem returns the file id part of a blob name. Ids never contain a dot.
func blobStem(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
