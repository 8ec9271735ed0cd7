package files

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(report *ReconcileReport) map[FindingKind][]string {
	out := make(map[FindingKind][]string)
	for _, f := range report.Findings {
		out[f.Kind] = append(out[f.Kind], f.Blob)
	}
	return out
}

func TestReconcile_Clean(t *testing.T) {
	f := newFixture(t)
	f.upload(t, nil, "a.txt", "a")

	report, err := f.svc.Reconcile(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sites)
	assert.Empty(t, report.Findings)
}

func TestReconcile_ReportsAndFixes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// missing_blob: upload whose blob write failed.
	f.blobs.failWrite = true
	_, err := f.svc.Upload(ctx, f.site, nil, &Upload{Filename: "lost.txt", Size: 1, ContentType: "text/plain", Content: strings.NewReader("x")})
	require.Error(t, err)
	f.blobs.failWrite = false

	// untrashed_blob: delete whose trash move failed.
	stuck := f.upload(t, nil, "stuck.txt", "s")
	f.blobs.failTrash = true
	_, err = f.svc.Delete(ctx, f.site, nil, stuck.ID)
	require.Error(t, err)
	f.blobs.failTrash = false

	// orphan_blob: content nobody references.
	require.NoError(t, os.WriteFile(f.livePath("stray.bin"), []byte("?"), 0644))

	report, err := f.svc.Reconcile(ctx, false)
	require.NoError(t, err)
	got := kinds(report)
	assert.Len(t, got[MissingBlob], 1)
	assert.Equal(t, []string{stuck.ID + ".txt"}, got[UntrashedBlob])
	assert.Equal(t, []string{"stray.bin"}, got[OrphanBlob])
	assert.FileExists(t, f.livePath("stray.bin"))

	report, err = f.svc.Reconcile(ctx, true)
	require.NoError(t, err)
	for _, finding := range report.Findings {
		assert.Equal(t, finding.Kind != MissingBlob, finding.Fixed, "finding %+v", finding)
	}
	assert.FileExists(t, f.trashPath(stuck.ID+".txt"))
	assert.FileExists(t, f.trashPath("stray.bin"))
	assert.NoFileExists(t, f.livePath("stray.bin"))

	report, err = f.svc.Reconcile(ctx, false)
	require.NoError(t, err)
	got = kinds(report)
	assert.Len(t, got[MissingBlob], 1)
	assert.Empty(t, got[UntrashedBlob])
	assert.Empty(t, got[OrphanBlob])
}

func TestReconcile_ReportsLostBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gone := f.upload(t, nil, "gone.txt", "g")
	_, err := f.svc.Delete(ctx, f.site, nil, gone.ID)
	require.NoError(t, err)
	require.NoError(t, os.Remove(f.trashPath(gone.ID+".txt")))

	kept := f.upload(t, nil, "kept.txt", "k")
	_, err = f.svc.Delete(ctx, f.site, nil, kept.ID)
	require.NoError(t, err)

	report, err := f.svc.Reconcile(ctx, true)
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, LostBlob, report.Findings[0].Kind)
	assert.Equal(t, gone.ID, report.Findings[0].FileID)
	assert.False(t, report.Findings[0].Fixed)
}

func TestTrashStray_SkipsBlobThatIsNoLongerLive(t *testing.T) {
	f := newFixture(t)

	fixed, err := f.svc.trashStray(context.Background(), Finding{
		Kind: OrphanBlob, SiteID: f.site, FileID: "vanished", Blob: "vanished.bin",
	})
	require.NoError(t, err)
	assert.False(t, fixed)
	assert.NoFileExists(t, f.trashPath("vanished.bin"))
}

func TestBlobStem(t *testing.T) {
	assert.Equal(t, "abc", blobStem("abc.tar.gz"))
	assert.Equal(t, "abc", blobStem("abc"))
}
