package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docudir-api/internal/models"
	"github.com/docudir-api/internal/repository"
	"github.com/docudir-api/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Email: "ada@example.com", Name: "Ada", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)
	assert.Equal(t, models.DefaultRole, user.Role)
	assert.Equal(t, models.DefaultStatus, user.Status)

	byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", byID.Name)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.Create(ctx, &models.User{Email: "ada@example.com", Name: "Other", PasswordHash: "x"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestSiteRepository_MembershipScoping(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewSiteRepository(db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@example.com")
	bob := testutil.SeedUser(t, db, "bob@example.com")

	site := &models.Site{ID: "0b0f6f7e-7f57-4d3c-9e5c-9d5f5b6d1a01", Name: "Docs"}
	require.NoError(t, repo.Create(ctx, site, alice))
	testutil.SeedFolder(t, db, site.ID, "f1", "one", nil)
	testutil.SeedFolder(t, db, site.ID, "f2", "two", strPtr("f1"))

	got, err := repo.GetForMember(ctx, site.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, "Docs", got.Name)
	assert.Equal(t, 2, got.FolderCount)

	_, err = repo.GetForMember(ctx, site.ID, bob)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetForMember(ctx, "missing", alice)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	sites, err := repo.ListForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, site.ID, sites[0].ID)

	sites, err = repo.ListForUser(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, sites)

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{site.ID}, ids)
}

func TestSiteRepository_CreateRollsBackOnCollision(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewSiteRepository(db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@example.com")
	id := testutil.SeedSite(t, db, alice, "existing")

	err := repo.Create(ctx, &models.Site{ID: id, Name: "again"}, alice)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	sites, err := repo.ListForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "existing", sites[0].Name)
}

func TestFolderRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewFolderRepository(db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "u@example.com")
	siteA := testutil.SeedSite(t, db, user, "A")
	siteB := testutil.SeedSite(t, db, user, "B")

	require.NoError(t, repo.Create(ctx, &models.Folder{ID: "root", Name: "Root", SiteID: siteA}))
	require.NoError(t, repo.Create(ctx, &models.Folder{ID: "child", Name: "Child", SiteID: siteA, ParentID: strPtr("root")}))

	roots, err := repo.ListRoots(ctx, siteA)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "root", roots[0].ID)
	assert.Nil(t, roots[0].ParentID)

	all, err := repo.ListBySite(ctx, siteA)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	child, err := repo.Get(ctx, siteA, "child")
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, "root", *child.ParentID)

	_, err = repo.Get(ctx, siteB, "child")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	roots, err = repo.ListRoots(ctx, siteB)
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestFileRepository_Scoping(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewFileRepository(db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "u@example.com")
	site := testutil.SeedSite(t, db, user, "A")
	other := testutil.SeedSite(t, db, user, "B")
	folder := testutil.SeedFolder(t, db, site, "fold", "Folder", nil)

	rootFile := &models.File{ID: "r1", Name: "a.txt", Ext: ".txt", Mimetype: "text/plain", Size: 3, SiteID: site}
	nested := &models.File{ID: "n1", Name: "b.pdf", Ext: ".pdf", Mimetype: "application/pdf", Size: 5, SiteID: site, FolderID: strPtr(folder)}
	require.NoError(t, repo.Create(ctx, rootFile))
	require.NoError(t, repo.Create(ctx, nested))

	got, err := repo.Get(ctx, site, nil, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Size)
	assert.False(t, got.Deleted)

	// Folder scope is a real filter in both directions.
	_, err = repo.Get(ctx, site, nil, "n1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.Get(ctx, site, strPtr(folder), "r1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.Get(ctx, other, nil, "r1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	rootList, err := repo.List(ctx, site, nil)
	require.NoError(t, err)
	require.Len(t, rootList, 1)
	assert.Equal(t, "r1", rootList[0].ID)

	counts, err := repo.CountByFolder(ctx, site)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{folder: 1}, counts)
}

func TestFileRepository_RenameAndSoftDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewFileRepository(db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "u@example.com")
	site := testutil.SeedSite(t, db, user, "A")

	require.NoError(t, repo.Create(ctx, &models.File{ID: "f1", Name: "a.txt", Ext: ".txt", SiteID: site}))

	require.NoError(t, repo.Rename(ctx, site, "f1", "a.md", ".md"))
	got, err := repo.Get(ctx, site, nil, "f1")
	require.NoError(t, err)
	assert.Equal(t, "a.md", got.Name)
	assert.Equal(t, ".md", got.Ext)

	require.NoError(t, repo.SoftDelete(ctx, site, "f1"))
	_, err = repo.Get(ctx, site, nil, "f1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	files, err := repo.List(ctx, site, nil)
	require.NoError(t, err)
	assert.Empty(t, files)

	all, err := repo.ListAll(ctx, site)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Deleted)

	found, err := repo.Find(ctx, site, "f1")
	require.NoError(t, err)
	assert.True(t, found.Deleted)

	assert.ErrorIs(t, repo.SoftDelete(ctx, site, "f1"), repository.ErrNotFound)
	assert.ErrorIs(t, repo.Rename(ctx, site, "f1", "x", ""), repository.ErrNotFound)
}

func TestTokenRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewTokenRepository(db)
	ctx := context.Background()
	now := time.Now()

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	require.NoError(t, repo.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	require.NoError(t, repo.Revoke(ctx, "jti-old", now.Add(-time.Hour)))

	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	pruned, err := repo.PruneExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	revoked, err = repo.IsRevoked(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, revoked)
}
