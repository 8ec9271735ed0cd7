package folders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docudir-api/internal/apperr"
	"github.com/docudir-api/internal/models"
	"github.com/docudir-api/internal/repository"
	"github.com/docudir-api/internal/testutil"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	svc   *Service
	files *repository.FileRepository
	siteA string
	siteB string
}

func newFixture(t *testing.T, maxDepth int) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	user := testutil.SeedUser(t, db, "u@example.com")
	files := repository.NewFileRepository(db)
	return &fixture{
		svc:   NewService(repository.NewFolderRepository(db), files, maxDepth),
		files: files,
		siteA: testutil.SeedSite(t, db, user, "A"),
		siteB: testutil.SeedSite(t, db, user, "B"),
	}
}

func TestListRootFolders_Empty(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.svc.ListRootFolders(context.Background(), f.siteA)
	assert.Equal(t, ErrNoFolders, err)
	assert.Equal(t, "No folders found", apperr.From(err).Message)
}

func TestCreateFolder(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	_, err := f.svc.CreateFolder(ctx, f.siteA, nil, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
	assert.Equal(t, "name not given", apperr.From(err).Message)

	root, err := f.svc.CreateFolder(ctx, f.siteA, strPtr("Root"), nil)
	require.NoError(t, err)
	assert.Nil(t, root.ParentID)
	assert.NotEmpty(t, root.ID)

	child, err := f.svc.CreateFolder(ctx, f.siteA, strPtr("Child"), &root.ID)
	require.NoError(t, err)
	assert.NotEqual(t, root.ID, child.ID)
	assert.Equal(t, root.ID, *child.ParentID)

	_, err = f.svc.CreateFolder(ctx, f.siteB, strPtr("Elsewhere"), &root.ID)
	assert.Equal(t, ErrParentNotFound, err)

	_, err = f.svc.CreateFolder(ctx, f.siteA, strPtr("Orphan"), strPtr("missing"))
	assert.Equal(t, ErrParentNotFound, err)
}

func TestGetFolder_TreeAndCounts(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	root, err := f.svc.CreateFolder(ctx, f.siteA, strPtr("Root"), nil)
	require.NoError(t, err)
	child, err := f.svc.CreateFolder(ctx, f.siteA, strPtr("Child"), &root.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateFolder(ctx, f.siteA, strPtr("Grandchild"), &child.ID)
	require.NoError(t, err)

	require.NoError(t, f.files.Create(ctx, &models.File{ID: "a", Name: "a.txt", Ext: ".txt", SiteID: f.siteA, FolderID: &root.ID}))
	require.NoError(t, f.files.Create(ctx, &models.File{ID: "b", Name: "b.txt", Ext: ".txt", SiteID: f.siteA, FolderID: &root.ID}))
	require.NoError(t, f.files.Create(ctx, &models.File{ID: "c", Name: "c.txt", Ext: ".txt", SiteID: f.siteA, FolderID: &child.ID}))
	require.NoError(t, f.files.SoftDelete(ctx, f.siteA, "b"))

	node, err := f.svc.GetFolder(ctx, f.siteA, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, node.FileCount)
	require.Len(t, node.Children, 1)
	assert.Equal(t, 1, node.Children[0].FileCount)
	require.Len(t, node.Children[0].Children, 1)
	assert.Equal(t, "Grandchild", node.Children[0].Children[0].Name)
	assert.Empty(t, node.Children[0].Children[0].Children)

	roots, err := f.svc.ListRootFolders(ctx, f.siteA)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, root.ID, roots[0].ID)

	_, err = f.svc.GetFolder(ctx, f.siteB, root.ID)
	assert.Equal(t, ErrFolderNotFound, err)
}

func TestGetFolder_MaxDepth(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	root, err := f.svc.CreateFolder(ctx, f.siteA, strPtr("1"), nil)
	require.NoError(t, err)
	two, err := f.svc.CreateFolder(ctx, f.siteA, strPtr("2"), &root.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateFolder(ctx, f.siteA, strPtr("3"), &two.ID)
	require.NoError(t, err)

	node, err := f.svc.GetFolder(ctx, f.siteA, root.ID)
	require.NoError(t, err)
	require.Len(t, node.Children, 1)
	assert.Empty(t, node.Children[0].Children)
}

func TestTree_StopsOnCycle(t *testing.T) {
	a := &models.Folder{ID: "a", Name: "a", ParentID: strPtr("b")}
	b := &models.Folder{ID: "b", Name: "b", ParentID: strPtr("a")}

	tr := newTree([]*models.Folder{a, b}, map[string]int{"a": 2})
	node := tr.build(a, 0)

	assert.Equal(t, 2, node.FileCount)
	require.Len(t, node.Children, 1)
	assert.Equal(t, "b", node.Children[0].ID)
	assert.Empty(t, node.Children[0].Children)
}
