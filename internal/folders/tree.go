package folders

import "github.com/docudir-api/internal/models"

// tree indexes a site's folders by parent for serialization.
type tree struct {
	children map[string][]*models.Folder
	counts   map[string]int
}

func newTree(all []*models.Folder, counts map[string]int) *tree {
	t := &tree{
		children: make(map[string][]*models.Folder),
		counts:   counts,
	}
	for _, f := range all {
		if f.ParentID != nil {
			t.children[*f.ParentID] = append(t.children[*f.ParentID], f)
		}
	}
	return t
}

// build serializes root and its descendants. A folder reached twice is
// not expanded again, so a corrupt parent chain cannot loop forever.
func (t *tree) build(root *models.Folder, maxDepth int) *models.FolderNode {
	visited := make(map[string]bool)
	return t.walk(root, 1, maxDepth, visited)
}

func (t *tree) walk(f *models.Folder, depth, maxDepth int, visited map[string]bool) *models.FolderNode {
	visited[f.ID] = true

	node := &models.FolderNode{
		ID:        f.ID,
		Name:      f.Name,
		ParentID:  f.ParentID,
		SiteID:    f.SiteID,
		FileCount: t.counts[f.ID],
		Children:  make([]*models.FolderNode, 0),
	}

	if maxDepth > 0 && depth >= maxDepth {
		return node
	}

	for _, child := range t.children[f.ID] {
		if visited[child.ID] {
			continue
		}
		node.Children = append(node.Children, t.walk(child, depth+1, maxDepth, visited))
	}
	return node
}
