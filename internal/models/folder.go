package models

import "time"

type Folder struct {
	ID        string
	Name      string
	ParentID  *string
	SiteID    string
	CreatedAt time.Time
}

// FolderNode is the serialized form of a folder: its direct file count
// and its child folders, recursively.
type FolderNode struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	ParentID  *string       `json:"parent_id"`
	SiteID    string        `json:"site_id"`
	FileCount int           `json:"file_count"`
	Children  []*FolderNode `json:"children"`
}
