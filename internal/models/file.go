package models

import "time"

// TrashDir is the per-site directory holding blobs of soft-deleted files.
const TrashDir = ".trash"

type File struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Ext       string    `json:"ext"`
	Mimetype  string    `json:"mimetype"`
	Size      int64     `json:"size"`
	SiteID    string    `json:"site_id"`
	FolderID  *string   `json:"folder_id"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"-"`
}

// BlobName is the on-disk filename of the file's content.
func (f *File) BlobName() string {
	return f.ID + f.Ext
}
