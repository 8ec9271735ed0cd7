package models

import "time"

// PermissionOwner is the label assigned to a site's creator. Membership
// itself, regardless of label, grants every site operation.
const PermissionOwner = "owner"

type Site struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	FolderCount int       `json:"folder_count"`
	CreatedAt   time.Time `json:"-"`
}

type Membership struct {
	UserID     int64
	SiteID     string
	Permission string
}

// NameRequest is the body shared by site creation, folder creation and
// file rename. Name is a pointer so a missing field can be told apart
// from an empty one.
type NameRequest struct {
	Name *string `json:"name"`
}

type CreatedResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Name    string `json:"name"`
}
