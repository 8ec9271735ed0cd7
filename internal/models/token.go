package models

import "time"

type RevokedToken struct {
	ID        int64
	JTI       string
	ExpiresAt time.Time
	CreatedAt time.Time
}
