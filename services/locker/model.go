package locker

import "time"

// Locker is a gated link: visitors must clear its task gate before being
// redirected to the destination URL. The ID doubles as the public short
// link slug.
type Locker struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	OwnerID        string    `gorm:"column:owner_id;index" json:"owner_id"`
	Title          string    `gorm:"column:title" json:"title"`
	DestinationURL string    `gorm:"column:destination_url" json:"destination_url"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Locker) TableName() string { return "lockers" }
