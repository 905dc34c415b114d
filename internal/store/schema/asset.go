package schema

import "time"

// Asset represents the assets table - the IP asset directory entry.
// Only identity matters to the ledger; the row also serves as the lock
// anchor that serializes concurrent ownership mutations on one asset.
type Asset struct {
	// ID is the asset identifier (UUID)
	ID string `gorm:"column:id;primaryKey;type:uuid"`
	// Title is a display label, not interpreted by the ledger
	Title string `gorm:"column:title;not null;type:text"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Asset model
func (Asset) TableName() string {
	return "assets"
}
