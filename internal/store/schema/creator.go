package schema

import "time"

// Creator represents the creators table - the creator directory entry.
// Only identity matters to the ledger.
type Creator struct {
	// ID is the creator identifier (UUID)
	ID string `gorm:"column:id;primaryKey;type:uuid"`
	// DisplayName is a display label, not interpreted by the ledger
	DisplayName string `gorm:"column:display_name;not null;type:text"`
	// Admin indicates the creator holds the admin role
	Admin bool `gorm:"column:admin;not null;default:false"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Creator model
func (Creator) TableName() string {
	return "creators"
}
