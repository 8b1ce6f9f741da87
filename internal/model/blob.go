package model

import "time"

// Blob — бинарное вложение записи. Path детерминированный:
// {org_id}/{asset_id}/{vessel_id}/{filename}; приватность обеспечивается
// фильтрацией по OrgID в каждом запросе.
type Blob struct {
	Path  string `gorm:"primaryKey"`
	OrgID string `gorm:"not null;index;type:uuid"`

	Data []byte `gorm:"not null"`
	Size int64  `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
