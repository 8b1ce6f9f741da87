package model

import "time"

// User — серверная модель пользователя. Каждый пользователь принадлежит организации;
// все выборки записей и блобов ограничиваются его OrgID.
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Login        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	OrgID        string `gorm:"not null;index;type:uuid"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
