package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// User is a platform identity (buyer, shop owner, or delivery runner).
// Authentication happens upstream in the Telegram mini-app layer; the core
// only needs the identity for ownership checks and notification targeting.
type User struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TelegramID string     `gorm:"column:telegram_id;uniqueIndex;not null"`
	Name       string     `gorm:"column:name;not null"`
	Phone      *string    `gorm:"column:phone"`
	City       enums.City `gorm:"column:city;type:city;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
