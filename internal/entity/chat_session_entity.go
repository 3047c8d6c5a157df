package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession is one conversation. Carrier is the carrier the user is leaving,
// TargetCarrier the one they are moving to.
type ChatSession struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	Title         string
	Carrier       string
	TargetCarrier string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
