package contract

import (
	"mnp-assistant-be/pkg/escalation"
)

// EscalationTicketRepository is the gorm-backed ticket queue.
type EscalationTicketRepository interface {
	escalation.TicketStore
}
