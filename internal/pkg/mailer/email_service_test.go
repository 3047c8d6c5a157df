package mailer

import (
	"testing"

	"mnp-assistant-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAlertContent(t *testing.T) {
	ticket := &entity.EscalationTicket{
		Id:                   uuid.New(),
		Reason:               "<script>frustrated</script>",
		Trigger:              "negative_sentiment",
		Priority:             entity.TicketPriorityHigh,
		QueuePosition:        3,
		EstimatedWaitMinutes: 15,
	}

	assert.Equal(t, "[high] MNP support escalation #3 in queue", AlertSubject(ticket))

	body := AlertBody(ticket, "https://desk.example.com")
	assert.Contains(t, body, "https://desk.example.com/tickets/"+ticket.Id.String())
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "about 15 minutes")
}
