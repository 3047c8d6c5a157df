package mailer

import (
	"fmt"
	"html"

	"mnp-assistant-be/internal/entity"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendEscalationAlert(ticket *entity.EscalationTicket) error
}

type emailService struct {
	dialer       *gomail.Dialer
	senderEmail  string
	supportDesk  string
	dashboardURL string
}

// NewEmailService sends support-desk alerts to supportDesk. dashboardURL is the agent console
// base used to link the ticket.
func NewEmailService(host string, port int, username, password, senderEmail, supportDesk, dashboardURL string) IEmailService {
	return &emailService{
		dialer:       gomail.NewDialer(host, port, username, password),
		senderEmail:  senderEmail,
		supportDesk:  supportDesk,
		dashboardURL: dashboardURL,
	}
}

func (s *emailService) SendEscalationAlert(ticket *entity.EscalationTicket) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", s.supportDesk)
	m.SetHeader("Subject", AlertSubject(ticket))
	m.SetBody("text/html", AlertBody(ticket, s.dashboardURL))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send escalation alert for ticket %s: %w", ticket.Id, err)
	}
	return nil
}

func AlertSubject(ticket *entity.EscalationTicket) string {
	return fmt.Sprintf("[%s] MNP support escalation #%d in queue", ticket.Priority, ticket.QueuePosition)
}

func AlertBody(ticket *entity.EscalationTicket, dashboardURL string) string {
	link := fmt.Sprintf("%s/tickets/%s", dashboardURL, ticket.Id)
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Escalation needs an agent</h2>
			<p><strong>Priority:</strong> %s</p>
			<p><strong>Reason:</strong> %s</p>
			<p><strong>Trigger:</strong> %s</p>
			<p><strong>Queue position:</strong> %d (about %d minutes)</p>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Open ticket</a>
		</div>
	`,
		html.EscapeString(string(ticket.Priority)),
		html.EscapeString(ticket.Reason),
		html.EscapeString(ticket.Trigger),
		ticket.QueuePosition,
		ticket.EstimatedWaitMinutes,
		html.EscapeString(link),
	)
}
