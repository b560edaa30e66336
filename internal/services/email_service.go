package services

import (
	"fmt"
	"html"
	"log"

	"gopkg.in/gomail.v2"

	"teamtasks/internal/models"
)

type EmailService interface {
	SendTaskAssigned(to *models.User, task *models.Task) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailService returns a sender that skips delivery when smtpHost is empty.
func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	s := &emailService{from: fromEmail}
	if smtpHost != "" {
		s.dialer = gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	}
	return s
}

const assignmentSubject = "You have been assigned a new task"

func renderAssignmentEmail(to *models.User, task *models.Task) string {
	return fmt.Sprintf(`<h3>Hello %s,</h3>
<p>You have been assigned a new task:</p>
<ul>
  <li><strong>Title:</strong> %s</li>
  <li><strong>Description:</strong> %s</li>
  <li><strong>Priority:</strong> %s</li>
  <li><strong>Due Date:</strong> %s</li>
</ul>
<p>Please log in to your account to view and manage this task.</p>
<p>Best regards,<br/>Team Task Tracker</p>`,
		html.EscapeString(to.Name),
		html.EscapeString(task.Title),
		html.EscapeString(task.Description),
		html.EscapeString(string(task.Priority)),
		task.DueDate.Format("2006-01-02 15:04 MST"),
	)
}

func (s *emailService) SendTaskAssigned(to *models.User, task *models.Task) error {
	if s.dialer == nil {
		log.Printf("[email][skip] smtp not configured, to=%s task=%d", to.Email, task.ID)
		return nil
	}
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.from, "Team Task Tracker"))
	m.SetHeader("To", to.Email)
	m.SetHeader("Subject", assignmentSubject)
	m.SetBody("text/html", renderAssignmentEmail(to, task))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send assignment email: %w", err)
	}
	return nil
}
