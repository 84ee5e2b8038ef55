package services

import (
	"context"
	"fmt"
	"html"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"taskboard/internal/models"
	"taskboard/internal/repositories"
)

type EmailService interface {
	SendAssignmentEmail(to, memberName string, task *models.Task) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendAssignmentEmail(to, memberName string, task *models.Task) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "New task assigned: "+task.Title)

	due := "no due date"
	if task.DueDate != nil {
		due = task.DueDate.Format("2006-01-02")
	}
	body := fmt.Sprintf(`
		<h3>Hi %s,</h3>
		<p>You have been assigned to <strong>%s</strong> (priority: %s, %s).</p>
		<p>Open your dashboard to see the details.</p>
	`, html.EscapeString(memberName), html.EscapeString(task.Title), task.Priority, due)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send assignment email: %w", err)
	}

	return nil
}

// AssignmentNotifier tells members they were put on a task.
type AssignmentNotifier interface {
	NotifyAssigned(ctx context.Context, task *models.Task, memberIDs []string)
}

type emailNotifier struct {
	email   EmailService
	members repositories.MemberRepository
	log     logrus.FieldLogger
}

func NewAssignmentNotifier(email EmailService, members repositories.MemberRepository, log logrus.FieldLogger) AssignmentNotifier {
	return &emailNotifier{email: email, members: members, log: log}
}

// NotifyAssigned never fails the caller; delivery errors are logged.
func (n *emailNotifier) NotifyAssigned(ctx context.Context, task *models.Task, memberIDs []string) {
	for _, id := range memberIDs {
		m, err := n.members.GetByID(ctx, id)
		if err != nil {
			n.log.Warnf("[task][notify][err] task=%s member=%s: %v", task.ID, id, err)
			continue
		}
		if err := n.email.SendAssignmentEmail(m.Email, models.DisplayName(m, m.Email), task); err != nil {
			n.log.Warnf("[task][notify][err] task=%s member=%s: %v", task.ID, id, err)
			continue
		}
		n.log.Infof("[task][notify][ok] task=%s member=%s", task.ID, id)
	}
}

type noopNotifier struct{}

// NoopNotifier is used when SMTP is not configured.
func NoopNotifier() AssignmentNotifier { return noopNotifier{} }

func (noopNotifier) NotifyAssigned(context.Context, *models.Task, []string) {}
