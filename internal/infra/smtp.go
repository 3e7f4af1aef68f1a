package infra

import (
	"fmt"
	"net/smtp"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/config"

	"github.com/jordan-wright/email"
	"github.com/pkg/errors"
)

// ErrMailerDisabled is returned by Send when no SMTP host is configured.
var ErrMailerDisabled = errors.New("mailer: SMTP not configured")

// MailMessage is one outgoing email. Attachments are file paths.
type MailMessage struct {
	To          []string
	Subject     string
	Text        string
	Attachments []string
}

// Mailer sends email through the configured SMTP relay.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

func (m *Mailer) Enabled() bool { return m != nil && m.host != "" }

func (m *Mailer) Send(msg MailMessage) error {
	if !m.Enabled() {
		return ErrMailerDisabled
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = msg.To
	e.Subject = msg.Subject
	e.Text = []byte(msg.Text)

	for _, path := range msg.Attachments {
		if _, err := e.AttachFile(path); err != nil {
			return errors.Wrapf(err, "mailer: attach %s", path)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return errors.Wrap(e.Send(m.addr, auth), "mailer: send")
}
