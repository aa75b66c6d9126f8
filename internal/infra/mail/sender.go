package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const (
	senderName      = "Sistema de Leads"
	defaultLocation = "America/Argentina/Buenos_Aires"
	dateLayout      = "2/1/2006, 15:04:05"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/lead_notification.html"))
	textTmpl = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/lead_notification.txt"))
)

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailSender struct {
	cfg    Config
	dialer Dialer
	loc    *time.Location
	now    func() time.Time
}

func NewEmailSender(cfg Config) *EmailSender {
	var dialer Dialer
	if cfg.Host != "" {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
		d.SSL = cfg.Secure
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
		dialer = d
	}
	return newEmailSender(cfg, dialer)
}

func newEmailSender(cfg Config, dialer Dialer) *EmailSender {
	return &EmailSender{
		cfg:    cfg,
		dialer: dialer,
		loc:    loadLocation(cfg.Location),
		now:    time.Now,
	}
}

// Configured reports whether both addresses and a transport are present.
func (s *EmailSender) Configured() bool {
	return s.cfg.From != "" && s.cfg.To != "" && s.dialer != nil
}

func (s *EmailSender) Send(ctx context.Context, event entity.Event) error {
	if !s.Configured() {
		return eris.New("mail: sender not configured")
	}

	email, err := BuildLeadEmail(event, s.now().In(s.loc))
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, senderName)
	m.SetHeader("To", s.cfg.To)
	if event.Lead.Email != "" {
		m.SetHeader("Reply-To", event.Lead.Email)
	}
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/plain", email.Text)
	m.AddAlternative("text/html", email.HTML)

	// On cancellation the send goroutine lingers until the dialer's own
	// timeout fires.
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return eris.Wrap(err, "mail: smtp send")
		}
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "mail: smtp send")
	}
}

// BuildLeadEmail renders subject and both bodies from the same field set.
func BuildLeadEmail(event entity.Event, at time.Time) (LeadEmail, error) {
	lead := event.Lead
	display := DisplayCategory(lead.Category, lead.CategoryTag)
	isNew := event.Kind == entity.EventLeadCreated

	data := LeadEmailData{
		Heading:     "Lead Actualizado",
		TextHeading: "LEAD ACTUALIZADO",
		Category:    display,
		Name:        lead.Name,
		Email:       lead.Email,
		Phone:       lead.Phone,
		Message:     lead.Message,
		Source:      lead.Source,
		IP:          event.Meta.IP,
		Event:       string(event.Kind),
		Date:        at.Format(dateLayout),
	}
	if isNew {
		data.Heading = "Nuevo Lead Recibido"
		data.TextHeading = "NUEVO LEAD RECIBIDO"
	}
	if lead.CategoryTag != nil {
		data.Tag = *lead.CategoryTag
	}
	if lead.Message != "" {
		data.MessageLines = strings.Split(strings.ReplaceAll(lead.Message, "\r\n", "\n"), "\n")
	}
	if data.Source == "" {
		data.Source = event.Meta.Source
	}

	subject := fmt.Sprintf("[%s] Lead Actualizado: %s", display, lead.Name)
	if isNew {
		subject = fmt.Sprintf("[%s] Nuevo Lead: %s", display, lead.Name)
	}

	var html, text bytes.Buffer
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return LeadEmail{}, eris.Wrap(err, "mail: render html")
	}
	if err := textTmpl.Execute(&text, data); err != nil {
		return LeadEmail{}, eris.Wrap(err, "mail: render text")
	}

	return LeadEmail{
		Subject: subject,
		Text:    strings.TrimSpace(text.String()),
		HTML:    html.String(),
	}, nil
}

// DisplayCategory is the localized label, with the tag in parentheses for
// the other category.
func DisplayCategory(category entity.Category, tag *string) string {
	label := category.Label()
	if category == entity.CategoryOther && tag != nil && *tag != "" {
		return fmt.Sprintf("%s (%s)", label, *tag)
	}
	return label
}

func loadLocation(name string) *time.Location {
	if name == "" {
		name = defaultLocation
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
