package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/gajzzs/usbwarden/internal/config"
	"github.com/gajzzs/usbwarden/internal/registry"
)

const timeLayout = "2006-01-02 15:04:05"

// EmailSender mails an arrival report to the configured administrator.
type EmailSender struct {
	cfg     config.SMTPConfig
	deliver func(ctx context.Context, msg *mail.Msg) error
}

func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	s := &EmailSender{cfg: cfg}
	s.deliver = s.dialAndSend
	return s
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Send(ctx context.Context, rec registry.DeviceRecord) error {
	subject, body := FormatArrivalEmail(rec)

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", s.cfg.From, err)
	}
	if err := msg.To(recipients(s.cfg.To)...); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", s.cfg.To, err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, body)

	return s.deliver(ctx, msg)
}

func (s *EmailSender) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail via %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	return nil
}

// FormatArrivalEmail returns the subject and plain-text body for an arrival.
func FormatArrivalEmail(rec registry.DeviceRecord) (string, string) {
	subject := "USB Device Inserted: " + rec.FriendlyName

	var b strings.Builder
	b.WriteString("A USB storage device has been inserted:\n\n")
	fmt.Fprintf(&b, "Device ID: %s\n", rec.DeviceID)
	fmt.Fprintf(&b, "Friendly Name: %s\n", rec.FriendlyName)
	fmt.Fprintf(&b, "Time: %s\n\n", rec.InsertTime.Local().Format(timeLayout))
	b.WriteString("Please review this device in the admin panel.")

	return subject, b.String()
}

// recipients splits a comma separated address list.
func recipients(to string) []string {
	var out []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
