package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"sublet_monitor/config"
	"sublet_monitor/models"
)

const channelEmail = "email"

type sendFunc func(ctx context.Context, msg *mail.Msg) error

// EmailNotifier sends HTML mail through an authenticated STARTTLS relay,
// Gmail with an app password by default.
type EmailNotifier struct {
	cfg    config.EmailConfig
	opts   RenderOptions
	send   sendFunc
	logger *slog.Logger
}

func NewEmailNotifier(cfg config.EmailConfig, opts RenderOptions) *EmailNotifier {
	n := &EmailNotifier{
		cfg:    cfg,
		opts:   opts,
		logger: slog.Default().With("component", "email"),
	}
	n.send = n.dialAndSend
	return n
}

func (n *EmailNotifier) Send(ctx context.Context, newListings []models.Listing, excluded []models.Excluded) error {
	subject, body, err := RenderNew(newListings, excluded, n.opts)
	if err != nil {
		return &NotifyError{Channel: channelEmail, Err: err}
	}
	return n.deliver(ctx, n.cfg.Recipients, subject, mail.TypeTextHTML, body)
}

func (n *EmailNotifier) SendDigest(ctx context.Context, accepted []models.Listing) error {
	subject, body, err := RenderDigest(accepted, n.opts)
	if err != nil {
		return &NotifyError{Channel: channelEmail, Err: err}
	}
	return n.deliver(ctx, n.cfg.Recipients, subject, mail.TypeTextHTML, body)
}

func (n *EmailNotifier) Alert(ctx context.Context, failures []string) error {
	to := n.cfg.HealthcheckRecipient
	if to == "" {
		to = n.cfg.User
	}
	now := time.Now
	if n.opts.Now != nil {
		now = n.opts.Now
	}
	var body strings.Builder
	body.WriteString("Sublet monitor health check failed:\n\n")
	for i, f := range failures {
		fmt.Fprintf(&body, "  %d. %s\n", i+1, f)
	}
	if url := ViewURL(n.opts.SheetURL); url != "" {
		body.WriteString("\nSheet: " + url)
	}
	body.WriteString("\nTimestamp: " + now().Format("2006-01-02 15:04") + "\n")
	subject := fmt.Sprintf("⚠️ Sublet Monitor Health Check: %d failure%s", len(failures), plural(len(failures)))
	return n.deliver(ctx, []string{to}, subject, mail.TypeTextPlain, body.String())
}

func (n *EmailNotifier) deliver(ctx context.Context, to []string, subject string, ct mail.ContentType, body string) error {
	if n.cfg.User == "" || n.cfg.Password == "" {
		return &NotifyError{Channel: channelEmail, Err: errors.New("GMAIL_USER or GMAIL_APP_PASSWORD not set")}
	}
	if len(to) == 0 {
		return &NotifyError{Channel: channelEmail, Err: errors.New("no recipients configured")}
	}

	msg := mail.NewMsg()
	if err := msg.From(n.cfg.User); err != nil {
		return &NotifyError{Channel: channelEmail, Err: fmt.Errorf("from address: %w", err)}
	}
	if err := msg.To(to...); err != nil {
		return &NotifyError{Channel: channelEmail, Err: fmt.Errorf("recipient address: %w", err)}
	}
	msg.Subject(subject)
	msg.SetBodyString(ct, body)

	if err := n.send(ctx, msg); err != nil {
		return &NotifyError{Channel: channelEmail, Err: err}
	}
	n.logger.Info("email sent", "to", strings.Join(to, ", "), "subject", subject)
	return nil
}

func (n *EmailNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(n.cfg.Host,
		mail.WithPort(n.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.User),
		mail.WithPassword(n.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
