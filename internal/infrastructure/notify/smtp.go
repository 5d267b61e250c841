package notify

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/boilerplate/user-service/internal/core/domain"
	"github.com/boilerplate/user-service/internal/core/ports"
)

// SMTPConfig configures the SMTP sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// ResetURL is the front-end page that accepts ?token=.
	ResetURL string
	// LinkTTL is the reset token lifetime quoted in the mail body.
	LinkTTL time.Duration
	// Timeout bounds the dial and every SMTP round trip.
	Timeout time.Duration
}

// SMTPSender mails password reset links.
type SMTPSender struct {
	cfg  SMTPConfig
	dial mail.DialContextFunc
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	d := &net.Dialer{}
	return &SMTPSender{cfg: cfg, dial: d.DialContext}
}

// Send delivers the reset mail on the caller's goroutine. The connection is
// closed as soon as ctx is done, which unblocks any pending SMTP exchange.
func (s *SMTPSender) Send(ctx context.Context, notice ports.PasswordResetNotice) error {
	msg, err := s.resetMessage(notice)
	if err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	var stop func() bool
	defer func() {
		if stop != nil {
			stop()
		}
	}()
	dial := func(dialCtx context.Context, network, addr string) (net.Conn, error) {
		conn, err := s.dial(dialCtx, network, addr)
		if err != nil {
			return nil, err
		}
		stop = context.AfterFunc(ctx, func() { _ = conn.Close() })
		return conn, nil
	}

	client, err := s.client(dial)
	if err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send: %w", ctxErr)
		}
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) client(dial mail.DialContextFunc) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(dial),
	}
	if s.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.Timeout))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return mail.NewClient(s.cfg.Host, opts...)
}

func (s *SMTPSender) resetMessage(notice ports.PasswordResetNotice) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(notice.Email); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject("Reset your password")
	msg.SetBodyString(mail.TypeTextPlain, resetBody(notice, ResetLink(s.cfg.ResetURL, notice.Token), s.cfg.LinkTTL))
	return msg, nil
}

// ResetLink appends token to base as the "token" query parameter.
func ResetLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return token
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func resetBody(notice ports.PasswordResetNotice, link string, ttl time.Duration) string {
	name := notice.FirstName
	if name == "" {
		name = "there"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", name)
	if ttl > 0 {
		fmt.Fprintf(&b, "We received a request to reset your password. The link below is valid for %s and can be used once:\r\n\r\n",
			domain.DescribeLifetime(ttl))
	} else {
		b.WriteString("We received a request to reset your password. The link below can be used once:\r\n\r\n")
	}
	fmt.Fprintf(&b, "%s\r\n\r\n", link)
	b.WriteString("If you did not request this, you can ignore this email.\r\n")
	return b.String()
}
