package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/boilerplate/user-service/internal/core/ports"
)

// LogSender writes reset links to the log instead of mailing them.
// Used when no SMTP host is configured (local development).
type LogSender struct {
	resetURL string
	log      zerolog.Logger
}

func NewLogSender(resetURL string, log zerolog.Logger) *LogSender {
	return &LogSender{resetURL: resetURL, log: log}
}

func (s *LogSender) Send(_ context.Context, notice ports.PasswordResetNotice) error {
	s.log.Info().
		Str("to", notice.Email).
		Str("link", ResetLink(s.resetURL, notice.Token)).
		Msg("password reset mail (log sender)")
	return nil
}
