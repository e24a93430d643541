package challenge

import (
	"context"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
	"github.com/abusaleh34/secure-cas-commercial/internal/logging"
)

var (
	_ core.SMSSender   = (*LogTransport)(nil)
	_ core.EmailSender = (*LogTransport)(nil)
)

// LogTransport writes outgoing challenge messages to the log instead of a
// real SMS/email gateway. Development and test use only: it exposes the
// code to anyone who can read the log.
type LogTransport struct {
	Logger logging.InternalLogger
}

func NewLogTransport(logger logging.InternalLogger) *LogTransport {
	return &LogTransport{Logger: logger}
}

func (t *LogTransport) SendSMS(_ context.Context, phoneNumber, message string) error {
	t.Logger.Info("sms to %s: %s", phoneNumber, message)
	return nil
}

func (t *LogTransport) SendEmail(_ context.Context, to, subject, body string) error {
	t.Logger.Info("email to %s (%s): %s", to, subject, body)
	return nil
}
