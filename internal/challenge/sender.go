package challenge

import (
	"context"
	"fmt"
	"time"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

// Sender wraps Issue with out-of-band delivery. Transport failure is
// reported but never retroactively invalidates the issued challenge; the
// store's job ends at code generation.
type Sender struct {
	store    Store
	sms      core.SMSSender
	email    core.EmailSender
	validity time.Duration
}

func NewSender(store Store, sms core.SMSSender, email core.EmailSender, validity time.Duration) *Sender {
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &Sender{
		store:    store,
		sms:      sms,
		email:    email,
		validity: validity,
	}
}

// SendViaSMS issues a challenge for the principal and delivers it to the
// phone number.
func (s *Sender) SendViaSMS(ctx context.Context, principal, phoneNumber string) error {
	if s.sms == nil {
		return fmt.Errorf("%w: no sms transport configured", core.ErrDelivery)
	}
	code, err := s.store.Issue(ctx, principal)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("Your SecureCAS verification code is: %s", code)
	if err := s.sms.SendSMS(ctx, phoneNumber, message); err != nil {
		return fmt.Errorf("%w: %v", core.ErrDelivery, err)
	}
	return nil
}

// SendViaEmail issues a challenge for the principal and delivers it to the
// email address.
func (s *Sender) SendViaEmail(ctx context.Context, principal, to string) error {
	if s.email == nil {
		return fmt.Errorf("%w: no email transport configured", core.ErrDelivery)
	}
	code, err := s.store.Issue(ctx, principal)
	if err != nil {
		return err
	}
	body := fmt.Sprintf(
		"Your SecureCAS verification code is: %s\n\n"+
			"This code will expire in %d seconds.\n\n"+
			"If you did not request this code, please ignore this email.",
		code, int(s.validity.Seconds()))
	if err := s.email.SendEmail(ctx, to, "SecureCAS Verification Code", body); err != nil {
		return fmt.Errorf("%w: %v", core.ErrDelivery, err)
	}
	return nil
}
