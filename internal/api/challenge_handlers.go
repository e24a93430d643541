package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/abusaleh34/secure-cas-commercial/internal/api/middleware"
	"github.com/abusaleh34/secure-cas-commercial/internal/api/presenter"
	"github.com/abusaleh34/secure-cas-commercial/internal/audit"
	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

type IssueChallengePayload struct {
	Username string `json:"username"`
}

type IssueChallengeResponse struct {
	// Code is the one-time code. This surface is for the trusted host
	// application which owns delivery; use the send route to have the
	// service deliver instead.
	Code string `json:"code"`
}

// handleIssueChallenge issues a fresh one-time code for a principal,
// superseding any live one.
func (s *Server) handleIssueChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload IssueChallengePayload
	if err := DecodePayload(r, &payload, false); err != nil {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Username == "" {
		presenter.Error(w, r, "username is required", http.StatusBadRequest)
		return
	}

	code, err := s.challenges.Issue(ctx, payload.Username)
	if err != nil {
		logger.Error().Err(err).Str("username", payload.Username).Msg("challenge issuance failed")
		presenter.Error(w, r, "challenge issuance failed", http.StatusInternalServerError)
		return
	}

	s.recordChallenge(ctx, core.ActionChallengeIssued, payload.Username, code, true)

	presenter.JSON(w, r, IssueChallengeResponse{Code: code}, http.StatusCreated)
}

type VerifyChallengePayload struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

type VerifyChallengeResponse struct {
	Verified bool `json:"verified"`
}

// handleVerifyChallenge consumes a one-time code. A mismatch is a 200 with
// verified=false, not an error; the live challenge stays intact.
func (s *Server) handleVerifyChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload VerifyChallengePayload
	if err := DecodePayload(r, &payload, false); err != nil {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Username == "" || payload.Code == "" {
		presenter.Error(w, r, "username and code are required", http.StatusBadRequest)
		return
	}

	verified, err := s.challenges.Verify(ctx, payload.Username, payload.Code)
	if err != nil {
		logger.Error().Err(err).Str("username", payload.Username).Msg("challenge verification failed")
		presenter.Error(w, r, "challenge verification failed", http.StatusInternalServerError)
		return
	}

	s.recordChallenge(ctx, core.ActionChallengeVerified, payload.Username, payload.Code, verified)

	presenter.JSON(w, r, VerifyChallengeResponse{Verified: verified}, http.StatusOK)
}

type SendChallengePayload struct {
	Username string `json:"username"`

	// Channel is "sms" or "email".
	Channel string `json:"channel"`

	// Destination overrides the identity's stored phone number / email.
	Destination string `json:"destination,omitempty"`
}

// handleSendChallenge issues a code and delivers it over the requested
// channel. The destination defaults to the provisioned identity's contact
// fields.
func (s *Server) handleSendChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload SendChallengePayload
	if err := DecodePayload(r, &payload, false); err != nil {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Username == "" {
		presenter.Error(w, r, "username is required", http.StatusBadRequest)
		return
	}

	destination := payload.Destination
	if destination == "" {
		identity, err := s.identities.FindByUsername(ctx, payload.Username)
		if err != nil {
			presenter.Err(w, r, err, "cannot resolve destination")
			return
		}
		switch payload.Channel {
		case "sms":
			destination = identity.PhoneNumber
		case "email":
			destination = identity.Email
		}
		if destination == "" {
			presenter.Error(w, r, "identity has no destination for channel "+payload.Channel, http.StatusBadRequest)
			return
		}
	}

	var err error
	switch payload.Channel {
	case "sms":
		err = s.sender.SendViaSMS(ctx, payload.Username, destination)
	case "email":
		err = s.sender.SendViaEmail(ctx, payload.Username, destination)
	default:
		presenter.Error(w, r, "unknown channel, want sms or email", http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Error().Err(err).Str("username", payload.Username).
			Str("channel", payload.Channel).Msg("challenge delivery failed")
		presenter.Err(w, r, err, "challenge delivery failed")
		return
	}

	presenter.JSON(w, r, StatusResponse{Status: "sent"}, http.StatusOK)
}

// recordChallenge writes an OTP audit record. The code itself never lands
// in the record, only its fingerprint.
func (s *Server) recordChallenge(ctx context.Context, action, principal, code string, success bool) {
	rec := core.AuditRecord{
		ID:        middleware.CorrelationCtx(ctx),
		Time:      time.Now(),
		Action:    action,
		Principal: principal,
		Success:   success,
		Details:   "code fingerprint: " + audit.Fingerprint(code),
	}
	if err := s.auditor.Record(rec); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("action", action).Msg("failed to write audit record")
	}
}
