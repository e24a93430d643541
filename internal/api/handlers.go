package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/abusaleh34/secure-cas-commercial/internal/api/presenter"
	"github.com/abusaleh34/secure-cas-commercial/internal/buildinfo"
	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

// handleHealth responds with a simple OK status to indicate the server is healthy.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAbout responds with service information including version and commit hash.
func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}

func DecodePayload(r *http.Request, dest any, allowEmpty bool) error {
	switch r.Header.Get("Content-Type") {
	case "application/json", "":
		// strict encoding for JSON
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(dest); err != nil {
			if !errors.Is(err, io.EOF) || !allowEmpty {
				return err
			}
		}
		// ensure there's no extra data
		if dec.More() {
			return errors.New("extra data in request body")
		}
		return nil
	default:
		return errors.New("unsupported content type")
	}
}

type ProvisionPayload struct {
	// Username is the login name asserted by the external source.
	Username string `json:"username"`

	// Source names the authentication mechanism (LDAP, OIDC, ...).
	Source string `json:"source"`

	// Attributes is the released attribute bag. Values may be scalars or
	// lists.
	Attributes map[string]any `json:"attributes"`
}

// handleProvision reconciles a successful external authentication into a
// local identity and returns it with its entitlements.
func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload ProvisionPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode provision request payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Username == "" {
		presenter.Error(w, r, "username is required", http.StatusBadRequest)
		return
	}
	source, err := core.ParseSource(payload.Source)
	if err != nil {
		presenter.Error(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	identity, err := s.engine.Provision(ctx, payload.Username, core.AttributesFromMap(payload.Attributes), source)
	if err != nil {
		logger.Warn().Err(err).Str("username", payload.Username).Msg("provisioning failed")
		presenter.Err(w, r, err, "provisioning failed")
		return
	}

	presenter.JSON(w, r, identity, http.StatusOK)
}

// handleListUsers searches provisioned identities. Supported query
// parameters: source, active (true/false), q (substring).
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := core.IdentityFilter{Query: q.Get("q")}
	if raw := q.Get("source"); raw != "" {
		source, err := core.ParseSource(raw)
		if err != nil {
			presenter.Error(w, r, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Source = source
	}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			presenter.Error(w, r, "invalid active parameter", http.StatusBadRequest)
			return
		}
		filter.Active = &active
	}

	identities, err := s.identities.Search(ctx, filter)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("identity search failed")
		presenter.Error(w, r, "identity search failed", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, identities, http.StatusOK)
}

// handleInactiveUsers lists active identities that have not logged in for
// the given number of days (?days=N, default 90).
func (s *Server) handleInactiveUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	days := 90
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			presenter.Error(w, r, "invalid days parameter", http.StatusBadRequest)
			return
		}
		days = v
	}

	identities, err := s.engine.FindInactive(ctx, days)
	if err != nil {
		presenter.Err(w, r, err, "inactive lookup failed")
		return
	}

	presenter.JSON(w, r, identities, http.StatusOK)
}

type StatusResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	s.handleSetActive(w, r, false)
}

func (s *Server) handleActivateUser(w http.ResponseWriter, r *http.Request) {
	s.handleSetActive(w, r, true)
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request, active bool) {
	ctx := r.Context()

	username := r.PathValue("username")
	if username == "" {
		presenter.Error(w, r, "missing username", http.StatusBadRequest)
		return
	}

	var err error
	if active {
		err = s.engine.Activate(ctx, username)
	} else {
		err = s.engine.Deactivate(ctx, username)
	}
	if err != nil {
		presenter.Err(w, r, err, "state change failed")
		return
	}

	presenter.JSON(w, r, StatusResponse{Status: "ok"}, http.StatusOK)
}

// handleStats responds with provisioning statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	overview, err := s.collector.Collect(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("stats collection failed")
		presenter.Err(w, r, err, "stats collection failed")
		return
	}
	presenter.JSON(w, r, overview, http.StatusOK)
}
