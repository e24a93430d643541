package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/abusaleh34/secure-cas-commercial/internal/api/presenter"
	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

// handleListAuditRecords retrieves audit records. Supported filters:
// principal, action, limit.
func (s *Server) handleListAuditRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	if s.auditReader == nil {
		presenter.Error(w, r, "configured auditor does not support reading records", http.StatusNotImplemented)
		return
	}

	q := r.URL.Query()
	filterPrincipal := q.Get("principal")
	filterAction := q.Get("action")

	limit := 50
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			logger.Warn().Str("limit", raw).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = v
	}

	var records []core.AuditRecord
	var err error

	if filterPrincipal != "" || filterAction != "" {
		records, err = s.auditReader.Find(func(rec core.AuditRecord) bool {
			if filterPrincipal != "" && rec.Principal != filterPrincipal {
				return false
			}
			if filterAction != "" && rec.Action != filterAction {
				return false
			}
			return true
		}, limit)
	} else {
		records, err = s.auditReader.GetRecent(limit)
	}

	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit records")
		presenter.Error(w, r, "failed to retrieve audit records", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, records, http.StatusOK)
}
