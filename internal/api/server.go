package api

import (
	"net/http"

	"github.com/abusaleh34/secure-cas-commercial/internal/api/middleware"
	"github.com/abusaleh34/secure-cas-commercial/internal/challenge"
	"github.com/abusaleh34/secure-cas-commercial/internal/core"
	"github.com/abusaleh34/secure-cas-commercial/internal/provision"
	"github.com/abusaleh34/secure-cas-commercial/internal/stats"
	"github.com/abusaleh34/secure-cas-commercial/internal/tasks"
)

// AuditReader is the optional read surface over an auditor. The in-memory
// auditor implements it; file-backed auditors do not, and the records route
// then reports the capability as unavailable.
type AuditReader interface {
	GetRecent(limit int) ([]core.AuditRecord, error)
	Find(filter func(rec core.AuditRecord) bool, limit int) ([]core.AuditRecord, error)
}

type Server struct {
	engine      *provision.Engine
	identities  core.IdentityStore
	challenges  challenge.Store
	sender      *challenge.Sender
	collector   *stats.Collector
	auditor     core.Auditor
	auditReader AuditReader
	taskManager *tasks.Manager
}

func NewServer(
	engine *provision.Engine,
	identities core.IdentityStore,
	challenges challenge.Store,
	sender *challenge.Sender,
	collector *stats.Collector,
	auditor core.Auditor,
	taskManager *tasks.Manager,
) *Server {
	s := &Server{
		engine:      engine,
		identities:  identities,
		challenges:  challenges,
		sender:      sender,
		collector:   collector,
		auditor:     auditor,
		taskManager: taskManager,
	}
	if reader, ok := auditor.(AuditReader); ok {
		s.auditReader = reader
	}
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)

	mux.HandleFunc("POST "+ProvisionRoute, s.handleProvision)

	mux.HandleFunc("GET "+ListUsersRoute, s.handleListUsers)
	mux.HandleFunc("GET "+InactiveUsersRoute, s.handleInactiveUsers)
	mux.HandleFunc("POST "+DeactivateUserRoute, s.handleDeactivateUser)
	mux.HandleFunc("POST "+ActivateUserRoute, s.handleActivateUser)

	mux.HandleFunc("GET "+StatsRoute, s.handleStats)

	mux.HandleFunc("POST "+IssueChallengeRoute, s.handleIssueChallenge)
	mux.HandleFunc("POST "+VerifyChallengeRoute, s.handleVerifyChallenge)
	mux.HandleFunc("POST "+SendChallengeRoute, s.handleSendChallenge)

	mux.HandleFunc("GET "+ListAuditRecordsRoute, s.handleListAuditRecords)

	mux.HandleFunc("GET "+ListTasksRoute, s.handleListTasks)
	mux.HandleFunc("POST "+TriggerTaskRoute, s.handleTriggerTask)
	mux.HandleFunc("GET "+LogsForTaskRoute, s.handleLogsForTask)

	return middleware.Recover(
		middleware.CorrelationID(
			middleware.Logging(
				mux)))
}
