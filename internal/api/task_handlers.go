package api

import (
	"net/http"

	"github.com/abusaleh34/secure-cas-commercial/internal/api/presenter"
)

// handleListTasks responds with the background tasks and their statuses.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, s.taskManager.ListStatus(), http.StatusOK)
}

// handleTriggerTask runs a background task out of schedule.
func (s *Server) handleTriggerTask(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		presenter.Error(w, r, "missing task name", http.StatusBadRequest)
		return
	}
	if err := s.taskManager.Trigger(name); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusNotFound)
		return
	}
	presenter.JSON(w, r, StatusResponse{Status: "triggered"}, http.StatusOK)
}

// handleLogsForTask retrieves the captured logs of a task's last run.
func (s *Server) handleLogsForTask(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		presenter.Error(w, r, "missing task name", http.StatusBadRequest)
		return
	}
	logs, err := s.taskManager.GetLogs(name)
	if err != nil {
		presenter.Error(w, r, err.Error(), http.StatusNotFound)
		return
	}
	presenter.JSON(w, r, logs, http.StatusOK)
}
