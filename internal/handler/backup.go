package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/foodian-app/foodian/internal/backup"
)

const backupListLimit = 50

type BackupHandler struct {
	manager *backup.Manager
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, logger: logger}
}

func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	b, err := h.manager.RunNow(r.Context())
	switch {
	case errors.Is(err, backup.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
	case errors.Is(err, backup.ErrRunning):
		writeError(w, http.StatusConflict, "a backup is already running")
	case err != nil:
		h.logger.Error("manual backup", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
	default:
		writeJSON(w, http.StatusCreated, b)
	}
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.manager.List(backupListLimit)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  h.manager.Status(),
		"backups": list,
	})
}
