package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/linesmerrill/docket-api/api"
	"github.com/linesmerrill/docket-api/archive"
	"github.com/linesmerrill/docket-api/config"
	"github.com/linesmerrill/docket-api/databases"
	"github.com/linesmerrill/docket-api/storage"
)

// Admin represents the admin handler. Every route runs behind api.Admin.
type Admin struct {
	DB      databases.CaseDatabase
	Archive *archive.Manager
	Blobs   storage.BlobStore
}

// CasesHandler dumps every case record as stored, tokens included
func (h Admin) CasesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cases, err := h.DB.Find(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("find failed", http.StatusInternalServerError, w, err)
		return
	}
	respond(w, http.StatusOK, cases)
}

// DeleteAllHandler deletes every case record and clears the blob store,
// archives included
func (h Admin) DeleteAllHandler(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	n, err := h.DB.DeleteMany(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to delete cases", http.StatusInternalServerError, w, err)
		return
	}
	if err := h.Blobs.RemoveAll(ctx, ""); err != nil {
		config.ErrorStatus("failed to clear case files", http.StatusInternalServerError, w, err)
		return
	}
	zap.S().Warnw("all cases deleted", "count", n, "requestId", api.RequestID(r.Context()))
	respond(w, http.StatusOK, map[string]int64{"deleted": n})
}

// DeleteCaseHandler deletes one case and archives its directory
func (h Admin) DeleteCaseHandler(w http.ResponseWriter, r *http.Request) {
	var req docketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := h.Archive.DeleteCase(r.Context(), req.Docket); err != nil {
		writeError(w, "case cannot be found", err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"response": "OK"})
}
