package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hanko-field/naming/internal/platform/auth"
	"github.com/hanko-field/naming/internal/platform/httpx"
	"github.com/hanko-field/naming/internal/platform/observability"
)

// Operator performs the maintenance actions exposed under /internal.
type Operator interface {
	ReloadDataset(ctx context.Context) error
	DatasetVersion() string
	DatasetSource() string
	PurgeCache() int
}

// OperationsHandlers serves operator endpoints called by schedulers and deploy hooks.
// Authentication is applied by the router group, not here.
type OperationsHandlers struct {
	operator Operator
}

// NewOperationsHandlers constructs the operator handlers.
func NewOperationsHandlers(operator Operator) *OperationsHandlers {
	return &OperationsHandlers{operator: operator}
}

// Routes registers the operator endpoints.
func (h *OperationsHandlers) Routes(r chi.Router) {
	r.Post("/dataset:reload", h.reloadDataset)
	r.Post("/cache:purge", h.purgeCache)
}

type datasetReloadResponse struct {
	Source          string `json:"source"`
	PreviousVersion string `json:"previousVersion"`
	Version         string `json:"version"`
	Changed         bool   `json:"changed"`
}

type cachePurgeResponse struct {
	Purged int `json:"purged"`
}

func (h *OperationsHandlers) reloadDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.operator == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "dataset reload unavailable", http.StatusServiceUnavailable))
		return
	}

	previous := h.operator.DatasetVersion()
	if err := h.operator.ReloadDataset(ctx); err != nil {
		observability.FromContext(ctx).Error("operator dataset reload failed", callerField(ctx), zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("dataset_reload_failed", "dataset could not be reloaded; the previous snapshot is still served", http.StatusBadGateway))
		return
	}

	current := h.operator.DatasetVersion()
	observability.FromContext(ctx).Info("operator dataset reload",
		callerField(ctx),
		zap.String("previous_version", previous),
		zap.String("version", current),
	)
	writeJSONResponse(w, http.StatusOK, datasetReloadResponse{
		Source:          h.operator.DatasetSource(),
		PreviousVersion: previous,
		Version:         current,
		Changed:         previous != current,
	})
}

func (h *OperationsHandlers) purgeCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.operator == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "cache purge unavailable", http.StatusServiceUnavailable))
		return
	}
	purged := h.operator.PurgeCache()
	observability.FromContext(ctx).Info("operator cache purge", callerField(ctx), zap.Int("purged", purged))
	writeJSONResponse(w, http.StatusOK, cachePurgeResponse{Purged: purged})
}

func callerField(ctx context.Context) zap.Field {
	if identity, ok := auth.ServiceIdentityFromContext(ctx); ok {
		if identity.Email != "" {
			return zap.String("caller", identity.Email)
		}
		return zap.String("caller", identity.Subject)
	}
	return zap.Skip()
}
