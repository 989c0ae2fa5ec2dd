package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"genmedia/internal/domain"
	"genmedia/internal/service"
)

type assetResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	MimeType   string    `json:"mime_type"`
	Prompt     string    `json:"prompt,omitempty"`
	Source     string    `json:"source"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toAssetResponse(a domain.AssetWithURL) assetResponse {
	return assetResponse{
		ID:         a.ID,
		Type:       string(a.Type),
		URL:        a.URL,
		MimeType:   a.MimeType,
		Prompt:     a.Prompt,
		Source:     string(a.Source),
		WorkflowID: a.WorkflowID,
		CreatedAt:  a.CreatedAt,
	}
}

type saveAssetRequest struct {
	Data       string `json:"data"`
	Type       string `json:"type"`
	MimeType   string `json:"mime_type"`
	Prompt     string `json:"prompt"`
	Source     string `json:"source"`
	WorkflowID string `json:"workflow_id"`
}

func (a *App) SaveAsset(w http.ResponseWriter, r *http.Request) {
	var req saveAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Data == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "data is required")
		return
	}
	source := domain.AssetSource(req.Source)
	if source == "" {
		source = domain.AssetSourceUploaded
	}

	asset, err := a.Assets.Save(r.Context(), service.SaveAssetInput{
		UserID:     a.currentUserID(r),
		Data:       req.Data,
		Type:       domain.AssetType(req.Type),
		MimeType:   req.MimeType,
		Prompt:     req.Prompt,
		Source:     source,
		WorkflowID: req.WorkflowID,
	})
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, toAssetResponse(*asset))
}

func (a *App) ListAssets(w http.ResponseWriter, r *http.Request) {
	filter := domain.AssetFilter{
		UserID:     a.currentUserID(r),
		Type:       domain.AssetType(r.URL.Query().Get("type")),
		WorkflowID: r.URL.Query().Get("workflow_id"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	if filter.Type != "" && filter.Type != domain.AssetTypeImage && filter.Type != domain.AssetTypeVideo {
		a.error(w, http.StatusBadRequest, "bad_request", "type must be 'image' or 'video'")
		return
	}

	assets, err := a.Assets.List(r.Context(), filter)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	items := make([]assetResponse, 0, len(assets))
	for _, asset := range assets {
		items = append(items, toAssetResponse(asset))
	}
	a.json(w, http.StatusOK, map[string]any{"assets": items, "count": len(items)})
}

func (a *App) GetAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asset, err := a.Assets.Get(r.Context(), id, a.currentUserID(r))
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, toAssetResponse(*asset))
}

func (a *App) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Assets.Delete(r.Context(), id, a.currentUserID(r)); err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
}
