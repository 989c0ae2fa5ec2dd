package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"genmedia/internal/domain"
	"genmedia/internal/service"
)

type workflowRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	IsPublic    bool          `json:"is_public"`
	Nodes       []domain.Node `json:"nodes"`
	Edges       []domain.Edge `json:"edges"`
}

func (r workflowRequest) toInput() service.WorkflowInput {
	return service.WorkflowInput{
		Name:        r.Name,
		Description: r.Description,
		IsPublic:    r.IsPublic,
		Nodes:       r.Nodes,
		Edges:       r.Edges,
	}
}

type workflowSummaryResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserEmail    string    `json:"user_email,omitempty"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	IsPublic     bool      `json:"is_public"`
	ThumbnailRef string    `json:"thumbnailRef,omitempty"`
	NodeCount    int       `json:"node_count"`
	EdgeCount    int       `json:"edge_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type workflowResponse struct {
	workflowSummaryResponse
	Nodes []domain.Node `json:"nodes"`
	Edges []domain.Edge `json:"edges"`
}

func toSummaryResponse(s domain.WorkflowSummary) workflowSummaryResponse {
	return workflowSummaryResponse{
		ID:           s.ID,
		UserID:       s.UserID,
		UserEmail:    s.UserEmail,
		Name:         s.Name,
		Description:  s.Description,
		IsPublic:     s.IsPublic,
		ThumbnailRef: s.ThumbnailRef,
		NodeCount:    s.NodeCount,
		EdgeCount:    s.EdgeCount,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func toWorkflowResponse(wf *domain.Workflow) workflowResponse {
	return workflowResponse{
		workflowSummaryResponse: workflowSummaryResponse{
			ID:           wf.ID,
			UserID:       wf.UserID,
			UserEmail:    wf.UserEmail,
			Name:         wf.Name,
			Description:  wf.Description,
			IsPublic:     wf.IsPublic,
			ThumbnailRef: wf.ThumbnailRef,
			NodeCount:    wf.NodeCount,
			EdgeCount:    wf.EdgeCount,
			CreatedAt:    wf.CreatedAt,
			UpdatedAt:    wf.UpdatedAt,
		},
		Nodes: wf.Nodes,
		Edges: wf.Edges,
	}
}

func (a *App) SaveWorkflow(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	id, err := a.Workflows.Create(r.Context(), a.currentUserID(r), a.currentUserEmail(r), req.toInput())
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": id})
}

func (a *App) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = "my"
	}

	summaries, err := a.Workflows.List(r.Context(), domain.WorkflowScope(scope), a.currentUserID(r))
	if err != nil {
		a.serviceError(w, err)
		return
	}
	items := make([]workflowSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, toSummaryResponse(s))
	}
	a.json(w, http.StatusOK, map[string]any{"workflows": items})
}

func (a *App) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wf, err := a.Workflows.Get(r.Context(), id, a.currentUserID(r))
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, toWorkflowResponse(wf))
}

func (a *App) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req workflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	if err := a.Workflows.Update(r.Context(), id, a.currentUserID(r), req.toInput()); err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"message": "Workflow updated successfully"})
}

func (a *App) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Workflows.Delete(r.Context(), id, a.currentUserID(r)); err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"message": "Workflow deleted successfully"})
}

func (a *App) CloneWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cloneID, err := a.Workflows.Clone(r.Context(), id, a.currentUserID(r), a.currentUserEmail(r))
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": cloneID})
}
