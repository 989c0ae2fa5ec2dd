package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"genmedia/internal/domain"
	"genmedia/internal/infra"
	"genmedia/internal/middleware"
	"genmedia/internal/service"
)

// App bundles the services the HTTP handlers dispatch into.
type App struct {
	Config     *infra.Config
	Logger     infra.Logger
	Assets     *service.AssetService
	Workflows  *service.WorkflowService
	Generation *service.GenerationService
}

func NewApp(cfg *infra.Config, logger infra.Logger, assets *service.AssetService, workflows *service.WorkflowService, generation *service.GenerationService) *App {
	return &App{
		Config:     cfg,
		Logger:     logger,
		Assets:     assets,
		Workflows:  workflows,
		Generation: generation,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, codeStr, message string) {
	a.json(w, code, errorResponse{Code: codeStr, Message: message})
}

// serviceError maps a domain error to its HTTP representation.
func (a *App) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "bad_request", errMessage(err))
	case errors.Is(err, domain.ErrUnauthenticated):
		a.error(w, http.StatusUnauthorized, "unauthorized", errMessage(err))
	case errors.Is(err, domain.ErrPermissionDenied):
		a.error(w, http.StatusForbidden, "forbidden", errMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", errMessage(err))
	case errors.Is(err, domain.ErrUpstream):
		a.error(w, http.StatusBadGateway, "upstream", errMessage(err))
	default:
		a.Logger.Error().Err(err).Msg("unhandled service error")
		a.error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) currentUserEmail(r *http.Request) string {
	return middleware.UserEmailFromContext(r.Context())
}
