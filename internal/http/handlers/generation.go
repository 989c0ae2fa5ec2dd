package handlers

import (
	"encoding/json"
	"net/http"

	"genmedia/internal/service"
)

type imageGenerateRequest struct {
	Prompt          string   `json:"prompt"`
	ReferenceImages []string `json:"reference_images"`
	WorkflowID      string   `json:"workflow_id"`
}

func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}

	images, err := a.Generation.GenerateImage(r.Context(), a.currentUserID(r), service.GenerateImageInput{
		Prompt:          req.Prompt,
		ReferenceImages: req.ReferenceImages,
		WorkflowID:      req.WorkflowID,
	})
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"images": images, "count": len(images)})
}

type textGenerateRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt"`
	Context      string  `json:"context"`
	Temperature  float64 `json:"temperature"`
}

func (a *App) GenerateText(w http.ResponseWriter, r *http.Request) {
	var req textGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}

	text, err := a.Generation.GenerateText(r.Context(), service.GenerateTextInput{
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		Context:      req.Context,
		Temperature:  req.Temperature,
	})
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"text": text})
}

type videoGenerateRequest struct {
	Prompt          string   `json:"prompt"`
	FirstFrame      string   `json:"first_frame"`
	LastFrame       string   `json:"last_frame"`
	ReferenceImages []string `json:"reference_images"`
	AspectRatio     string   `json:"aspect_ratio"`
	DurationSeconds int      `json:"duration_seconds"`
	GenerateAudio   bool     `json:"generate_audio"`
	Seed            *int64   `json:"seed"`
}

func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req videoGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Prompt == "" && req.FirstFrame == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt or first_frame is required")
		return
	}

	start, err := a.Generation.GenerateVideo(r.Context(), service.GenerateVideoInput{
		Prompt:          req.Prompt,
		FirstFrame:      req.FirstFrame,
		LastFrame:       req.LastFrame,
		ReferenceImages: req.ReferenceImages,
		AspectRatio:     req.AspectRatio,
		DurationSeconds: req.DurationSeconds,
		GenerateAudio:   req.GenerateAudio,
		Seed:            req.Seed,
	})
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"status":         start.Status,
		"operation_name": start.OperationName,
		"message":        start.Message,
	})
}

type videoStatusRequest struct {
	OperationName string `json:"operation_name"`
	Prompt        string `json:"prompt"`
}

func (a *App) GenerateVideoStatus(w http.ResponseWriter, r *http.Request) {
	var req videoStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.OperationName == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "operation_name is required")
		return
	}

	status, err := a.Generation.VideoStatusCheck(r.Context(), a.currentUserID(r), req.OperationName, req.Prompt)
	if err != nil {
		a.serviceError(w, err)
		return
	}

	resp := map[string]any{"status": status.Status}
	switch status.Status {
	case "processing":
		resp["progress"] = status.Progress
	case "complete":
		if status.VideoBase64 != "" {
			resp["video"] = status.VideoBase64
		}
		if status.StorageURI != "" {
			resp["storage_uri"] = status.StorageURI
		}
	case "error":
		resp["error"] = status.Error
	}
	a.json(w, http.StatusOK, resp)
}

type upscaleRequest struct {
	Image      string `json:"image"`
	Factor     string `json:"factor"`
	OutputMime string `json:"output_mime"`
}

func (a *App) UpscaleImage(w http.ResponseWriter, r *http.Request) {
	var req upscaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Image == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "image is required")
		return
	}
	if req.Factor == "" {
		req.Factor = "x2"
	}

	result, err := a.Generation.Upscale(r.Context(), service.UpscaleInput{
		Image:      req.Image,
		Factor:     req.Factor,
		OutputMime: req.OutputMime,
	})
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"image": result.Image, "mime_type": result.MimeType})
}
