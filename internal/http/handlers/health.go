package handlers

import "net/http"

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"project":  a.Config.ProjectID,
		"location": a.Config.Location,
		"models": map[string]string{
			"image":   a.Config.GeminiImageModel,
			"text":    a.Config.GeminiTextModel,
			"video":   a.Config.VeoModel,
			"upscale": a.Config.UpscaleModel,
		},
	})
}
