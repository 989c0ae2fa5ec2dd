package vertex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"genmedia/internal/infra"
)

// Options controls how the Vertex AI client is configured.
type Options struct {
	ProjectID    string
	Location     string
	ImageModel   string
	TextModel    string
	VideoModel   string
	UpscaleModel string
	// BaseURL overrides the regional endpoint; tests point it at a local server.
	BaseURL     string
	HTTPClient  *http.Client
	TokenSource oauth2.TokenSource
	Logger      *infra.Logger
}

// Client is a thin facade over the Vertex AI REST surface: Gemini
// generateContent for images and text, Veo long-running operations for video,
// and Imagen predict for upscaling.
type Client struct {
	projectID    string
	location     string
	imageModel   string
	textModel    string
	videoModel   string
	upscaleModel string
	baseURL      string
	httpClient   *http.Client
	tokenSource  oauth2.TokenSource
	logger       *infra.Logger
}

// NewClient constructs a Vertex AI client. When no token source is supplied
// the Google application default credentials are used.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("vertex: project id is required")
	}
	location := opts.Location
	if location == "" {
		location = "us-central1"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 300 * time.Second}
	}

	ts := opts.TokenSource
	if ts == nil {
		var err error
		ts, err = google.DefaultTokenSource(ctx, "https://www.googleapis.com/auth/cloud-platform")
		if err != nil {
			return nil, fmt.Errorf("vertex: default credentials: %w", err)
		}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", location)
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		projectID:    opts.ProjectID,
		location:     location,
		imageModel:   opts.ImageModel,
		textModel:    opts.TextModel,
		videoModel:   opts.VideoModel,
		upscaleModel: opts.UpscaleModel,
		baseURL:      baseURL,
		httpClient:   httpClient,
		tokenSource:  ts,
		logger:       logger,
	}, nil
}

// InlineImage is a binary image forwarded inline with a request.
type InlineImage struct {
	Data     []byte
	MimeType string
}

// ImageRequest asks Gemini for one or more images. Reference images are
// passed as inline parts ahead of the prompt.
type ImageRequest struct {
	Prompt          string
	ReferenceImages []InlineImage
}

// ImageResult is one generated image.
type ImageResult struct {
	Data     []byte
	MimeType string
}

// TextRequest asks Gemini for a text completion.
type TextRequest struct {
	Prompt       string
	SystemPrompt string
	Context      string
	Temperature  float64
}

// VideoRequest starts a Veo long-running generation.
type VideoRequest struct {
	Prompt          string
	FirstFrame      []byte
	LastFrame       []byte
	ReferenceImages [][]byte
	AspectRatio     string
	DurationSeconds int
	GenerateAudio   bool
	Seed            *int64
}

// VideoOperation is the decoded state of a Veo operation.
type VideoOperation struct {
	Done       bool
	Progress   int
	VideoData  []byte
	StorageURI string
	Err        *OperationError
}

// OperationError carries the provider's failure detail for a finished
// operation.
type OperationError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// UpscaleRequest asks Imagen to upscale an image.
type UpscaleRequest struct {
	Image      []byte
	Factor     string
	OutputMime string
}

// UpscaleResult is the upscaled image.
type UpscaleResult struct {
	Data     []byte
	MimeType string
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type generationConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	MaxOutputTokens    int      `json:"maxOutputTokens,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// GenerateImages calls the Gemini image model and returns the inline images
// it produced.
func (c *Client) GenerateImages(ctx context.Context, req ImageRequest) ([]ImageResult, error) {
	parts := make([]part, 0, len(req.ReferenceImages)+1)
	for _, ref := range req.ReferenceImages {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: ref.MimeType,
			Data:     base64.StdEncoding.EncodeToString(ref.Data),
		}})
	}
	parts = append(parts, part{Text: req.Prompt})

	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	var response generateContentResponse
	if err := c.invoke(ctx, c.modelPath(c.imageModel, "generateContent"), payload, &response); err != nil {
		return nil, err
	}

	var images []ImageResult
	for _, cand := range response.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				c.logger.Warn().Err(err).Msg("vertex: skipping undecodable inline image")
				continue
			}
			mime := p.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			images = append(images, ImageResult{Data: data, MimeType: mime})
		}
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no images generated")
	}
	return images, nil
}

// GenerateText calls the Gemini text model. System prompt and context are
// folded into the prompt the way the studio frontend expects.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	var b strings.Builder
	if req.SystemPrompt != "" {
		fmt.Fprintf(&b, "System: %s\n\n", req.SystemPrompt)
	}
	if req.Context != "" {
		fmt.Fprintf(&b, "Context: %s\n\n", req.Context)
	}
	b.WriteString(req.Prompt)

	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: b.String()}}}},
		GenerationConfig: &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: 8192,
		},
	}

	var response generateContentResponse
	if err := c.invoke(ctx, c.modelPath(c.textModel, "generateContent"), payload, &response); err != nil {
		return "", err
	}

	for _, cand := range response.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text, nil
			}
		}
	}
	return "", fmt.Errorf("no text generated")
}

type videoFrame struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type videoReference struct {
	Image         videoFrame `json:"image"`
	ReferenceType string     `json:"referenceType"`
}

// StartVideo submits a Veo predictLongRunning request and returns the opaque
// operation name. The provider is the sole holder of operation state.
func (c *Client) StartVideo(ctx context.Context, req VideoRequest) (string, error) {
	instance := map[string]any{"prompt": req.Prompt}
	if len(req.FirstFrame) > 0 {
		instance["image"] = videoFrame{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.FirstFrame),
			MimeType:           "image/png",
		}
	}
	if len(req.LastFrame) > 0 {
		instance["lastFrame"] = videoFrame{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.LastFrame),
			MimeType:           "image/png",
		}
	}
	if len(req.ReferenceImages) > 0 {
		refs := req.ReferenceImages
		if len(refs) > 3 {
			refs = refs[:3]
		}
		images := make([]videoReference, 0, len(refs))
		for _, ref := range refs {
			images = append(images, videoReference{
				Image: videoFrame{
					BytesBase64Encoded: base64.StdEncoding.EncodeToString(ref),
					MimeType:           "image/png",
				},
				ReferenceType: "style",
			})
		}
		instance["referenceImages"] = images
	}

	parameters := map[string]any{
		"aspectRatio":     req.AspectRatio,
		"sampleCount":     1,
		"durationSeconds": req.DurationSeconds,
		"generateAudio":   req.GenerateAudio,
		"resolution":      "1080p",
	}
	if req.Seed != nil {
		parameters["seed"] = *req.Seed
	}

	payload := map[string]any{
		"instances":  []any{instance},
		"parameters": parameters,
	}

	var response struct {
		Name string `json:"name"`
	}
	if err := c.invoke(ctx, c.modelPath(c.videoModel, "predictLongRunning"), payload, &response); err != nil {
		return "", err
	}
	if response.Name == "" {
		return "", fmt.Errorf("no operation name returned")
	}
	return response.Name, nil
}

// FetchVideoOperation polls a Veo operation. It decodes both known result
// shapes: generateVideoResponse.generatedSamples and the flat videos array.
func (c *Client) FetchVideoOperation(ctx context.Context, operationName string) (*VideoOperation, error) {
	payload := map[string]any{"operationName": operationName}

	var response struct {
		Done     bool            `json:"done"`
		Error    *OperationError `json:"error,omitempty"`
		Metadata struct {
			ProgressPercent int `json:"progressPercent"`
		} `json:"metadata"`
		Response struct {
			GenerateVideoResponse struct {
				GeneratedSamples []struct {
					Video struct {
						BytesBase64Encoded string `json:"bytesBase64Encoded"`
						URI                string `json:"uri"`
					} `json:"video"`
				} `json:"generatedSamples"`
			} `json:"generateVideoResponse"`
			Videos []struct {
				BytesBase64Encoded string `json:"bytesBase64Encoded"`
				URI                string `json:"uri"`
				GCSURI             string `json:"gcsUri"`
			} `json:"videos"`
		} `json:"response"`
	}
	if err := c.invoke(ctx, c.modelPath(c.videoModel, "fetchPredictOperation"), payload, &response); err != nil {
		return nil, err
	}

	op := &VideoOperation{Done: response.Done, Progress: response.Metadata.ProgressPercent}
	if !response.Done {
		return op, nil
	}
	if response.Error != nil {
		op.Err = response.Error
		return op, nil
	}

	var encoded, uri string
	if samples := response.Response.GenerateVideoResponse.GeneratedSamples; len(samples) > 0 {
		encoded = samples[0].Video.BytesBase64Encoded
		uri = samples[0].Video.URI
	}
	if encoded == "" && uri == "" && len(response.Response.Videos) > 0 {
		v := response.Response.Videos[0]
		encoded = v.BytesBase64Encoded
		uri = v.URI
		if uri == "" {
			uri = v.GCSURI
		}
	}
	if encoded != "" {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode video payload: %w", err)
		}
		op.VideoData = data
	}
	op.StorageURI = uri
	return op, nil
}

// Upscale calls the Imagen upscale model.
func (c *Client) Upscale(ctx context.Context, req UpscaleRequest) (*UpscaleResult, error) {
	factor := req.Factor
	if factor == "" {
		factor = "x2"
	}
	outputMime := req.OutputMime
	if outputMime == "" {
		outputMime = "image/png"
	}

	payload := map[string]any{
		"instances": []any{map[string]any{
			"prompt": "Upscale the image",
			"image":  map[string]any{"bytesBase64Encoded": base64.StdEncoding.EncodeToString(req.Image)},
		}},
		"parameters": map[string]any{
			"mode":          "upscale",
			"upscaleConfig": map[string]any{"upscaleFactor": factor},
			"outputOptions": map[string]any{"mimeType": outputMime},
		},
	}

	var response struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MimeType           string `json:"mimeType"`
		} `json:"predictions"`
	}
	if err := c.invoke(ctx, c.modelPath(c.upscaleModel, "predict"), payload, &response); err != nil {
		return nil, err
	}

	for _, p := range response.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.BytesBase64Encoded)
		if err != nil {
			return nil, fmt.Errorf("decode upscaled image: %w", err)
		}
		mime := p.MimeType
		if mime == "" {
			mime = outputMime
		}
		return &UpscaleResult{Data: data, MimeType: mime}, nil
	}
	return nil, fmt.Errorf("no upscaled image returned")
}

func (c *Client) modelPath(model, verb string) string {
	return fmt.Sprintf("/projects/%s/locations/%s/publishers/google/models/%s:%s",
		url.PathEscape(c.projectID), url.PathEscape(c.location), url.PathEscape(model), verb)
}

func (c *Client) invoke(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	token, err := c.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("fetch access token: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke vertex: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("vertex status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("vertex status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("vertex status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode vertex response: %w", err)
	}
	return nil
}
