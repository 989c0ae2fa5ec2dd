package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"genmedia/internal/domain"
	"genmedia/internal/infra"
	"genmedia/internal/providers/vertex"
)

// Provider is the slice of the Vertex AI client the façade depends on.
type Provider interface {
	GenerateImages(ctx context.Context, req vertex.ImageRequest) ([]vertex.ImageResult, error)
	GenerateText(ctx context.Context, req vertex.TextRequest) (string, error)
	StartVideo(ctx context.Context, req vertex.VideoRequest) (string, error)
	FetchVideoOperation(ctx context.Context, operationName string) (*vertex.VideoOperation, error)
	Upscale(ctx context.Context, req vertex.UpscaleRequest) (*vertex.UpscaleResult, error)
}

// Archiver persists finished generation results into the asset library.
type Archiver interface {
	Save(ctx context.Context, in SaveAssetInput) (*domain.AssetWithURL, error)
}

// GenerationService forwards generation requests to the provider and
// auto-archives completed image/video results. No retry and no circuit
// breaker: a provider failure surfaces directly as ErrUpstream.
type GenerationService struct {
	provider Provider
	library  Archiver
	logger   infra.Logger
}

// NewGenerationService constructs the generation façade.
func NewGenerationService(provider Provider, library Archiver, logger infra.Logger) *GenerationService {
	return &GenerationService{provider: provider, library: library, logger: logger}
}

// GenerateImageInput is an image generation request. Reference images are
// base64 payloads used as visual ingredients.
type GenerateImageInput struct {
	Prompt          string
	ReferenceImages []string
	WorkflowID      string
}

// GenerateImage returns base64-encoded images. Every result is archived into
// the caller's library with source=generated; archive failures are logged
// and do not fail the request.
func (s *GenerationService) GenerateImage(ctx context.Context, userID string, in GenerateImageInput) ([]string, error) {
	refs := s.decodeReferenceImages(in.ReferenceImages)
	prompt := in.Prompt
	if len(refs) > 0 {
		prompt = ingredientPrompt(in.Prompt)
	}

	results, err := s.provider.GenerateImages(ctx, vertex.ImageRequest{
		Prompt:          prompt,
		ReferenceImages: refs,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	images := make([]string, 0, len(results))
	for _, result := range results {
		encoded := base64.StdEncoding.EncodeToString(result.Data)
		images = append(images, encoded)

		if _, err := s.library.Save(ctx, SaveAssetInput{
			UserID:     userID,
			Data:       encoded,
			Type:       domain.AssetTypeImage,
			MimeType:   result.MimeType,
			Prompt:     in.Prompt,
			Source:     domain.AssetSourceGenerated,
			WorkflowID: in.WorkflowID,
		}); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to archive generated image")
		}
	}
	return images, nil
}

// GenerateVideoInput starts a Veo generation. Frames and reference images
// are base64 payloads.
type GenerateVideoInput struct {
	Prompt          string
	FirstFrame      string
	LastFrame       string
	ReferenceImages []string
	AspectRatio     string
	DurationSeconds int
	GenerateAudio   bool
	Seed            *int64
}

// VideoStart is the response to a submitted video generation.
type VideoStart struct {
	Status        string
	OperationName string
	Message       string
}

// GenerateVideo submits the long-running request and hands the caller the
// provider's operation name. No server-side operation state is kept.
func (s *GenerationService) GenerateVideo(ctx context.Context, in GenerateVideoInput) (*VideoStart, error) {
	req := vertex.VideoRequest{
		Prompt:          in.Prompt,
		AspectRatio:     in.AspectRatio,
		DurationSeconds: in.DurationSeconds,
		GenerateAudio:   in.GenerateAudio,
		Seed:            in.Seed,
	}
	if in.AspectRatio == "" {
		req.AspectRatio = "16:9"
	}
	if in.DurationSeconds <= 0 {
		req.DurationSeconds = 8
	}

	var err error
	if req.FirstFrame, err = decodeOptionalPayload(in.FirstFrame); err != nil {
		return nil, fmt.Errorf("%w: invalid first_frame payload", domain.ErrValidation)
	}
	if req.LastFrame, err = decodeOptionalPayload(in.LastFrame); err != nil {
		return nil, fmt.Errorf("%w: invalid last_frame payload", domain.ErrValidation)
	}
	for _, ref := range in.ReferenceImages {
		data, err := DecodeBase64Payload(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid reference image payload", domain.ErrValidation)
		}
		req.ReferenceImages = append(req.ReferenceImages, data)
	}

	operationName, err := s.provider.StartVideo(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	return &VideoStart{
		Status:        "processing",
		OperationName: operationName,
		Message:       "Video generation started. Poll /generate/video/status for completion.",
	}, nil
}

// VideoStatus is the decoded state of a polled video operation.
type VideoStatus struct {
	Status      string
	VideoBase64 string
	StorageURI  string
	Progress    int
	Error       string
}

// VideoStatusCheck forwards the poll to the provider. Completed inline
// videos are archived with the prompt the caller supplied.
func (s *GenerationService) VideoStatusCheck(ctx context.Context, userID, operationName, prompt string) (*VideoStatus, error) {
	op, err := s.provider.FetchVideoOperation(ctx, operationName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	if !op.Done {
		return &VideoStatus{Status: "processing", Progress: op.Progress}, nil
	}
	if op.Err != nil {
		return &VideoStatus{Status: "error", Error: op.Err.Message}, nil
	}

	if len(op.VideoData) > 0 {
		encoded := base64.StdEncoding.EncodeToString(op.VideoData)
		if _, err := s.library.Save(ctx, SaveAssetInput{
			UserID:   userID,
			Data:     encoded,
			Type:     domain.AssetTypeVideo,
			MimeType: "video/mp4",
			Prompt:   prompt,
			Source:   domain.AssetSourceGenerated,
		}); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to archive generated video")
		}
		return &VideoStatus{Status: "complete", VideoBase64: encoded}, nil
	}
	if op.StorageURI != "" {
		return &VideoStatus{Status: "complete", StorageURI: op.StorageURI}, nil
	}
	return &VideoStatus{Status: "error", Error: "video generation completed but no video data found"}, nil
}

// GenerateTextInput is a text completion request.
type GenerateTextInput struct {
	Prompt       string
	SystemPrompt string
	Context      string
	Temperature  float64
}

// GenerateText forwards a text completion to the provider.
func (s *GenerationService) GenerateText(ctx context.Context, in GenerateTextInput) (string, error) {
	text, err := s.provider.GenerateText(ctx, vertex.TextRequest{
		Prompt:       in.Prompt,
		SystemPrompt: in.SystemPrompt,
		Context:      in.Context,
		Temperature:  in.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	return text, nil
}

// UpscaleInput is an image upscale request.
type UpscaleInput struct {
	Image      string
	Factor     string
	OutputMime string
}

// UpscaleResult is the upscaled image, base64 encoded.
type UpscaleResult struct {
	Image    string
	MimeType string
}

// Upscale forwards the image to the Imagen upscale model.
func (s *GenerationService) Upscale(ctx context.Context, in UpscaleInput) (*UpscaleResult, error) {
	data, err := DecodeBase64Payload(in.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid image payload", domain.ErrValidation)
	}

	result, err := s.provider.Upscale(ctx, vertex.UpscaleRequest{
		Image:      data,
		Factor:     in.Factor,
		OutputMime: in.OutputMime,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	return &UpscaleResult{
		Image:    base64.StdEncoding.EncodeToString(result.Data),
		MimeType: result.MimeType,
	}, nil
}

// decodeReferenceImages decodes and sniffs the payloads; anything that is
// not a plausible PNG or JPEG is skipped rather than failing the request.
func (s *GenerationService) decodeReferenceImages(refs []string) []vertex.InlineImage {
	var out []vertex.InlineImage
	for i, ref := range refs {
		data, err := DecodeBase64Payload(ref)
		if err != nil || len(data) < 100 {
			s.logger.Warn().Int("index", i+1).Msg("skipping invalid reference image")
			continue
		}
		mime, ok := sniffImageMime(data)
		if !ok {
			s.logger.Warn().Int("index", i+1).Msg("skipping reference image with unsupported format")
			continue
		}
		out = append(out, vertex.InlineImage{Data: data, MimeType: mime})
	}
	return out
}

func sniffImageMime(data []byte) (string, bool) {
	if bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		return "image/png", true
	}
	if bytes.HasPrefix(data, []byte{0xff, 0xd8}) {
		return "image/jpeg", true
	}
	return "", false
}

func decodeOptionalPayload(data string) ([]byte, error) {
	if data == "" {
		return nil, nil
	}
	return DecodeBase64Payload(data)
}

func ingredientPrompt(prompt string) string {
	return "IMPORTANT: Use the provided reference image(s) as visual ingredients and components. " +
		"Extract and incorporate their key visual elements (subjects, objects, colors, textures, style) " +
		"into the generated image.\n\n" +
		"Generation request: " + prompt + "\n\n" +
		"Create a new image that incorporates visual elements from the reference image(s) " +
		"while following the generation request above."
}
