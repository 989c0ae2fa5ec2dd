package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"genmedia/internal/domain"
	"genmedia/internal/infra"
	"genmedia/internal/storage"
)

// AssetService owns the asset lifecycle: binary payloads go to the blob
// store, metadata documents to the reference store. The two writes are a
// best-effort sequence, not a transaction: a failed blob upload skips the
// document entirely, while a failed document write after a successful upload
// leaves the blob orphaned.
type AssetService struct {
	repo   domain.AssetRepository
	blobs  storage.BlobStore
	logger infra.Logger
}

// NewAssetService constructs the asset service.
func NewAssetService(repo domain.AssetRepository, blobs storage.BlobStore, logger infra.Logger) *AssetService {
	return &AssetService{repo: repo, blobs: blobs, logger: logger}
}

// SaveAssetInput carries everything needed to persist a new asset. Data is a
// base64 payload; a data-URL prefix is tolerated.
type SaveAssetInput struct {
	UserID     string
	Data       string
	Type       domain.AssetType
	MimeType   string
	Prompt     string
	Source     domain.AssetSource
	WorkflowID string
}

// Save uploads the binary and writes the metadata document.
func (s *AssetService) Save(ctx context.Context, in SaveAssetInput) (*domain.AssetWithURL, error) {
	ext, mimeType, err := assetExtension(in.Type, in.MimeType)
	if err != nil {
		return nil, err
	}

	data, err := DecodeBase64Payload(in.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload", domain.ErrValidation)
	}

	id := uuid.NewString()
	blobPath := fmt.Sprintf("users/%s/%ss/%s.%s", in.UserID, in.Type, id, ext)

	if err := s.blobs.Upload(ctx, blobPath, data, mimeType); err != nil {
		return nil, fmt.Errorf("%w: upload blob: %v", domain.ErrStorage, err)
	}

	asset := &domain.Asset{
		ID:         id,
		UserID:     in.UserID,
		Type:       in.Type,
		BlobPath:   blobPath,
		MimeType:   mimeType,
		Prompt:     in.Prompt,
		Source:     in.Source,
		WorkflowID: in.WorkflowID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, asset); err != nil {
		// The blob stays behind; accepted gap, not compensated.
		s.logger.Error().Err(err).Str("blob_path", blobPath).Msg("asset document write failed after blob upload")
		return nil, fmt.Errorf("%w: save asset document: %v", domain.ErrStorage, err)
	}

	s.logger.Info().Str("asset_id", id).Str("user_id", in.UserID).Str("blob_path", blobPath).Msg("asset saved")
	return &domain.AssetWithURL{Asset: *asset, URL: s.blobs.URL(blobPath)}, nil
}

// List returns the owner's assets with resolved URLs, newest first.
func (s *AssetService) List(ctx context.Context, filter domain.AssetFilter) ([]domain.AssetWithURL, error) {
	assets, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: list assets: %v", domain.ErrStorage, err)
	}
	out := make([]domain.AssetWithURL, 0, len(assets))
	for _, a := range assets {
		out = append(out, domain.AssetWithURL{Asset: a, URL: s.blobs.URL(a.BlobPath)})
	}
	return out, nil
}

// Get returns the asset with its URL. Only the owner may fetch through this
// path; reference resolution uses Resolve instead.
func (s *AssetService) Get(ctx context.Context, id, requesterID string) (*domain.AssetWithURL, error) {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset.UserID != requesterID {
		return nil, domain.ErrPermissionDenied
	}
	return &domain.AssetWithURL{Asset: *asset, URL: s.blobs.URL(asset.BlobPath)}, nil
}

// Resolve looks an asset up without an ownership check. Workflow reference
// resolution runs through here so public workflows can surface asset URLs to
// non-owners.
func (s *AssetService) Resolve(ctx context.Context, id string) (*domain.AssetWithURL, error) {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.AssetWithURL{Asset: *asset, URL: s.blobs.URL(asset.BlobPath)}, nil
}

// Delete removes the blob (best effort) and the document. A failed blob
// delete is logged and does not block the document delete.
func (s *AssetService) Delete(ctx context.Context, id, requesterID string) error {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if asset.UserID != requesterID {
		return fmt.Errorf("%w: you can only delete your own assets", domain.ErrPermissionDenied)
	}

	if err := s.blobs.Delete(ctx, asset.BlobPath); err != nil {
		s.logger.Warn().Err(err).Str("blob_path", asset.BlobPath).Msg("blob delete failed; removing document anyway")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: delete asset document: %v", domain.ErrStorage, err)
	}

	s.logger.Info().Str("asset_id", id).Str("user_id", requesterID).Msg("asset deleted")
	return nil
}

func assetExtension(assetType domain.AssetType, mimeType string) (string, string, error) {
	switch assetType {
	case domain.AssetTypeImage:
		if mimeType == "" {
			mimeType = "image/png"
		}
		if strings.Contains(mimeType, "png") {
			return "png", mimeType, nil
		}
		return "jpg", mimeType, nil
	case domain.AssetTypeVideo:
		if mimeType == "" {
			mimeType = "video/mp4"
		}
		return "mp4", mimeType, nil
	default:
		return "", "", fmt.Errorf("%w: asset_type must be 'image' or 'video'", domain.ErrValidation)
	}
}

// DecodeBase64Payload strips an optional data-URL prefix, fixes padding and
// decodes the payload.
func DecodeBase64Payload(data string) ([]byte, error) {
	if strings.HasPrefix(data, "data:") {
		if i := strings.IndexByte(data, ','); i >= 0 {
			data = data[i+1:]
		}
	}
	if missing := len(data) % 4; missing != 0 {
		data += strings.Repeat("=", 4-missing)
	}
	return base64.StdEncoding.DecodeString(data)
}
