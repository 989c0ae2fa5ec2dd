package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"genmedia/internal/domain"
)

// AssetRepositoryPG implements domain.AssetRepository using PostgreSQL.
type AssetRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewAssetRepository constructs a new asset repository instance.
func NewAssetRepository(pool *pgxpool.Pool) *AssetRepositoryPG {
	return &AssetRepositoryPG{pool: pool}
}

// Create inserts the asset document.
func (r *AssetRepositoryPG) Create(ctx context.Context, asset *domain.Asset) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO assets (id, user_id, asset_type, blob_path, mime_type, prompt, source, workflow_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`, asset.ID, asset.UserID, asset.Type, asset.BlobPath, asset.MimeType, asset.Prompt, asset.Source, asset.WorkflowID, asset.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// GetByID returns the asset document or domain.ErrNotFound.
func (r *AssetRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, asset_type, blob_path, mime_type, prompt, source, workflow_id, created_at
FROM assets
WHERE id = $1;
`, id)

	var asset domain.Asset
	err := row.Scan(&asset.ID, &asset.UserID, &asset.Type, &asset.BlobPath, &asset.MimeType, &asset.Prompt, &asset.Source, &asset.WorkflowID, &asset.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select asset: %w", err)
	}
	return &asset, nil
}

// List returns the owner's assets, newest first, honoring the optional type
// and workflow filters.
func (r *AssetRepositoryPG) List(ctx context.Context, filter domain.AssetFilter) ([]domain.Asset, error) {
	query := `
SELECT id, user_id, asset_type, blob_path, mime_type, prompt, source, workflow_id, created_at
FROM assets
WHERE user_id = $1`
	args := []any{filter.UserID}

	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND asset_type = $%d", len(args))
	}
	if filter.WorkflowID != "" {
		args = append(args, filter.WorkflowID)
		query += fmt.Sprintf(" AND workflow_id = $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf("\nORDER BY created_at DESC\nLIMIT $%d;", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(&asset.ID, &asset.UserID, &asset.Type, &asset.BlobPath, &asset.MimeType, &asset.Prompt, &asset.Source, &asset.WorkflowID, &asset.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

// Delete removes the asset document.
func (r *AssetRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.AssetRepository = (*AssetRepositoryPG)(nil)
