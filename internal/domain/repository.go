package domain

import "context"

// AssetRepository handles persistence for asset metadata documents.
type AssetRepository interface {
	Create(ctx context.Context, asset *Asset) error
	GetByID(ctx context.Context, id string) (*Asset, error)
	List(ctx context.Context, filter AssetFilter) ([]Asset, error)
	Delete(ctx context.Context, id string) error
}

// WorkflowRepository handles persistence for workflow documents.
type WorkflowRepository interface {
	Create(ctx context.Context, wf *Workflow) error
	GetByID(ctx context.Context, id string) (*Workflow, error)
	ListByUser(ctx context.Context, userID string) ([]WorkflowSummary, error)
	ListPublic(ctx context.Context) ([]WorkflowSummary, error)
	Update(ctx context.Context, wf *Workflow) error
	Delete(ctx context.Context, id string) error
}
