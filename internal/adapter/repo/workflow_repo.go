package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"genmedia/internal/domain"
)

// WorkflowRepositoryPG implements domain.WorkflowRepository using PostgreSQL.
// Graph payloads live in JSONB columns; list queries never touch them.
type WorkflowRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepository constructs a new workflow repository instance.
func NewWorkflowRepository(pool *pgxpool.Pool) *WorkflowRepositoryPG {
	return &WorkflowRepositoryPG{pool: pool}
}

// Create inserts the workflow document.
func (r *WorkflowRepositoryPG) Create(ctx context.Context, wf *domain.Workflow) error {
	nodes, edges, err := marshalGraph(wf)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO workflows (id, user_id, user_email, name, description, is_public, thumbnail_ref, node_count, edge_count, nodes, edges, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
`, wf.ID, wf.UserID, wf.UserEmail, wf.Name, wf.Description, wf.IsPublic, wf.ThumbnailRef, wf.NodeCount, wf.EdgeCount, nodes, edges, wf.CreatedAt, wf.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// GetByID returns the full workflow document or domain.ErrNotFound.
func (r *WorkflowRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Workflow, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, user_email, name, description, is_public, thumbnail_ref, node_count, edge_count, nodes, edges, created_at, updated_at
FROM workflows
WHERE id = $1;
`, id)

	var wf domain.Workflow
	var nodes, edges []byte
	err := row.Scan(&wf.ID, &wf.UserID, &wf.UserEmail, &wf.Name, &wf.Description, &wf.IsPublic, &wf.ThumbnailRef, &wf.NodeCount, &wf.EdgeCount, &nodes, &edges, &wf.CreatedAt, &wf.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select workflow: %w", err)
	}
	if err := json.Unmarshal(nodes, &wf.Nodes); err != nil {
		return nil, fmt.Errorf("decode nodes: %w", err)
	}
	if err := json.Unmarshal(edges, &wf.Edges); err != nil {
		return nil, fmt.Errorf("decode edges: %w", err)
	}
	return &wf, nil
}

const summaryColumns = `id, user_id, user_email, name, description, is_public, thumbnail_ref, node_count, edge_count, created_at, updated_at`

// ListByUser returns summaries of the user's workflows, newest first.
func (r *WorkflowRepositoryPG) ListByUser(ctx context.Context, userID string) ([]domain.WorkflowSummary, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+summaryColumns+`
FROM workflows
WHERE user_id = $1
ORDER BY created_at DESC;
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	return scanSummaries(rows)
}

// ListPublic returns summaries of all public workflows, newest first.
func (r *WorkflowRepositoryPG) ListPublic(ctx context.Context) ([]domain.WorkflowSummary, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+summaryColumns+`
FROM workflows
WHERE is_public = TRUE
ORDER BY created_at DESC;
`)
	if err != nil {
		return nil, fmt.Errorf("list public workflows: %w", err)
	}
	return scanSummaries(rows)
}

// Update overwrites the mutable fields of the workflow document.
func (r *WorkflowRepositoryPG) Update(ctx context.Context, wf *domain.Workflow) error {
	nodes, edges, err := marshalGraph(wf)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
UPDATE workflows
SET name = $2, description = $3, is_public = $4, thumbnail_ref = $5, node_count = $6, edge_count = $7, nodes = $8, edges = $9, updated_at = $10
WHERE id = $1;
`, wf.ID, wf.Name, wf.Description, wf.IsPublic, wf.ThumbnailRef, wf.NodeCount, wf.EdgeCount, nodes, edges, wf.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the workflow document.
func (r *WorkflowRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func marshalGraph(wf *domain.Workflow) ([]byte, []byte, error) {
	nodes, err := json.Marshal(wf.Nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("encode nodes: %w", err)
	}
	edges, err := json.Marshal(wf.Edges)
	if err != nil {
		return nil, nil, fmt.Errorf("encode edges: %w", err)
	}
	return nodes, edges, nil
}

func scanSummaries(rows pgx.Rows) ([]domain.WorkflowSummary, error) {
	defer rows.Close()
	var summaries []domain.WorkflowSummary
	for rows.Next() {
		var s domain.WorkflowSummary
		if err := rows.Scan(&s.ID, &s.UserID, &s.UserEmail, &s.Name, &s.Description, &s.IsPublic, &s.ThumbnailRef, &s.NodeCount, &s.EdgeCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

var _ domain.WorkflowRepository = (*WorkflowRepositoryPG)(nil)
