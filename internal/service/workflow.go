package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"genmedia/internal/domain"
	"genmedia/internal/infra"
)

const (
	maxWorkflowNameLen = 100
	maxWorkflowNodes   = 100
)

// refSuffix marks node-data keys holding asset IDs. A key "imageRef" resolves
// into siblings "imageUrl" and "imageRefExists".
const refSuffix = "Ref"

// AssetResolver is the single lookup reference resolution needs.
type AssetResolver interface {
	Resolve(ctx context.Context, id string) (*domain.AssetWithURL, error)
}

// WorkflowService owns the workflow graph lifecycle: validation, persistence,
// owner/public access control, cloning, and on-read asset reference
// resolution. Node data is opaque beyond the Ref-suffix convention; the
// service never executes graphs.
type WorkflowService struct {
	repo   domain.WorkflowRepository
	assets AssetResolver
	logger infra.Logger
}

// NewWorkflowService constructs the workflow service.
func NewWorkflowService(repo domain.WorkflowRepository, assets AssetResolver, logger infra.Logger) *WorkflowService {
	return &WorkflowService{repo: repo, assets: assets, logger: logger}
}

// WorkflowInput carries the caller-editable fields of a workflow.
type WorkflowInput struct {
	Name        string
	Description string
	IsPublic    bool
	Nodes       []domain.Node
	Edges       []domain.Edge
}

// Create validates and persists a new workflow, returning its id.
func (s *WorkflowService) Create(ctx context.Context, userID, userEmail string, in WorkflowInput) (string, error) {
	if err := validateWorkflowInput(in); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	wf := &domain.Workflow{
		ID:          newWorkflowID(now),
		UserID:      userID,
		UserEmail:   userEmail,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		IsPublic:    in.IsPublic,
		NodeCount:   len(in.Nodes),
		EdgeCount:   len(in.Edges),
		Nodes:       in.Nodes,
		Edges:       in.Edges,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, wf); err != nil {
		return "", fmt.Errorf("%w: create workflow: %v", domain.ErrStorage, err)
	}

	s.logger.Info().Str("workflow_id", wf.ID).Str("user_id", userID).Msg("workflow created")
	return wf.ID, nil
}

// List returns workflow summaries for the requested scope.
func (s *WorkflowService) List(ctx context.Context, scope domain.WorkflowScope, requesterID string) ([]domain.WorkflowSummary, error) {
	switch scope {
	case domain.WorkflowScopeMine:
		summaries, err := s.repo.ListByUser(ctx, requesterID)
		if err != nil {
			return nil, fmt.Errorf("%w: list workflows: %v", domain.ErrStorage, err)
		}
		return summaries, nil
	case domain.WorkflowScopePublic:
		summaries, err := s.repo.ListPublic(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list workflows: %v", domain.ErrStorage, err)
		}
		return summaries, nil
	default:
		return nil, fmt.Errorf("%w: scope must be 'my' or 'public'", domain.ErrValidation)
	}
}

// Get returns the workflow with every node's asset references resolved.
// Access requires ownership or a public flag.
func (s *WorkflowService) Get(ctx context.Context, id, requesterID string) (*domain.Workflow, error) {
	wf, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wf.UserID != requesterID && !wf.IsPublic {
		return nil, domain.ErrPermissionDenied
	}

	wf.Nodes = s.resolveNodes(ctx, wf.Nodes)
	return wf, nil
}

// Update overwrites the caller-editable fields. Owner only; id and
// created_at are untouched, updated_at is refreshed.
func (s *WorkflowService) Update(ctx context.Context, id, requesterID string, in WorkflowInput) error {
	if err := validateWorkflowInput(in); err != nil {
		return err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserID != requesterID {
		return fmt.Errorf("%w: you can only update your own workflows", domain.ErrPermissionDenied)
	}

	existing.Name = strings.TrimSpace(in.Name)
	existing.Description = strings.TrimSpace(in.Description)
	existing.IsPublic = in.IsPublic
	existing.NodeCount = len(in.Nodes)
	existing.EdgeCount = len(in.Edges)
	existing.Nodes = in.Nodes
	existing.Edges = in.Edges
	existing.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, existing); err != nil {
		return fmt.Errorf("%w: update workflow: %v", domain.ErrStorage, err)
	}

	s.logger.Info().Str("workflow_id", id).Str("user_id", requesterID).Msg("workflow updated")
	return nil
}

// Delete removes the workflow document. Owner only. Referenced assets are
// not cascade-deleted.
func (s *WorkflowService) Delete(ctx context.Context, id, requesterID string) error {
	wf, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if wf.UserID != requesterID {
		return fmt.Errorf("%w: you can only delete your own workflows", domain.ErrPermissionDenied)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: delete workflow: %v", domain.ErrStorage, err)
	}

	s.logger.Info().Str("workflow_id", id).Str("user_id", requesterID).Msg("workflow deleted")
	return nil
}

// Clone copies a workflow into a new private document owned by the
// requester. Asset references keep pointing at the original assets.
func (s *WorkflowService) Clone(ctx context.Context, id, requesterID, requesterEmail string) (string, error) {
	original, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if original.UserID != requesterID && !original.IsPublic {
		return "", domain.ErrPermissionDenied
	}

	now := time.Now().UTC()
	clone := &domain.Workflow{
		ID:          newWorkflowID(now),
		UserID:      requesterID,
		UserEmail:   requesterEmail,
		Name:        original.Name + " (Copy)",
		Description: original.Description,
		IsPublic:    false,
		NodeCount:   original.NodeCount,
		EdgeCount:   original.EdgeCount,
		Nodes:       copyNodes(original.Nodes),
		Edges:       append([]domain.Edge(nil), original.Edges...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, clone); err != nil {
		return "", fmt.Errorf("%w: clone workflow: %v", domain.ErrStorage, err)
	}

	s.logger.Info().Str("workflow_id", id).Str("clone_id", clone.ID).Str("user_id", requesterID).Msg("workflow cloned")
	return clone.ID, nil
}

// resolveNodes injects resolved URLs and existence flags next to every
// Ref-suffixed key. One unresolvable reference never aborts the rest; the
// result is returned to the caller and never persisted.
func (s *WorkflowService) resolveNodes(ctx context.Context, nodes []domain.Node) []domain.Node {
	resolved := make([]domain.Node, len(nodes))
	for i, node := range nodes {
		node.Data = s.resolveData(ctx, node.Data, true)
		resolved[i] = node
	}
	return resolved
}

func (s *WorkflowService) resolveData(ctx context.Context, data domain.NodeData, descend bool) domain.NodeData {
	if data == nil {
		return nil
	}
	out := make(domain.NodeData, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	for key, value := range data {
		if key == "outputs" && descend {
			if nested, ok := value.(map[string]any); ok {
				out[key] = map[string]any(s.resolveData(ctx, domain.NodeData(nested), false))
			}
			continue
		}
		if !strings.HasSuffix(key, refSuffix) {
			continue
		}
		ref, ok := value.(string)
		if !ok || ref == "" {
			continue
		}

		existsKey := key + "Exists"
		asset, err := s.assets.Resolve(ctx, ref)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.logger.Warn().Err(err).Str("asset_id", ref).Msg("asset reference resolution failed")
			}
			out[existsKey] = false
			continue
		}
		out[strings.TrimSuffix(key, refSuffix)+"Url"] = asset.URL
		out[existsKey] = true
	}
	return out
}

func copyNodes(nodes []domain.Node) []domain.Node {
	out := make([]domain.Node, len(nodes))
	for i, node := range nodes {
		node.Data = copyData(node.Data)
		out[i] = node
	}
	return out
}

func copyData(data domain.NodeData) domain.NodeData {
	if data == nil {
		return nil
	}
	out := make(domain.NodeData, len(data))
	for k, v := range data {
		if nested, ok := v.(map[string]any); ok {
			inner := make(map[string]any, len(nested))
			for nk, nv := range nested {
				inner[nk] = nv
			}
			out[k] = inner
			continue
		}
		out[k] = v
	}
	return out
}

func validateWorkflowInput(in WorkflowInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("%w: workflow name is required", domain.ErrValidation)
	}
	if len(name) > maxWorkflowNameLen {
		return fmt.Errorf("%w: workflow name must be %d characters or less", domain.ErrValidation, maxWorkflowNameLen)
	}
	if len(in.Nodes) == 0 {
		return fmt.Errorf("%w: at least one node is required", domain.ErrValidation)
	}
	if len(in.Nodes) > maxWorkflowNodes {
		return fmt.Errorf("%w: maximum %d nodes allowed per workflow", domain.ErrValidation, maxWorkflowNodes)
	}
	return nil
}

// newWorkflowID builds ids of the form wf_<unix>_<random>.
func newWorkflowID(now time.Time) string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("wf_%d_%s", now.Unix(), base64.RawURLEncoding.EncodeToString(buf))
}
