package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"genmedia/internal/domain"
)

type fakeWorkflowRepo struct {
	workflows map[string]*domain.Workflow
	createErr error
}

func newFakeWorkflowRepo() *fakeWorkflowRepo {
	return &fakeWorkflowRepo{workflows: make(map[string]*domain.Workflow)}
}

func (r *fakeWorkflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	if r.createErr != nil {
		return r.createErr
	}
	cp := *wf
	r.workflows[wf.ID] = &cp
	return nil
}

func (r *fakeWorkflowRepo) GetByID(ctx context.Context, id string) (*domain.Workflow, error) {
	wf, ok := r.workflows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *wf
	return &cp, nil
}

func (r *fakeWorkflowRepo) ListByUser(ctx context.Context, userID string) ([]domain.WorkflowSummary, error) {
	var out []domain.WorkflowSummary
	for _, wf := range r.workflows {
		if wf.UserID == userID {
			out = append(out, summaryOf(wf))
		}
	}
	return out, nil
}

func (r *fakeWorkflowRepo) ListPublic(ctx context.Context) ([]domain.WorkflowSummary, error) {
	var out []domain.WorkflowSummary
	for _, wf := range r.workflows {
		if wf.IsPublic {
			out = append(out, summaryOf(wf))
		}
	}
	return out, nil
}

func (r *fakeWorkflowRepo) Update(ctx context.Context, wf *domain.Workflow) error {
	if _, ok := r.workflows[wf.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *wf
	r.workflows[wf.ID] = &cp
	return nil
}

func (r *fakeWorkflowRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.workflows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.workflows, id)
	return nil
}

func summaryOf(wf *domain.Workflow) domain.WorkflowSummary {
	return domain.WorkflowSummary{ID: wf.ID, UserID: wf.UserID, Name: wf.Name, IsPublic: wf.IsPublic}
}

type fakeResolver struct {
	assets map[string]string // id -> url
	err    error
}

func (f *fakeResolver) Resolve(ctx context.Context, id string) (*domain.AssetWithURL, error) {
	if f.err != nil {
		return nil, f.err
	}
	url, ok := f.assets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.AssetWithURL{Asset: domain.Asset{ID: id}, URL: url}, nil
}

func newTestWorkflowService(repo *fakeWorkflowRepo, resolver *fakeResolver) *WorkflowService {
	if resolver == nil {
		resolver = &fakeResolver{assets: map[string]string{}}
	}
	return NewWorkflowService(repo, resolver, zerolog.Nop())
}

func singleNode() []domain.Node {
	return []domain.Node{{ID: "n1", Type: "imageGen", Data: domain.NodeData{"prompt": "a cat"}}}
}

func TestWorkflowCreateAssignsPrefixedID(t *testing.T) {
	repo := newFakeWorkflowRepo()
	svc := newTestWorkflowService(repo, nil)

	id, err := svc.Create(context.Background(), "u1", "u1@example.com", WorkflowInput{Name: "My Flow", Nodes: singleNode()})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if !strings.HasPrefix(id, "wf_") {
		t.Fatalf("Create() id = %q, want wf_ prefix", id)
	}
	wf := repo.workflows[id]
	if wf == nil {
		t.Fatalf("Create() did not persist workflow")
	}
	if wf.NodeCount != 1 || wf.EdgeCount != 0 {
		t.Fatalf("Create() counts = %d/%d, want 1/0", wf.NodeCount, wf.EdgeCount)
	}
	if wf.UserEmail != "u1@example.com" {
		t.Fatalf("Create() user email = %q", wf.UserEmail)
	}
}

func TestWorkflowCreateValidation(t *testing.T) {
	manyNodes := make([]domain.Node, 101)
	cases := []struct {
		name  string
		input WorkflowInput
		ok    bool
	}{
		{"valid", WorkflowInput{Name: "ok", Nodes: singleNode()}, true},
		{"empty name", WorkflowInput{Name: "  ", Nodes: singleNode()}, false},
		{"name at limit", WorkflowInput{Name: strings.Repeat("a", 100), Nodes: singleNode()}, true},
		{"name over limit", WorkflowInput{Name: strings.Repeat("a", 101), Nodes: singleNode()}, false},
		{"no nodes", WorkflowInput{Name: "ok"}, false},
		{"nodes at limit", WorkflowInput{Name: "ok", Nodes: make([]domain.Node, 100)}, true},
		{"nodes over limit", WorkflowInput{Name: "ok", Nodes: manyNodes}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestWorkflowService(newFakeWorkflowRepo(), nil)
			_, err := svc.Create(context.Background(), "u1", "", tc.input)
			if tc.ok && err != nil {
				t.Fatalf("Create() unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestWorkflowGetAccessControl(t *testing.T) {
	repo := newFakeWorkflowRepo()
	repo.workflows["wf_private"] = &domain.Workflow{ID: "wf_private", UserID: "owner"}
	repo.workflows["wf_public"] = &domain.Workflow{ID: "wf_public", UserID: "owner", IsPublic: true}
	svc := newTestWorkflowService(repo, nil)

	cases := []struct {
		name      string
		id        string
		requester string
		wantErr   error
	}{
		{"owner reads private", "wf_private", "owner", nil},
		{"stranger reads private", "wf_private", "other", domain.ErrPermissionDenied},
		{"stranger reads public", "wf_public", "other", nil},
		{"missing workflow", "wf_nope", "owner", domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Get(context.Background(), tc.id, tc.requester)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("Get() unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("Get() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestWorkflowUpdatePreservesIdentity(t *testing.T) {
	repo := newFakeWorkflowRepo()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.workflows["wf_1"] = &domain.Workflow{
		ID: "wf_1", UserID: "owner", Name: "old", ThumbnailRef: "thumb-1", CreatedAt: created, UpdatedAt: created,
	}
	svc := newTestWorkflowService(repo, nil)

	err := svc.Update(context.Background(), "wf_1", "owner", WorkflowInput{Name: "new", Nodes: singleNode(), IsPublic: true})
	if err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}
	wf := repo.workflows["wf_1"]
	if wf.Name != "new" || !wf.IsPublic {
		t.Fatalf("Update() did not apply fields: %+v", wf)
	}
	if !wf.CreatedAt.Equal(created) {
		t.Fatalf("Update() changed created_at")
	}
	if wf.ThumbnailRef != "thumb-1" {
		t.Fatalf("Update() dropped thumbnail ref")
	}
	if !wf.UpdatedAt.After(created) {
		t.Fatalf("Update() did not refresh updated_at")
	}
}

func TestWorkflowUpdateOwnerOnly(t *testing.T) {
	repo := newFakeWorkflowRepo()
	repo.workflows["wf_1"] = &domain.Workflow{ID: "wf_1", UserID: "owner", IsPublic: true}
	svc := newTestWorkflowService(repo, nil)

	err := svc.Update(context.Background(), "wf_1", "other", WorkflowInput{Name: "x", Nodes: singleNode()})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("Update() error = %v, want ErrPermissionDenied", err)
	}
}

func TestWorkflowDeleteOwnerOnly(t *testing.T) {
	repo := newFakeWorkflowRepo()
	repo.workflows["wf_1"] = &domain.Workflow{ID: "wf_1", UserID: "owner", IsPublic: true}
	svc := newTestWorkflowService(repo, nil)

	if err := svc.Delete(context.Background(), "wf_1", "other"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("Delete() error = %v, want ErrPermissionDenied", err)
	}
	if err := svc.Delete(context.Background(), "wf_1", "owner"); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if _, ok := repo.workflows["wf_1"]; ok {
		t.Fatalf("Delete() left workflow behind")
	}
}

func TestWorkflowClone(t *testing.T) {
	repo := newFakeWorkflowRepo()
	repo.workflows["wf_src"] = &domain.Workflow{
		ID: "wf_src", UserID: "owner", Name: "Flow", IsPublic: true, ThumbnailRef: "thumb",
		NodeCount: 1, Nodes: singleNode(),
	}
	svc := newTestWorkflowService(repo, nil)

	cloneID, err := svc.Clone(context.Background(), "wf_src", "other", "other@example.com")
	if err != nil {
		t.Fatalf("Clone() unexpected error: %v", err)
	}
	if cloneID == "wf_src" {
		t.Fatalf("Clone() reused source id")
	}
	clone := repo.workflows[cloneID]
	if clone.Name != "Flow (Copy)" {
		t.Fatalf("Clone() name = %q, want %q", clone.Name, "Flow (Copy)")
	}
	if clone.IsPublic {
		t.Fatalf("Clone() must be private")
	}
	if clone.UserID != "other" || clone.UserEmail != "other@example.com" {
		t.Fatalf("Clone() owner = %q/%q", clone.UserID, clone.UserEmail)
	}

	// Mutating the clone's node data must not touch the source graph.
	clone.Nodes[0].Data["prompt"] = "changed"
	if repo.workflows["wf_src"].Nodes[0].Data["prompt"] != "a cat" {
		t.Fatalf("Clone() shares node data with source")
	}
}

func TestWorkflowClonePrivateDenied(t *testing.T) {
	repo := newFakeWorkflowRepo()
	repo.workflows["wf_src"] = &domain.Workflow{ID: "wf_src", UserID: "owner"}
	svc := newTestWorkflowService(repo, nil)

	if _, err := svc.Clone(context.Background(), "wf_src", "other", ""); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("Clone() error = %v, want ErrPermissionDenied", err)
	}
}

func TestWorkflowListInvalidScope(t *testing.T) {
	svc := newTestWorkflowService(newFakeWorkflowRepo(), nil)
	if _, err := svc.List(context.Background(), "everything", "u1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("List() error = %v, want ErrValidation", err)
	}
}

func TestResolveInjectsURLAndExists(t *testing.T) {
	repo := newFakeWorkflowRepo()
	repo.workflows["wf_1"] = &domain.Workflow{
		ID: "wf_1", UserID: "owner",
		Nodes: []domain.Node{{
			ID:   "n1",
			Data: domain.NodeData{"imageRef": "asset-1", "prompt": "keep me"},
		}},
	}
	resolver := &fakeResolver{assets: map[string]string{"asset-1": "https://cdn.example/asset-1.png"}}
	svc := newTestWorkflowService(repo, resolver)

	wf, err := svc.Get(context.Background(), "wf_1", "owner")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	data := wf.Nodes[0].Data
	if got := data["imageUrl"]; got != "https://cdn.example/asset-1.png" {
		t.Fatalf("imageUrl = %v, want resolved URL", got)
	}
	if got := data["imageRefExists"]; got != true {
		t.Fatalf("imageRefExists = %v, want true", got)
	}
	if got := data["imageRef"]; got != "asset-1" {
		t.Fatalf("imageRef = %v, original key must survive", got)
	}
	if got := data["prompt"]; got != "keep me" {
		t.Fatalf("prompt = %v, unrelated keys must survive", got)
	}
}

func TestResolveMissingAsset(t *testing.T) {
	repo := newFakeWorkflowRepo()
	repo.workflows["wf_1"] = &domain.Workflow{
		ID: "wf_1", UserID: "owner",
		Nodes: []domain.Node{{ID: "n1", Data: domain.NodeData{"videoRef": "gone"}}},
	}
	svc := newTestWorkflowService(repo, &fakeResolver{assets: map[string]string{}})

	wf, err := svc.Get(context.Background(), "wf_1", "owner")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	data := wf.Nodes[0].Data
	if got := data["videoRefExists"]; got != false {
		t.Fatalf("videoRefExists = %v, want false", got)
	}
	if _, ok := data["videoUrl"]; ok {
		t.Fatalf("videoUrl must be absent for a missing asset")
	}
}

func TestResolveDescendsIntoOutputs(t *testing.T) {
	repo := newFakeWorkflowRepo()
	repo.workflows["wf_1"] = &domain.Workflow{
		ID: "wf_1", UserID: "owner",
		Nodes: []domain.Node{{
			ID: "n1",
			Data: domain.NodeData{
				"outputs": map[string]any{
					"imageRef": "asset-1",
					"deeper": map[string]any{
						"frameRef": "asset-1",
					},
				},
			},
		}},
	}
	resolver := &fakeResolver{assets: map[string]string{"asset-1": "https://cdn.example/a.png"}}
	svc := newTestWorkflowService(repo, resolver)

	wf, err := svc.Get(context.Background(), "wf_1", "owner")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	outputs, ok := wf.Nodes[0].Data["outputs"].(map[string]any)
	if !ok {
		t.Fatalf("outputs vanished after resolution")
	}
	if got := outputs["imageUrl"]; got != "https://cdn.example/a.png" {
		t.Fatalf("outputs.imageUrl = %v, want resolved URL", got)
	}
	// One level only: refs nested deeper than outputs stay untouched.
	deeper := outputs["deeper"].(map[string]any)
	if _, ok := deeper["frameUrl"]; ok {
		t.Fatalf("resolution descended more than one level")
	}
}

func TestResolveSkipsNonStringRefs(t *testing.T) {
	repo := newFakeWorkflowRepo()
	repo.workflows["wf_1"] = &domain.Workflow{
		ID: "wf_1", UserID: "owner",
		Nodes: []domain.Node{{ID: "n1", Data: domain.NodeData{"countRef": 42, "emptyRef": ""}}},
	}
	svc := newTestWorkflowService(repo, nil)

	wf, err := svc.Get(context.Background(), "wf_1", "owner")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	data := wf.Nodes[0].Data
	if _, ok := data["countRefExists"]; ok {
		t.Fatalf("non-string ref must be ignored")
	}
	if _, ok := data["emptyRefExists"]; ok {
		t.Fatalf("empty ref must be ignored")
	}
}

func TestResolveNeverPersisted(t *testing.T) {
	repo := newFakeWorkflowRepo()
	repo.workflows["wf_1"] = &domain.Workflow{
		ID: "wf_1", UserID: "owner",
		Nodes: []domain.Node{{ID: "n1", Data: domain.NodeData{"imageRef": "asset-1"}}},
	}
	resolver := &fakeResolver{assets: map[string]string{"asset-1": "https://cdn.example/a.png"}}
	svc := newTestWorkflowService(repo, resolver)

	if _, err := svc.Get(context.Background(), "wf_1", "owner"); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	stored := repo.workflows["wf_1"].Nodes[0].Data
	if _, ok := stored["imageUrl"]; ok {
		t.Fatalf("resolution leaked into the stored document")
	}
}

func TestResolveAfterAssetDeleted(t *testing.T) {
	repo := newFakeWorkflowRepo()
	repo.workflows["wf_1"] = &domain.Workflow{
		ID: "wf_1", UserID: "owner",
		Nodes: []domain.Node{{ID: "n1", Data: domain.NodeData{"imageRef": "asset-1"}}},
	}
	resolver := &fakeResolver{assets: map[string]string{"asset-1": "https://cdn.example/a.png"}}
	svc := newTestWorkflowService(repo, resolver)

	wf, err := svc.Get(context.Background(), "wf_1", "owner")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if wf.Nodes[0].Data["imageRefExists"] != true {
		t.Fatalf("imageRefExists = %v before delete, want true", wf.Nodes[0].Data["imageRefExists"])
	}

	delete(resolver.assets, "asset-1")

	wf, err = svc.Get(context.Background(), "wf_1", "owner")
	if err != nil {
		t.Fatalf("Get() after delete unexpected error: %v", err)
	}
	if wf.Nodes[0].Data["imageRefExists"] != false {
		t.Fatalf("imageRefExists = %v after delete, want false", wf.Nodes[0].Data["imageRefExists"])
	}
}

func TestResolveLookupErrorDoesNotAbort(t *testing.T) {
	repo := newFakeWorkflowRepo()
	repo.workflows["wf_1"] = &domain.Workflow{
		ID: "wf_1", UserID: "owner",
		Nodes: []domain.Node{{ID: "n1", Data: domain.NodeData{"imageRef": "asset-1", "prompt": "p"}}},
	}
	resolver := &fakeResolver{err: errors.New("backend down")}
	svc := newTestWorkflowService(repo, resolver)

	wf, err := svc.Get(context.Background(), "wf_1", "owner")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if wf.Nodes[0].Data["imageRefExists"] != false {
		t.Fatalf("lookup failure should mark the ref as missing")
	}
}
