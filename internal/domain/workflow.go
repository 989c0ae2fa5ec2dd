package domain

import "time"

// NodeData is the open payload attached to a workflow node. Keys ending in
// "Ref" hold asset IDs; the workflow service resolves them to URLs on read.
// The service never interprets node types beyond that convention.
type NodeData map[string]any

// Node is a single step in a workflow graph. Position is presentational only.
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Position is a 2-D canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge connects two nodes. Source and target are node IDs; handles name the
// logical ports. Edges are topology only and are not validated against node
// existence.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Workflow is a user-authored graph of generation nodes plus metadata.
type Workflow struct {
	ID           string
	UserID       string
	UserEmail    string
	Name         string
	Description  string
	IsPublic     bool
	ThumbnailRef string
	NodeCount    int
	EdgeCount    int
	Nodes        []Node
	Edges        []Edge
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WorkflowSummary is the list-view projection: metadata without graph
// contents, so list responses stay small.
type WorkflowSummary struct {
	ID           string
	UserID       string
	UserEmail    string
	Name         string
	Description  string
	IsPublic     bool
	ThumbnailRef string
	NodeCount    int
	EdgeCount    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WorkflowScope selects which workflows a list call returns.
type WorkflowScope string

const (
	WorkflowScopeMine   WorkflowScope = "my"
	WorkflowScopePublic WorkflowScope = "public"
)
