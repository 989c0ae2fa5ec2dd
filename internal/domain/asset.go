package domain

import "time"

// AssetType enumerates the kinds of binaries the library stores.
type AssetType string

const (
	AssetTypeImage AssetType = "image"
	AssetTypeVideo AssetType = "video"
)

// AssetSource records how an asset entered the library.
type AssetSource string

const (
	AssetSourceUploaded  AssetSource = "uploaded"
	AssetSourceGenerated AssetSource = "generated"
)

// Asset is the metadata document for a stored binary. BlobPath locates the
// payload inside the blob store and is never exposed to callers directly;
// handlers translate it to a URL.
type Asset struct {
	ID         string
	UserID     string
	Type       AssetType
	BlobPath   string
	MimeType   string
	Prompt     string
	Source     AssetSource
	WorkflowID string
	CreatedAt  time.Time
}

// AssetWithURL pairs an asset with the resolved blob URL for responses.
type AssetWithURL struct {
	Asset
	URL string
}

// AssetFilter narrows library listings. Zero values mean "no filter".
type AssetFilter struct {
	UserID     string
	Type       AssetType
	WorkflowID string
	Limit      int
}
