package metadata

import (
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

// Attribute is a single trait in an asset metadata document.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Document is the asset metadata JSON pinned to IPFS and referenced by
// proposals and auctions via a content URI.
type Document struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Images      []string    `json:"images,omitempty"`
	Category    string      `json:"category,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
}

// Validate checks the fields required before a document may be pinned.
func (d *Document) Validate() error {
	if d.Name == "" {
		return shared.ErrMetadataNameRequired
	}
	if d.Image == "" && len(d.Images) == 0 {
		return shared.ErrNoImagesProvided
	}
	return nil
}

// SetImages records the pinned image URIs, using the first as the primary.
func (d *Document) SetImages(uris []string) {
	d.Images = uris
	if len(uris) > 0 {
		d.Image = uris[0]
	}
}

// Placeholder returns the document rendered when a metadata fetch fails.
// Reads degrade to placeholder content instead of failing the response.
func Placeholder() *Document {
	return &Document{
		Name:        "Unnamed asset",
		Description: "Metadata unavailable",
		Image:       "",
		Attributes:  nil,
	}
}
