package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

func TestValidate(t *testing.T) {
	doc := &Document{Name: "Vintage Watch", Image: "ipfs://QmImage"}
	assert.NoError(t, doc.Validate())

	doc = &Document{Image: "ipfs://QmImage"}
	assert.ErrorIs(t, doc.Validate(), shared.ErrMetadataNameRequired)

	doc = &Document{Name: "Vintage Watch"}
	assert.ErrorIs(t, doc.Validate(), shared.ErrNoImagesProvided)
}

func TestSetImages(t *testing.T) {
	doc := &Document{Name: "Vintage Watch"}

	doc.SetImages([]string{"ipfs://QmA", "ipfs://QmB"})

	assert.Equal(t, "ipfs://QmA", doc.Image)
	assert.Len(t, doc.Images, 2)
	require.NoError(t, doc.Validate())
}

func TestPlaceholder(t *testing.T) {
	doc := Placeholder()

	require.NotNil(t, doc)
	assert.Equal(t, "Unnamed asset", doc.Name)
}
