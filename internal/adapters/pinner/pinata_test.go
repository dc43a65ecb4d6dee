package pinner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bykamri/dev-elaction-sub000/internal/config"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/metadata"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

func newTestClient(apiURL, gatewayURL string) *PinataClient {
	return NewPinataClient(PinataClientParams{
		Config: &config.Config{
			IPFS: config.IPFSConfig{
				APIURL:     apiURL,
				GatewayURL: gatewayURL,
				JWT:        "test-jwt",
			},
		},
		Logger: zerolog.Nop(),
	})
}

func TestPinFile(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "front.jpg", header.Filename)

		json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "QmFile"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, "https://gateway.example")

	uri, err := client.PinFile(context.Background(), "front.jpg", strings.NewReader("jpegdata"))
	require.NoError(t, err)

	assert.Equal(t, "ipfs://QmFile", uri)
	assert.Equal(t, "Bearer test-jwt", gotAuth)
	assert.Equal(t, "/pinning/pinFileToIPFS", gotPath)
}

func TestPinJSON(t *testing.T) {
	var payload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "QmJSON"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, "https://gateway.example")

	doc := &metadata.Document{Name: "Vintage Watch", Image: "ipfs://QmImage"}
	uri, err := client.PinJSON(context.Background(), "Vintage Watch", doc)
	require.NoError(t, err)

	assert.Equal(t, "ipfs://QmJSON", uri)

	content, ok := payload["pinataContent"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Vintage Watch", content["name"])

	meta, ok := payload["pinataMetadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Vintage Watch", meta["name"])
}

func TestPinFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "https://gateway.example")

	_, err := client.PinFile(context.Background(), "front.jpg", strings.NewReader("jpegdata"))
	assert.ErrorIs(t, err, shared.ErrPinningFailed)
}

func TestFetchJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ipfs/QmMeta", r.URL.Path)
		json.NewEncoder(w).Encode(metadata.Document{Name: "Vintage Watch", Image: "ipfs://QmImage"})
	}))
	defer server.Close()

	client := newTestClient("https://api.example", server.URL)

	var doc metadata.Document
	require.NoError(t, client.FetchJSON(context.Background(), "ipfs://QmMeta", &doc))
	assert.Equal(t, "Vintage Watch", doc.Name)
}

func TestFetchJSONNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient("https://api.example", server.URL)

	var doc metadata.Document
	err := client.FetchJSON(context.Background(), "ipfs://QmMissing", &doc)
	assert.ErrorIs(t, err, shared.ErrMetadataNotFound)
}

func TestResolveURI(t *testing.T) {
	client := newTestClient("https://api.example", "https://gateway.example/")

	assert.Equal(t, "https://gateway.example/ipfs/QmX", client.ResolveURI("ipfs://QmX"))
	assert.Equal(t, "https://example.com/meta.json", client.ResolveURI("https://example.com/meta.json"))
}
