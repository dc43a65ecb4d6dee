package pinner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bykamri/dev-elaction-sub000/internal/config"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

// PinataClient pins files and JSON documents to IPFS through the Pinata
// pinning API and resolves ipfs:// URIs through a public gateway.
type PinataClient struct {
	apiURL     string
	gatewayURL string
	jwt        string
	httpClient *http.Client
	logger     zerolog.Logger
}

type PinataClientParams struct {
	Config *config.Config
	Logger zerolog.Logger
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

func NewPinataClient(params PinataClientParams) *PinataClient {
	return &PinataClient{
		apiURL:     strings.TrimRight(params.Config.IPFS.APIURL, "/"),
		gatewayURL: strings.TrimRight(params.Config.IPFS.GatewayURL, "/"),
		jwt:        params.Config.IPFS.JWT,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     params.Logger.With().Str("component", "pinata_client").Logger(),
	}
}

// PinFile uploads the given content and returns its ipfs:// URI.
func (c *PinataClient) PinFile(ctx context.Context, name string, content io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrPinningFailed, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrPinningFailed, err)
	}
	metadata, _ := json.Marshal(map[string]string{"name": name})
	if err := writer.WriteField("pinataMetadata", string(metadata)); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrPinningFailed, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrPinningFailed, err)
	}

	hash, err := c.pin(ctx, c.apiURL+"/pinning/pinFileToIPFS", writer.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}

	c.logger.Debug().Str("name", name).Str("cid", hash).Msg("Pinned file")
	return "ipfs://" + hash, nil
}

// PinJSON pins the given document as JSON and returns its ipfs:// URI.
func (c *PinataClient) PinJSON(ctx context.Context, name string, document interface{}) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"pinataContent":  document,
		"pinataMetadata": map[string]string{"name": name},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrPinningFailed, err)
	}

	hash, err := c.pin(ctx, c.apiURL+"/pinning/pinJSONToIPFS", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	c.logger.Debug().Str("name", name).Str("cid", hash).Msg("Pinned JSON document")
	return "ipfs://" + hash, nil
}

func (c *PinataClient) pin(ctx context.Context, url, contentType string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrPinningFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrPinningFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", shared.ErrPinningFailed, resp.StatusCode, string(data))
	}

	var parsed pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrPinningFailed, err)
	}
	if parsed.IpfsHash == "" {
		return "", fmt.Errorf("%w: empty hash in response", shared.ErrPinningFailed)
	}
	return parsed.IpfsHash, nil
}

// FetchJSON resolves an ipfs:// URI through the gateway and decodes the
// JSON document into v.
func (c *PinataClient) FetchJSON(ctx context.Context, uri string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ResolveURI(uri), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMetadataNotFound, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMetadataNotFound, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d for %s", shared.ErrMetadataNotFound, resp.StatusCode, uri)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMetadataNotFound, err)
	}
	return nil
}

// ResolveURI maps an ipfs:// URI to a gateway URL. Plain HTTP URLs pass
// through unchanged.
func (c *PinataClient) ResolveURI(uri string) string {
	if strings.HasPrefix(uri, "ipfs://") {
		return c.gatewayURL + "/ipfs/" + strings.TrimPrefix(uri, "ipfs://")
	}
	return uri
}
