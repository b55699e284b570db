// Package docs is the boundary to the external document-creation service:
// an Apps-Script web app that copies a template Google Doc per reminder slot
// and returns the new document's id and URL.
package docs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bretthoffman/goteamgo/config"
)

// Request carries the slot and event metadata the script needs to pick a
// template and name the copy.
type Request struct {
	EventID     uuid.UUID `json:"event_id"`
	SlotIndex   int       `json:"slot_index"`
	ReminderKey string    `json:"reminder_key"`
	CallType    string    `json:"call_type"`
	StartAt     time.Time `json:"start_at"`
	Title       string    `json:"title"`
}

// Document is a provisioned document reference
type Document struct {
	ID  string `json:"doc_id"`
	URL string `json:"doc_url"`
}

// ProviderError is a structured provisioning failure carrying the remote
// service's diagnostic payload. Slots stay unlocked when one is returned, so
// the operation is safely retryable.
type ProviderError struct {
	StatusCode int
	Diagnostic string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("doc create failed (HTTP %d): %s", e.StatusCode, e.Diagnostic)
}

// Provisioner creates external documents for reminder slots
type Provisioner interface {
	CreateDocument(ctx context.Context, req Request) (*Document, error)
}

// Client is the HTTP Provisioner implementation
type Client struct {
	httpClient *http.Client
	scriptURL  string
	secret     string
}

// NewClient creates a document provisioning client
func NewClient(cfg config.DocsConfig) (*Client, error) {
	if cfg.ScriptURL == "" {
		return nil, errors.New("docs: script_url is not configured")
	}
	if cfg.Secret == "" {
		return nil, errors.New("docs: secret is not configured")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		scriptURL:  cfg.ScriptURL,
		secret:     cfg.Secret,
	}, nil
}

type scriptResponse struct {
	OK     bool   `json:"ok"`
	DocID  string `json:"doc_id"`
	DocURL string `json:"doc_url"`
	Error  string `json:"error"`
}

// CreateDocument asks the script to copy the template for the given slot.
// Non-2xx responses and responses without ok=true come back as a
// ProviderError with the raw diagnostic body attached.
func (c *Client) CreateDocument(ctx context.Context, req Request) (*Document, error) {
	payload := struct {
		Secret string `json:"secret"`
		Request
	}{
		Secret:  c.secret,
		Request: req,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal doc create payload")
	}

	endpoint := c.scriptURL + "?secret=" + url.QueryEscape(c.secret)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build doc create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "doc create request failed")
	}
	defer resp.Body.Close()

	var parsed scriptResponse
	diagnostic := new(bytes.Buffer)
	decodeErr := json.NewDecoder(io.TeeReader(resp.Body, diagnostic)).Decode(&parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || decodeErr != nil || !parsed.OK {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("diagnostic", diagnostic.String()).
			Msg("Document provisioning failed")
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Diagnostic: diagnostic.String(),
		}
	}

	if parsed.DocID == "" || parsed.DocURL == "" {
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Diagnostic: "response missing doc_id/doc_url: " + diagnostic.String(),
		}
	}

	return &Document{ID: parsed.DocID, URL: parsed.DocURL}, nil
}
