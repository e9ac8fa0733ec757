// Package store is the persistence collaborator client. Documents live in a
// hosted document store; generation treats saving as fire-and-forget, so a
// store failure never fails a run.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"paperforge/internal/document"
	"paperforge/internal/errcode"
)

// Client communicates with the document store HTTP API.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pollInterval: 5 * time.Second,
	}
}

// Summary is a document listing entry.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Sections  int       `json:"sections"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is one change-feed notification.
type Event struct {
	Type       string    `json:"type"` // created, updated, deleted
	DocumentID string    `json:"doc_id"`
	At         time.Time `json:"at"`
}

// Save stores or replaces a document and returns its ID.
func (c *Client) Save(ctx context.Context, doc *document.Document) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", errcode.Wrap(errcode.Database, err, "marshal document")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/documents/"+url.PathEscape(doc.ID), bytes.NewReader(body))
	if err != nil {
		return "", errcode.Wrap(errcode.Database, err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errcode.Wrap(errcode.Database, err, "save document")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", errcode.New(errcode.Database, "save document %s: status %d: %s", doc.ID, resp.StatusCode, readBody(resp))
	}
	return doc.ID, nil
}

// List returns summaries of the owner's documents.
func (c *Client) List(ctx context.Context, ownerID string) ([]Summary, error) {
	u := c.baseURL + "/documents?owner=" + url.QueryEscape(ownerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errcode.Wrap(errcode.Database, err, "create request")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errcode.Wrap(errcode.Database, err, "list documents")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errcode.New(errcode.Database, "list documents: status %d: %s", resp.StatusCode, readBody(resp))
	}

	var result struct {
		Documents []Summary `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errcode.Wrap(errcode.Database, err, "decode document list")
	}
	return result.Documents, nil
}

// Get fetches a full document by ID. Returns nil when the document does not
// exist.
func (c *Client) Get(ctx context.Context, id string) (*document.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/documents/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, errcode.Wrap(errcode.Database, err, "create request")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errcode.Wrap(errcode.Database, err, "get document")
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errcode.New(errcode.Database, "get document %s: status %d: %s", id, resp.StatusCode, readBody(resp))
	}

	var doc document.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errcode.Wrap(errcode.Database, err, "decode document")
	}
	return &doc, nil
}

// Delete removes a document.
func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/documents/"+url.PathEscape(id), nil)
	if err != nil {
		return errcode.Wrap(errcode.Database, err, "create request")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errcode.Wrap(errcode.Database, err, "delete document")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return errcode.New(errcode.Database, "delete document %s: status %d: %s", id, resp.StatusCode, readBody(resp))
	}
	return nil
}

// Subscribe polls the store's change feed for the owner's documents and
// invokes onChange for every new event. The returned function stops the
// subscription.
func (c *Client) Subscribe(ctx context.Context, ownerID string, onChange func(Event)) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	since := time.Now()

	go func() {
		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
				events, err := c.changes(subCtx, ownerID, since)
				if err != nil {
					continue // transient; next tick retries
				}
				for _, ev := range events {
					if ev.At.After(since) {
						since = ev.At
					}
					onChange(ev)
				}
			}
		}
	}()

	return cancel, nil
}

func (c *Client) changes(ctx context.Context, ownerID string, since time.Time) ([]Event, error) {
	u := fmt.Sprintf("%s/documents/changes?owner=%s&since=%s",
		c.baseURL, url.QueryEscape(ownerID), url.QueryEscape(since.Format(time.RFC3339Nano)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("changes: status %d", resp.StatusCode)
	}

	var result struct {
		Events []Event `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Events, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return string(b)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
