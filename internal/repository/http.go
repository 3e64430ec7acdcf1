package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// HTTPStore provides access to repository objects via the repository's REST API
type HTTPStore struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPStore creates a new HTTP-backed store
func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

type objectResponse struct {
	PID         string               `json:"pid"`
	Label       string               `json:"label"`
	Models      []string             `json:"models"`
	Datastreams []datastreamResponse `json:"datastreams"`
}

type datastreamResponse struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	MimeType     string `json:"mime_type"`
	ControlGroup string `json:"control_group"`
}

// GetObject fetches object metadata (models, datastream profiles) via the API
func (hs *HTTPStore) GetObject(ctx context.Context, pid string) (*Object, error) {
	u := fmt.Sprintf("%s/api/v1/objects/%s", hs.baseURL, url.PathEscape(pid))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := hs.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("object %s: %w", pid, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("object fetch failed with status %d", resp.StatusCode)
	}

	var body objectResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode object response: %w", err)
	}

	obj := &Object{
		PID:         body.PID,
		Label:       body.Label,
		Models:      body.Models,
		Datastreams: make(map[string]*Datastream),
	}
	for _, ds := range body.Datastreams {
		obj.Datastreams[ds.ID] = &Datastream{
			ID:           ds.ID,
			Label:        ds.Label,
			MimeType:     ds.MimeType,
			ControlGroup: ds.ControlGroup,
		}
	}
	return obj, nil
}

// ReadDatastream streams datastream content via the API
func (hs *HTTPStore) ReadDatastream(ctx context.Context, pid, dsid string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/api/v1/objects/%s/datastreams/%s/content", hs.baseURL, url.PathEscape(pid), url.PathEscape(dsid))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := hs.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download datastream: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("datastream %s/%s: %w", pid, dsid, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("datastream download failed with status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// WriteDatastream uploads datastream content via the API, creating the
// datastream when absent
func (hs *HTTPStore) WriteDatastream(ctx context.Context, pid string, ds Datastream, r io.Reader) error {
	u := fmt.Sprintf("%s/api/v1/objects/%s/datastreams/%s/content", hs.baseURL, url.PathEscape(pid), url.PathEscape(ds.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", ds.MimeType)
	req.Header.Set("X-Datastream-Label", ds.Label)
	if ds.ControlGroup != "" {
		req.Header.Set("X-Datastream-Control-Group", ds.ControlGroup)
	}

	resp, err := hs.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload datastream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("datastream upload failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
