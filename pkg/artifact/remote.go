package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

// RemoteMirror best-effort POSTs chunks and summaries to an external
// artifact-store endpoint for the hybrid deployment mode, rate-limited
// so a slow or unreachable collaborator cannot starve the local store.
type RemoteMirror struct {
	endpointURL string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewRemoteMirror returns nil when cfg carries no ArtifactStoreEndpoint.
func NewRemoteMirror(cfg *config.ArtifactsConfig) *RemoteMirror {
	if cfg == nil || cfg.ArtifactStoreEndpoint == "" {
		return nil
	}

	var limiter *rate.Limiter
	if cfg.RateLimitPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), 1)
	}

	return &RemoteMirror{
		endpointURL: cfg.ArtifactStoreEndpoint,
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter:     limiter,
	}
}

// MirrorChunk uploads a chunk's audio bytes and metadata as a
// multipart/form-data POST to "{endpoint}/chunks".
func (m *RemoteMirror) MirrorChunk(ctx context.Context, chunk models.AudioChunk, audioBytes []byte) error {
	if err := m.wait(ctx); err != nil {
		return err
	}

	metaJSON, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("artifact: marshal chunk for remote mirror: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("metadata", string(metaJSON)); err != nil {
		return fmt.Errorf("artifact: write metadata field: %w", err)
	}
	part, err := writer.CreateFormFile("audio", chunk.ChunkID+".wav")
	if err != nil {
		return fmt.Errorf("artifact: create form file: %w", err)
	}
	if _, err := part.Write(audioBytes); err != nil {
		return fmt.Errorf("artifact: write audio bytes: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("artifact: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpointURL+"/chunks", body)
	if err != nil {
		return fmt.Errorf("artifact: build chunk request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return m.do(req)
}

// MirrorSummary uploads a session summary as a JSON POST to
// "{endpoint}/summaries".
func (m *RemoteMirror) MirrorSummary(ctx context.Context, summary models.Summary) error {
	if err := m.wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("artifact: marshal summary for remote mirror: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpointURL+"/summaries", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("artifact: build summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return m.do(req)
}

func (m *RemoteMirror) wait(ctx context.Context) error {
	if m.limiter == nil {
		return nil
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("artifact: remote mirror rate limit wait: %w", err)
	}
	return nil
}

func (m *RemoteMirror) do(req *http.Request) error {
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("artifact: remote mirror request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("artifact: remote mirror status %d", resp.StatusCode)
	}
	return nil
}
