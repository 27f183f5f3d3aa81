// Package diarize implements the Speaker Diarizer (C6): a tiered
// strategy for attributing audio chunks to speakers.
package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
	"github.com/codeready-toolchain/meetingbot/pkg/version"
)

// LocalStrategy is a pluggable local diarization tier (neural or
// transcription-based). It returns ok=false when unconfigured or unable
// to produce a result for this chunk, letting the tier chain fall
// through to the next strategy.
type LocalStrategy func(audioBytes []byte) (speakers []models.SpeakerInfo, ok bool)

// Diarizer runs the four-tier speaker-diarization strategy.
type Diarizer struct {
	neural        LocalStrategy
	transcription LocalStrategy

	endpointURL string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// New constructs a Diarizer. neural and transcription may be nil when
// no local model is configured for this deployment — only the remote
// and fallback tiers are then reachable.
func New(cfg *config.DiarizationConfig, neural, transcription LocalStrategy) *Diarizer {
	var limiter *rate.Limiter
	if cfg.RateLimitPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), 1)
	}

	return &Diarizer{
		neural:        neural,
		transcription: transcription,
		endpointURL:   cfg.EndpointURL,
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter:       limiter,
	}
}

// Analyze implements analyze(meeting_id, session_id, chunk_id,
// audio_bytes, snapshot) -> [SpeakerInfo].
func (d *Diarizer) Analyze(ctx context.Context, meetingID, sessionID, chunkID string, audioBytes []byte, snapshot []models.ParticipantSnapshot) []models.SpeakerInfo {
	if d.neural != nil {
		if speakers, ok := d.neural(audioBytes); ok {
			return mapToSnapshot(speakers, snapshot)
		}
	}

	if d.transcription != nil {
		if speakers, ok := d.transcription(audioBytes); ok {
			return mapToSnapshot(speakers, snapshot)
		}
	}

	if d.endpointURL != "" {
		if speakers, err := d.callRemote(ctx, meetingID, sessionID, chunkID, audioBytes); err == nil {
			return mapToSnapshot(speakers, snapshot)
		} else {
			slog.Warn("Remote diarization failed, falling back",
				"meeting_id", meetingID, "session_id", sessionID, "chunk_id", chunkID, "error", err)
		}
	}

	return mapToSnapshot(fallbackSpeakers(), snapshot)
}

// fallbackSpeakers is the deterministic tier-4 fallback.
func fallbackSpeakers() []models.SpeakerInfo {
	return []models.SpeakerInfo{{Label: "speaker_1", Confidence: 0.5}}
}

// remoteResponse is the expected shape of the tier-3 endpoint's reply.
type remoteResponse struct {
	Speakers []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"speakers"`
}

func (d *Diarizer) callRemote(ctx context.Context, meetingID, sessionID, chunkID string, audioBytes []byte) ([]models.SpeakerInfo, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("diarize: rate limit wait: %w", err)
		}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for field, value := range map[string]string{
		"meeting_id": meetingID,
		"session_id": sessionID,
		"chunk_id":   chunkID,
	} {
		if err := writer.WriteField(field, value); err != nil {
			return nil, fmt.Errorf("diarize: write field %s: %w", field, err)
		}
	}

	part, err := writer.CreateFormFile("audio", chunkID+".wav")
	if err != nil {
		return nil, fmt.Errorf("diarize: create form file: %w", err)
	}
	if _, err := part.Write(audioBytes); err != nil {
		return nil, fmt.Errorf("diarize: write audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("diarize: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpointURL, body)
	if err != nil {
		return nil, fmt.Errorf("diarize: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", version.Full())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("diarize: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("diarize: remote status %d", resp.StatusCode)
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("diarize: decode response: %w", err)
	}

	out := make([]models.SpeakerInfo, len(parsed.Speakers))
	for i, s := range parsed.Speakers {
		out[i] = models.SpeakerInfo{Label: s.Label, Confidence: s.Confidence}
	}
	return out, nil
}

// mapToSnapshot maps each speaker label to a snapshot name:
// an exact case-insensitive match first, then the first is_speaking=true
// entry as a weak mapping, otherwise left unmapped. is_bot is inherited
// from whichever snapshot entry the label mapped to.
func mapToSnapshot(speakers []models.SpeakerInfo, snapshot []models.ParticipantSnapshot) []models.SpeakerInfo {
	out := make([]models.SpeakerInfo, len(speakers))
	for i, s := range speakers {
		out[i] = s
		if mapped, isBot, ok := resolveMapping(s.Label, snapshot); ok {
			out[i].MappedName = mapped
			out[i].IsBot = isBot
		}
	}
	return out
}

func resolveMapping(label string, snapshot []models.ParticipantSnapshot) (string, bool, bool) {
	lowerLabel := strings.ToLower(label)
	for _, p := range snapshot {
		if strings.ToLower(p.Name) == lowerLabel {
			return p.Name, p.IsBot, true
		}
	}
	for _, p := range snapshot {
		if p.IsSpeaking {
			return p.Name, p.IsBot, true
		}
	}
	return "", false, false
}

// ActiveSpeaker returns the argmax-confidence entry of speakers, or nil
// if speakers is empty.
func ActiveSpeaker(speakers []models.SpeakerInfo) *models.SpeakerInfo {
	if len(speakers) == 0 {
		return nil
	}
	best := speakers[0]
	for _, s := range speakers[1:] {
		if s.Confidence > best.Confidence {
			best = s
		}
	}
	return &best
}
