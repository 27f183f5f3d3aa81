package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/meetingbot/pkg/audio"
	"github.com/codeready-toolchain/meetingbot/pkg/browser"
)

// initCaptureScript wires an AudioContext to the meeting tab's <video>
// element, mirroring audio_capture.py's MediaElementSource hookup, and
// stashes the graph on window so repeated captureChunkScript calls reuse
// the same destination stream instead of re-wiring on every chunk.
const initCaptureScript = `
(() => {
  if (window.__meetingBotAudio) return true;
  const ctx = new (window.AudioContext || window.webkitAudioContext)();
  const dest = ctx.createMediaStreamDestination();
  const video = document.querySelector('video');
  let wired = false;
  if (video) {
    try {
      ctx.createMediaElementSource(video).connect(dest);
      wired = true;
    } catch (e) {}
  }
  window.__meetingBotAudio = { ctx, dest, wired };
  return wired;
})();
`

// captureChunkScriptf records durationSeconds of the wired destination
// stream via MediaRecorder, then returns it base64-encoded. The capture
// format is whatever the browser's MediaRecorder default mimeType
// produces (commonly audio/webm;codecs=opus). The Chunker's WAV
// validation rejects a non-WAV result, so such a chunk is dropped; the
// silent placeholder only stands in when Source reports ok=false.
const captureChunkScriptf = `
(() => new Promise((resolve) => {
  const state = window.__meetingBotAudio;
  if (!state || !state.wired) { resolve(null); return; }
  const recorder = new MediaRecorder(state.dest.stream);
  const chunks = [];
  recorder.ondataavailable = (e) => { if (e.data.size > 0) chunks.push(e.data); };
  recorder.onstop = () => {
    const blob = new Blob(chunks);
    const reader = new FileReader();
    reader.onloadend = () => resolve(String(reader.result).split(',')[1] || null);
    reader.readAsDataURL(blob);
  };
  recorder.start();
  setTimeout(() => recorder.stop(), %d * 1000);
}))
`

// pageAudioSource captures audio.Source from the meeting tab via an
// injected MediaRecorder graph. init runs once per session; capture
// blocks for the full interval since the recorder only yields a blob on
// stop.
type pageAudioSource struct {
	page browser.PageSurface

	mu          sync.Mutex
	initialized bool
}

func newPageAudioSource(page browser.PageSurface) *pageAudioSource {
	return &pageAudioSource{page: page}
}

func (s *pageAudioSource) ensureInit(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return true
	}
	result, err := s.page.EvaluateScript(ctx, initCaptureScript)
	if err != nil {
		slog.Warn("Audio capture graph injection failed", "error", err)
		return false
	}
	wired, _ := result.(bool)
	s.initialized = wired
	return wired
}

// Source implements audio.Source: capture one interval of real tab
// audio, or ok=false to fall back to a silent placeholder.
func (s *pageAudioSource) Source(ctx context.Context, durationSeconds int) ([]byte, bool) {
	if !s.ensureInit(ctx) {
		return nil, false
	}

	script := fmt.Sprintf(captureChunkScriptf, durationSeconds)
	result, err := s.page.EvaluateScript(ctx, script)
	if err != nil {
		slog.Warn("Audio chunk capture script failed", "error", err)
		return nil, false
	}
	encoded, ok := result.(string)
	if !ok || encoded == "" {
		return nil, false
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		slog.Warn("Audio chunk capture returned invalid base64", "error", err)
		return nil, false
	}
	return decoded, true
}

var _ audio.Source = (*pageAudioSource)(nil).Source
