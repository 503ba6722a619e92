package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// sseEmitter writes a2a frames onto one SSE response. Frames follow
// the HTML SSE spec: an event line, one data line per newline of the
// JSON payload, then a blank line. The emitter is owned by a single
// request goroutine, so no locking is needed; once a write fails or
// the client goes away every further emit is dropped.
type sseEmitter struct {
	ctx      context.Context
	w        http.ResponseWriter
	flusher  http.Flusher
	writable bool
}

func newSSEEmitter(ctx context.Context, w http.ResponseWriter, flusher http.Flusher) *sseEmitter {
	return &sseEmitter{ctx: ctx, w: w, flusher: flusher, writable: true}
}

// Writable reports whether the stream still accepts frames.
func (e *sseEmitter) Writable() bool {
	return e.writable && e.ctx.Err() == nil
}

// Emit writes one frame. Emission is best-effort and never surfaces
// an error to the pipeline.
func (e *sseEmitter) Emit(event string, payload interface{}) {
	if !e.Writable() {
		e.writable = false
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode sse payload")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", event)
	for _, line := range strings.Split(string(data), "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	if _, err := io.WriteString(e.w, b.String()); err != nil {
		log.Debug().Err(err).Msg("sse write failed, dropping stream")
		e.writable = false
		return
	}
	e.flusher.Flush()
}
