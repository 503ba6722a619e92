package orchestrator

import (
	"github.com/baseloop/local-mcp-bridge/internal/a2a"
	"github.com/baseloop/local-mcp-bridge/internal/agents"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// chunkRunes is the delta frame size, counted in code points so
// multi-byte Korean text never splits mid-character.
const chunkRunes = 48

// streamOutput emits the answer as ordered delta frames followed by
// exactly one final frame carrying the whole response. The terminal
// done frame is the HTTP layer's responsibility.
func (o *Orchestrator) streamOutput(rq *agents.Request, resp models.AgentResponse) {
	o.emitA2A(rq, a2a.AgentOrchestrator, a2a.AgentOutput, "stream", map[string]interface{}{
		"length": len(resp.Answer),
	})
	for _, chunk := range chunkText(resp.Answer, chunkRunes) {
		rq.Emitter.Emit(a2a.EventDelta, map[string]interface{}{"text": chunk})
	}
	rq.Emitter.Emit(a2a.EventFinal, resp)
}

func chunkText(s string, size int) []string {
	runes := []rune(s)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
