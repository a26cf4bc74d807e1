package nim

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tater980/openai-nim-proxy/internal/nimadapter"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// streamThinkClose closes a reasoning block on the streaming path. Unlike the
// buffered thinkClose there is no leading newline: the closing delta continues
// exactly where the last reasoning delta ended.
const streamThinkClose = "</think>\n\n"

// reassembler reconstructs SSE event boundaries from arbitrarily chunked
// upstream reads and applies the reasoning merge incrementally.
//
// One instance exists per streaming connection and is never shared. Bytes
// that have not yet formed a complete newline-terminated line are held in
// carry and prefixed to the next chunk; a trailing partial line at stream end
// is discarded (see the stream termination note in DESIGN.md).
type reassembler struct {
	showReasoning bool

	carry         []byte
	reasoningOpen bool
	done          bool
}

func newReassembler(showReasoning bool) *reassembler {
	return &reassembler{showReasoning: showReasoning}
}

// feed consumes one upstream chunk and returns the transformed events for
// every complete data line it contained, in upstream order. After the [DONE]
// sentinel is seen, done is set and remaining input is ignored.
func (r *reassembler) feed(chunk []byte) []nimadapter.StreamEvent {
	r.carry = append(r.carry, chunk...)

	var events []nimadapter.StreamEvent
	for !r.done {
		idx := bytes.IndexByte(r.carry, '\n')
		if idx < 0 {
			break
		}
		line := r.carry[:idx]
		r.carry = r.carry[idx+1:]

		if event, ok := r.processLine(line); ok {
			events = append(events, event)
		}
	}
	return events
}

// processLine handles one complete line. Blank separator lines and SSE fields
// other than data are dropped; the writer re-inserts separators on output.
func (r *reassembler) processLine(line []byte) (nimadapter.StreamEvent, bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return nimadapter.StreamEvent{}, false
	}

	payload := line[len(dataPrefix):]
	if string(payload) == doneSentinel {
		r.done = true
		return nimadapter.StreamEvent{}, false
	}

	return nimadapter.StreamEvent{Payload: r.transform(payload)}, true
}

// transform rewrites one event payload. Rewrites happen in place with sjson
// so upstream fields the proxy does not model survive verbatim. A payload
// that does not parse as JSON is forwarded untouched.
func (r *reassembler) transform(payload []byte) []byte {
	if !gjson.ValidBytes(payload) {
		return payload
	}

	delta := gjson.GetBytes(payload, "choices.0.delta")
	if !delta.Exists() {
		return payload
	}

	reasoning := delta.Get("reasoning_content")
	content := delta.Get("content")

	if !r.showReasoning {
		// Reasoning never surfaces; content rides through verbatim.
		if reasoning.Exists() {
			if out, err := sjson.DeleteBytes(payload, "choices.0.delta.reasoning_content"); err == nil {
				payload = out
			}
		}
		return payload
	}

	if reasoning.String() == "" && content.String() == "" {
		// Role announcements, finish chunks and other empty deltas ride through.
		return payload
	}

	var merged strings.Builder
	if reasoning.String() != "" {
		if !r.reasoningOpen {
			merged.WriteString(thinkOpen)
			r.reasoningOpen = true
		}
		merged.WriteString(reasoning.String())
	}
	if content.String() != "" {
		if r.reasoningOpen {
			merged.WriteString(streamThinkClose)
			r.reasoningOpen = false
		}
		merged.WriteString(content.String())
	}

	if out, err := sjson.SetBytes(payload, "choices.0.delta.content", merged.String()); err == nil {
		payload = out
	}
	if reasoning.Exists() {
		if out, err := sjson.DeleteBytes(payload, "choices.0.delta.reasoning_content"); err == nil {
			payload = out
		}
	}
	return payload
}
