package provider_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// upstream imitates the OpenAI chat completions and Anthropic messages
// endpoints. The reply is chosen by the first keyword contained in the last
// user turn; streamed replies are split on spaces.
type upstream struct {
	srv      *httptest.Server
	replies  map[string]string
	fallback string
	failOn   string

	mu     sync.Mutex
	bodies []map[string]any
}

func newUpstream(replies map[string]string, fallback, failOn string) *upstream {
	u := &upstream{replies: replies, fallback: fallback, failOn: failOn}

	r := chi.NewRouter()
	r.Post("/chat/completions", u.serve(u.writeOpenAI))
	r.Post("/v1/chat/completions", u.serve(u.writeOpenAI))
	r.Post("/v1/messages", u.serve(u.writeAnthropic))

	u.srv = httptest.NewServer(r)
	return u
}

func (u *upstream) URL() string { return u.srv.URL }

func (u *upstream) Close() { u.srv.Close() }

// requests returns the decoded bodies received so far.
func (u *upstream) requests() []map[string]any {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]map[string]any(nil), u.bodies...)
}

type replyWriter func(w http.ResponseWriter, reply string, stream bool)

func (u *upstream) serve(write replyWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		u.mu.Lock()
		u.bodies = append(u.bodies, body)
		u.mu.Unlock()

		prompt := strings.ToLower(lastUserText(body))
		if u.failOn != "" && strings.Contains(prompt, u.failOn) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"upstream refused"}}`)
			return
		}

		reply := u.fallback
		for keyword, text := range u.replies {
			if strings.Contains(prompt, keyword) {
				reply = text
				break
			}
		}
		stream, _ := body["stream"].(bool)
		write(w, reply, stream)
	}
}

// lastUserText handles both plain string content and content block arrays.
func lastUserText(body map[string]any) string {
	messages, _ := body["messages"].([]any)
	for i := len(messages) - 1; i >= 0; i-- {
		msg, _ := messages[i].(map[string]any)
		if msg["role"] != "user" {
			continue
		}
		switch content := msg["content"].(type) {
		case string:
			return content
		case []any:
			for _, item := range content {
				if block, ok := item.(map[string]any); ok && block["type"] == "text" {
					text, _ := block["text"].(string)
					return text
				}
			}
		}
	}
	return ""
}

// words splits reply into stream deltas that concatenate back to reply.
func words(reply string) []string {
	fields := strings.Fields(reply)
	for i := range fields[:max(len(fields)-1, 0)] {
		fields[i] += " "
	}
	return fields
}

func startStream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
}

func frame(w http.ResponseWriter, event string, v any) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	data, _ := json.Marshal(v)
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (u *upstream) writeOpenAI(w http.ResponseWriter, reply string, stream bool) {
	const id, model = "chatcmpl-upstream", "upstream-gpt"

	if !stream {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     id,
			"object": "chat.completion",
			"model":  model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
		return
	}

	chunk := func(delta map[string]any, finish any) map[string]any {
		return map[string]any{
			"id":      id,
			"object":  "chat.completion.chunk",
			"model":   model,
			"choices": []map[string]any{{"index": 0, "delta": delta, "finish_reason": finish}},
		}
	}

	startStream(w)
	frame(w, "", chunk(map[string]any{"role": "assistant"}, nil))
	for _, word := range words(reply) {
		frame(w, "", chunk(map[string]any{"content": word}, nil))
	}
	frame(w, "", chunk(map[string]any{}, "stop"))
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func (u *upstream) writeAnthropic(w http.ResponseWriter, reply string, stream bool) {
	message := map[string]any{
		"id":            "msg_upstream",
		"type":          "message",
		"role":          "assistant",
		"model":         "upstream-claude",
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"content":       []map[string]any{{"type": "text", "text": reply}},
		"usage":         map[string]any{"input_tokens": 10, "output_tokens": 5},
	}

	if !stream {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(message)
		return
	}

	message["content"] = []any{}
	message["stop_reason"] = nil

	startStream(w)
	frame(w, "message_start", map[string]any{"type": "message_start", "message": message})
	frame(w, "content_block_start", map[string]any{
		"type":          "content_block_start",
		"index":         0,
		"content_block": map[string]any{"type": "text", "text": ""},
	})
	for _, word := range words(reply) {
		frame(w, "content_block_delta", map[string]any{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]any{"type": "text_delta", "text": word},
		})
	}
	frame(w, "content_block_stop", map[string]any{"type": "content_block_stop", "index": 0})
	frame(w, "message_delta", map[string]any{
		"type":  "message_delta",
		"delta": map[string]any{"stop_reason": "end_turn", "stop_sequence": nil},
		"usage": map[string]any{"output_tokens": 5},
	})
	frame(w, "message_stop", map[string]any{"type": "message_stop"})
}
