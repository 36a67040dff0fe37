package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/taskwire/internal/llm"
	"github.com/MikeSquared-Agency/taskwire/internal/transcript"
)

// ErrUnexpectedResponse means the model output had none of the accepted shapes.
var ErrUnexpectedResponse = errors.New("unexpected response")

type Message = transcript.Message

type Request struct {
	ChatName string
	Messages []Message
	Members  []string
	Now      time.Time
	Location *time.Location
}

type Extractor struct {
	provider llm.Provider
	logger   *slog.Logger
}

func New(provider llm.Provider, logger *slog.Logger) *Extractor {
	return &Extractor{provider: provider, logger: logger}
}

// Extract asks the provider for action items in req.Messages. Provider errors
// are returned unchanged so their message reaches the caller verbatim.
func (e *Extractor) Extract(ctx context.Context, req Request) ([]CandidateActionItem, error) {
	if len(req.Messages) == 0 {
		return nil, nil
	}

	text := FormatTranscript(req.Messages)
	e.logger.Info("extracting action items",
		"provider", e.provider.Name(),
		"chat", req.ChatName,
		"messages", len(req.Messages),
		"transcript_len", len(text),
	)

	raw, err := e.provider.Complete(ctx, systemPrompt, buildUserPrompt(req, text))
	if err != nil {
		return nil, err
	}

	items, shape, err := decodeItems(raw)
	if err != nil {
		e.logger.Error("failed to parse extraction response", "error", err, "raw", truncate(raw, 2000))
		return nil, err
	}
	if shape != shapeArray {
		e.logger.Warn("non-canonical extraction response", "shape", shape, "chat", req.ChatName)
	}

	e.logger.Info("extraction complete", "chat", req.ChatName, "candidates", len(items))
	return items, nil
}

const (
	shapeArray   = "array"
	shapeWrapped = "wrapped"
	shapeSingle  = "single"
)

var wrapperKeys = []string{"tasks", "items", "actions"}

func decodeItems(raw string) ([]CandidateActionItem, string, error) {
	payload, ok := locateJSON(stripFences(raw))
	if !ok {
		return nil, "", ErrUnexpectedResponse
	}

	if payload[0] == '[' {
		return decodeArray(payload), shapeArray, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, "", ErrUnexpectedResponse
	}
	for _, key := range wrapperKeys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) == 0 {
			continue
		}
		switch v[0] {
		case '[':
			return decodeArray(v), shapeWrapped, nil
		case '{':
			if item, ok := decodeItem(v); ok {
				return []CandidateActionItem{item}, shapeWrapped, nil
			}
		}
	}
	if _, ok := obj["title"]; ok {
		if item, ok := decodeItem(payload); ok {
			return []CandidateActionItem{item}, shapeSingle, nil
		}
	}
	return nil, "", ErrUnexpectedResponse
}

// decodeArray keeps every element that decodes as an item and drops the rest.
func decodeArray(data []byte) []CandidateActionItem {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil
	}
	items := make([]CandidateActionItem, 0, len(elems))
	for _, el := range elems {
		if item, ok := decodeItem(el); ok {
			items = append(items, item)
		}
	}
	return items
}

func decodeItem(data []byte) (CandidateActionItem, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return CandidateActionItem{}, false
	}
	var item CandidateActionItem
	if err := json.Unmarshal(data, &item); err != nil {
		return CandidateActionItem{}, false
	}
	return item, true
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// locateJSON returns s itself when it is valid JSON, otherwise the span between
// the first opening and last closing bracket that parses.
func locateJSON(s string) ([]byte, bool) {
	if s == "" {
		return nil, false
	}
	if json.Valid([]byte(s)) {
		b := []byte(s)
		if b[0] == '[' || b[0] == '{' {
			return b, true
		}
		return nil, false
	}

	type span struct{ open, close byte }
	spans := []span{{'[', ']'}, {'{', '}'}}
	if ai, oi := strings.IndexByte(s, '['), strings.IndexByte(s, '{'); oi >= 0 && (ai < 0 || oi < ai) {
		spans[0], spans[1] = spans[1], spans[0]
	}
	for _, sp := range spans {
		start := strings.IndexByte(s, sp.open)
		end := strings.LastIndexByte(s, sp.close)
		if start < 0 || end <= start {
			continue
		}
		sub := []byte(s[start : end+1])
		if json.Valid(sub) {
			return sub, true
		}
	}
	return nil, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
