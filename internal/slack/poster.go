package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/taskwire/internal/importer"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// maxListedTasks caps the task lines in one summary message.
const maxListedTasks = 15

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostImportSummary posts the result of an import run. It implements importer.Notifier.
func (p *Poster) PostImportSummary(ctx context.Context, s importer.Summary) error {
	text := formatImportSummary(s)

	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	})
	if err != nil {
		return err
	}

	p.logger.Info("posted import summary to slack", "ts", ts, "chat", s.ChatName)
	return nil
}

// PostText posts a plain mrkdwn message, e.g. a backfill report.
func (p *Poster) PostText(ctx context.Context, text string) error {
	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
	})
	if err != nil {
		return err
	}
	p.logger.Debug("posted text to slack", "ts", ts)
	return nil
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatImportSummary(s importer.Summary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*WhatsApp import:* %s\n", s.ChatName)
	if s.RangeStart != nil && s.RangeEnd != nil {
		fmt.Fprintf(&sb, "*Messages:* %d of %d (%s to %s)\n",
			s.MessagesEligible, s.MessagesParsed,
			s.RangeStart.UTC().Format("2006-01-02 15:04"), s.RangeEnd.UTC().Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintf(&sb, "*Messages:* %d of %d\n", s.MessagesEligible, s.MessagesParsed)
	}

	if s.NoNewMessages {
		sb.WriteString("_No new messages since the last import._")
		return sb.String()
	}

	fmt.Fprintf(&sb, "*Tasks created: %d* (from %d candidates)\n", s.TasksCreated, s.Candidates)
	for i, t := range s.Tasks {
		if i == maxListedTasks {
			fmt.Fprintf(&sb, "...and %d more\n", len(s.Tasks)-maxListedTasks)
			break
		}
		line := fmt.Sprintf("%d. %s [%s]", i+1, t.Title, t.Priority)
		if t.DueDate != "" {
			line += " due " + t.DueDate
		}
		sb.WriteString(line + "\n")
	}

	if s.TasksCreated == 0 {
		sb.WriteString("_No action items found in this window._")
	}
	return strings.TrimRight(sb.String(), "\n")
}
