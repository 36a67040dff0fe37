package extractor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
)

const systemPromptTemplate = `You read WhatsApp group chat transcripts and extract action items: tasks someone committed to do, or was asked to do.

Rules:
- Only extract genuine commitments, requests and assignments. Ignore greetings, small talk, reactions, jokes and questions that ask for nothing.
- Each transcript line looks like "[index] timestamp | sender: message". Copy the timestamp of the line an item came from into sourceTimestamp and its sender into sourceSender.
- Prefer real names over phone numbers. When a known team member matches a sender or a person mentioned, use the member's name exactly as listed.
- When several people are responsible, list all of them in assignee, separated by commas.
- Convert relative dates ("tomorrow", "next Friday", "end of month") into absolute YYYY-MM-DD dates, using the current date and timezone given with the transcript. Leave dueDate empty when no date is implied.
- Priority must be one of: critical, very-high, high, medium, low, optional.
  critical: blocking work or people right now, or explicitly an emergency.
  very-high: needed today or has a hard external deadline within a day or two.
  high: important and time-bound this week.
  medium: normal work with no special urgency. Use this when unsure.
  low: nice to have soon, no deadline.
  optional: suggestions or ideas nobody committed to.
- Do not invent items. An empty array is a valid answer.

Respond with a JSON array only, no prose and no code fences. Each element must match this JSON schema:
%s`

var systemPrompt = fmt.Sprintf(systemPromptTemplate, itemSchema())

func itemSchema() string {
	r := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		Anonymous:                  true,
	}
	s := r.Reflect(&schemaItem{})
	s.Version = ""
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		panic(fmt.Sprintf("marshal item schema: %v", err))
	}
	return string(b)
}

// FormatTranscript renders messages one per line as "[i] timestamp | sender: body".
// Indexes start at 1 and embedded newlines are folded into spaces.
func FormatTranscript(msgs []Message) string {
	var b strings.Builder
	for i, m := range msgs {
		body := strings.Join(strings.Fields(strings.ReplaceAll(m.Text, "\n", " ")), " ")
		fmt.Fprintf(&b, "[%d] %s | %s: %s\n", i+1, m.Timestamp.UTC().Format(time.RFC3339), m.Sender, body)
	}
	return b.String()
}

func buildUserPrompt(req Request, transcript string) string {
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(loc)

	members := "(none known)"
	if len(req.Members) > 0 {
		members = strings.Join(req.Members, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Group chat: %s\n", req.ChatName)
	fmt.Fprintf(&b, "Current date: %s (%s)\n", now.Format("2006-01-02 Monday"), loc.String())
	fmt.Fprintf(&b, "Known team members: %s\n\n", members)
	b.WriteString("Transcript:\n")
	b.WriteString(transcript)
	return b.String()
}
