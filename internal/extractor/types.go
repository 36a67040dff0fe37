package extractor

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// CandidateActionItem is one action item proposed by the model. Every field
// is optional on the wire and may be null, a string, a number or a list.
type CandidateActionItem struct {
	Title           FlexString `json:"title"`
	Description     FlexString `json:"description"`
	Assignee        FlexString `json:"assignee"`
	DueDate         FlexString `json:"dueDate"`
	Priority        FlexString `json:"priority"`
	SourceTimestamp FlexString `json:"sourceTimestamp"`
	SourceSender    FlexString `json:"sourceSender"`
}

// FlexString decodes any scalar or list of scalars into a string.
// Lists are joined with ", ".
type FlexString string

func (f FlexString) String() string { return string(f) }

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case '[':
		var parts []FlexString
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		var out []string
		for _, p := range parts {
			if s := strings.TrimSpace(string(p)); s != "" {
				out = append(out, s)
			}
		}
		*f = FlexString(strings.Join(out, ", "))
	case '{':
		// Nested objects carry no usable scalar.
		*f = ""
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			*f = FlexString(n.String())
			return nil
		}
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*f = FlexString(strconv.FormatBool(b))
	}
	return nil
}

// schemaItem documents the expected item shape for the model.
type schemaItem struct {
	Title           string `json:"title" jsonschema:"required,description=Short imperative summary of the action"`
	Description     string `json:"description" jsonschema:"description=Extra context needed to act on it"`
	Assignee        string `json:"assignee" jsonschema:"description=Responsible person by name; several people separated by commas; empty when unknown"`
	DueDate         string `json:"dueDate" jsonschema:"description=Absolute due date as YYYY-MM-DD; empty when none"`
	Priority        string `json:"priority" jsonschema:"enum=critical,enum=very-high,enum=high,enum=medium,enum=low,enum=optional"`
	SourceTimestamp string `json:"sourceTimestamp" jsonschema:"description=Timestamp of the originating message exactly as shown in the transcript"`
	SourceSender    string `json:"sourceSender" jsonschema:"description=Sender of the originating message"`
}
