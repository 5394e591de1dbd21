package gemini

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ResponseType int

const (
	ResponseText ResponseType = iota
	ResponseStructured
)

func (t ResponseType) String() string {
	switch t {
	case ResponseStructured:
		return "structured"
	default:
		return "text"
	}
}

// ParseResponseType maps "text" / "structured" (also "json", "object") to a
// ResponseType. Anything else is ResponseText.
func ParseResponseType(s string) ResponseType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "structured", "json", "object":
		return ResponseStructured
	default:
		return ResponseText
	}
}

// Answer is the generated text of the first candidate. Found is false when
// the response had no candidates[0].content.parts[0].text.
type Answer struct {
	Text  string
	Found bool
}

// ParseResponse decodes a generateContent body. A body carrying an "error"
// object fails with ErrAPI; a body without generated text is not an error.
func ParseResponse(raw []byte) (Answer, error) {
	var decoded generateContentResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Answer{}, decodeError(raw, err)
	}

	if len(decoded.Error) > 0 && string(decoded.Error) != "null" {
		var remote apiError
		if err := json.Unmarshal(decoded.Error, &remote); err != nil {
			remote.Message = strings.TrimSpace(string(decoded.Error))
		}
		return Answer{}, apiErr(remote)
	}

	if len(decoded.Candidates) == 0 {
		return Answer{}, nil
	}
	content := decoded.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0].Text == nil {
		return Answer{}, nil
	}
	return Answer{Text: *content.Parts[0].Text, Found: true}, nil
}

// Reply is what a caller gets back for one prompt. For ResponseText, Text is
// the trimmed answer. For ResponseStructured, Data holds the decoded JSON
// block; when no block could be decoded Data is nil and Text explains why.
type Reply struct {
	Type ResponseType
	Text string
	Data any
	Raw  string
}

// Value returns Data for a decoded structured reply and Text otherwise.
func (r Reply) Value() any {
	if r.Type == ResponseStructured && r.Data != nil {
		return r.Data
	}
	return r.Text
}

func (r Reply) OK() bool {
	return r.Type != ResponseStructured || r.Data != nil
}

func FormatReply(answer Answer, t ResponseType) Reply {
	reply := Reply{Type: t, Raw: answer.Text}
	if t != ResponseStructured {
		reply.Text = strings.TrimSpace(answer.Text)
		return reply
	}

	block, ok := ExtractJSONBlock(answer.Text)
	if !ok {
		reply.Text = "no ```json block found in model response"
		return reply
	}

	var data any
	if err := json.Unmarshal([]byte(block), &data); err != nil {
		reply.Text = fmt.Sprintf("failed to parse ```json block: %v", err)
		return reply
	}
	if data == nil {
		reply.Text = "```json block holds null"
		return reply
	}
	reply.Data = data
	return reply
}

const (
	jsonFenceOpen = "```json"
	fenceClose    = "```"
)

// ExtractJSONBlock returns the trimmed interior of the first ```json fenced
// block in s.
func ExtractJSONBlock(s string) (string, bool) {
	start := strings.Index(s, jsonFenceOpen)
	if start < 0 {
		return "", false
	}
	rest := s[start+len(jsonFenceOpen):]

	end := strings.Index(rest, fenceClose)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
