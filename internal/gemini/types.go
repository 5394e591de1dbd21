package gemini

import "encoding/json"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part is one unit of prompt content. Exactly one of Text or InlineData is set;
// a part with nil InlineData is a text part, even when Text is empty.
type Part struct {
	Text       string
	InlineData *Blob
}

type Blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func InlinePart(mimeType, base64Data string) Part {
	return Part{InlineData: &Blob{MimeType: mimeType, Data: base64Data}}
}

func (p Part) IsInline() bool {
	return p.InlineData != nil
}

func (p Part) MarshalJSON() ([]byte, error) {
	if p.InlineData != nil {
		return json.Marshal(struct {
			InlineData *Blob `json:"inlineData"`
		}{p.InlineData})
	}
	return json.Marshal(struct {
		Text string `json:"text"`
	}{p.Text})
}

func (p *Part) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text       string `json:"text"`
		InlineData *Blob  `json:"inlineData"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Part{Text: raw.Text, InlineData: raw.InlineData}
	if p.InlineData != nil {
		p.Text = ""
	}
	return nil
}

// Message is one history row. A single prompt with several parts is stored as
// several messages, one per part.
type Message struct {
	Role Role
	Part Part
}

type Content struct {
	Role  Role   `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Request struct {
	Contents          []Content        `json:"contents"`
	SystemInstruction *Content         `json:"systemInstruction,omitempty"`
	GenerationConfig  GenerationConfig `json:"generationConfig"`
}

type GenerationConfig struct {
	Temperature      float64         `json:"temperature"`
	ResponseMimeType string          `json:"responseMimeType"`
	TopP             float64         `json:"topP"`
	ThinkingConfig   *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

type ThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generateContentResponse struct {
	Candidates []candidate      `json:"candidates"`
	Error      json.RawMessage `json:"error"`
}

type candidate struct {
	Content *struct {
		Parts []struct {
			Text *string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
