package gemini

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest_CurrentTurnOnly(t *testing.T) {
	t.Parallel()
	req := BuildRequest([]Part{TextPart("Hi"), InlinePart("image/png", "AAAA")}, nil, BuildOptions{Model: "gemini-2.0-flash"})

	require.Len(t, req.Contents, 1)
	assert.Equal(t, RoleUser, req.Contents[0].Role)
	assert.Equal(t, []Part{TextPart("Hi"), InlinePart("image/png", "AAAA")}, req.Contents[0].Parts)
	assert.Nil(t, req.SystemInstruction)
	assert.Equal(t, GenerationConfig{Temperature: 1, ResponseMimeType: "text/plain", TopP: 0.95}, req.GenerationConfig)
}

func TestBuildRequest_ReplaysHistoryOnePartPerTurn(t *testing.T) {
	t.Parallel()
	history := []Message{
		{Role: RoleUser, Part: TextPart("Describe")},
		{Role: RoleUser, Part: InlinePart("application/pdf", "JVBE")},
		{Role: RoleModel, Part: TextPart("A pdf")},
	}
	req := BuildRequest([]Part{TextPart("Bye")}, history, BuildOptions{Model: "m"})

	require.Len(t, req.Contents, 4)
	for i, msg := range history {
		assert.Equal(t, msg.Role, req.Contents[i].Role)
		assert.Equal(t, []Part{msg.Part}, req.Contents[i].Parts)
	}
	assert.Equal(t, Content{Role: RoleUser, Parts: []Part{TextPart("Bye")}}, req.Contents[3])
}

func TestBuildRequest_ThinkingModel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		opts BuildOptions
		want *ThinkingConfig
	}{
		{"default thinking model", BuildOptions{Model: ThinkingModel}, &ThinkingConfig{ThinkingBudget: DefaultThinkingBudget}},
		{"other model", BuildOptions{Model: "gemini-2.0-flash"}, nil},
		{"custom budget", BuildOptions{Model: ThinkingModel, ThinkingBudget: 1024}, &ThinkingConfig{ThinkingBudget: 1024}},
		{"custom model", BuildOptions{Model: "thinker", ThinkingModel: "thinker"}, &ThinkingConfig{ThinkingBudget: DefaultThinkingBudget}},
		{"custom model replaces default", BuildOptions{Model: ThinkingModel, ThinkingModel: "thinker"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := BuildRequest([]Part{TextPart("x")}, nil, tt.opts)
			assert.Equal(t, tt.want, req.GenerationConfig.ThinkingConfig)
		})
	}
}

func TestBuildRequest_SystemInstruction(t *testing.T) {
	t.Parallel()
	req := BuildRequest(nil, nil, BuildOptions{SystemInstruction: "  Be brief.  "})
	require.NotNil(t, req.SystemInstruction)
	assert.Equal(t, []Part{TextPart("Be brief.")}, req.SystemInstruction.Parts)
}

func TestRequest_WireFormat(t *testing.T) {
	t.Parallel()
	history := []Message{{Role: RoleModel, Part: TextPart("")}}
	req := BuildRequest([]Part{TextPart("Hi"), InlinePart("image/png", "AAAA")}, history, BuildOptions{Model: ThinkingModel})

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"contents": [
			{"role": "model", "parts": [{"text": ""}]},
			{"role": "user", "parts": [{"text": "Hi"}, {"inlineData": {"mimeType": "image/png", "data": "AAAA"}}]}
		],
		"generationConfig": {
			"temperature": 1,
			"responseMimeType": "text/plain",
			"topP": 0.95,
			"thinkingConfig": {"thinkingBudget": 24576}
		}
	}`, string(raw))
}

func TestPart_UnmarshalJSON(t *testing.T) {
	t.Parallel()
	var parts []Part
	require.NoError(t, json.Unmarshal([]byte(`[{"text":"a"},{"inlineData":{"mimeType":"image/gif","data":"R0lG"}}]`), &parts))
	assert.Equal(t, []Part{TextPart("a"), InlinePart("image/gif", "R0lG")}, parts)
	assert.False(t, parts[0].IsInline())
	assert.True(t, parts[1].IsInline())
}
