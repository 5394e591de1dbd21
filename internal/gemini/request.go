package gemini

import "strings"

const (
	DefaultTemperature      = 1.0
	DefaultTopP             = 0.95
	DefaultResponseMimeType = "text/plain"

	// ThinkingModel is the only model that gets a thinkingConfig by default.
	ThinkingModel         = "gemini-2.5-flash-preview-04-17"
	DefaultThinkingBudget = 24576
)

type BuildOptions struct {
	Model             string
	SystemInstruction string

	// ThinkingModel and ThinkingBudget override the defaults above. A zero
	// budget keeps DefaultThinkingBudget.
	ThinkingModel  string
	ThinkingBudget int
}

// BuildRequest replays every history message as its own single-part turn and
// appends one user turn holding all current parts. Pass nil history to send
// the current turn alone.
func BuildRequest(current []Part, history []Message, opts BuildOptions) Request {
	contents := make([]Content, 0, len(history)+1)
	for _, msg := range history {
		role := msg.Role
		if role == "" {
			role = RoleUser
		}
		contents = append(contents, Content{
			Role:  role,
			Parts: []Part{msg.Part},
		})
	}

	parts := make([]Part, len(current))
	copy(parts, current)
	contents = append(contents, Content{
		Role:  RoleUser,
		Parts: parts,
	})

	req := Request{
		Contents: contents,
		GenerationConfig: GenerationConfig{
			Temperature:      DefaultTemperature,
			ResponseMimeType: DefaultResponseMimeType,
			TopP:             DefaultTopP,
		},
	}

	if sys := strings.TrimSpace(opts.SystemInstruction); sys != "" {
		req.SystemInstruction = &Content{Role: RoleUser, Parts: []Part{TextPart(sys)}}
	}

	thinkingModel := opts.ThinkingModel
	if thinkingModel == "" {
		thinkingModel = ThinkingModel
	}
	if opts.Model == thinkingModel {
		budget := opts.ThinkingBudget
		if budget <= 0 {
			budget = DefaultThinkingBudget
		}
		req.GenerationConfig.ThinkingConfig = &ThinkingConfig{ThinkingBudget: budget}
	}

	return req
}
