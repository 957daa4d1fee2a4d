package llm

import (
	"context"
	"encoding/json"

	"github.com/PabloGalante/flashcoach/internal/domain"
)

type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// GenerateReply returns a fixed advice payload in the coaching schema.
func (m *MockLLM) GenerateReply(_ context.Context, userMessage string, convCtx domain.ConversationContext) (string, error) {
	reply := map[string]any{
		"voice_mode": true,
		"speech_flow": map[string]any{
			"intro": "I hear you: " + userMessage,
			"main_advice": []map[string]any{
				{"step": 1, "title": "Pause and reset", "spoken_text": "Use a calm signal to get the class's attention."},
				{"step": 2, "title": "Small groups", "spoken_text": "Give each group one clear task for five minutes."},
			},
			"closing": "You are doing great, try this in your next class.",
		},
		"feedback": map[string]any{
			"feedback_required": true,
			"allowed_values":    []string{"worked", "partially_worked", "did_not_work"},
			"feedback_prompt":   "Did this work in your classroom?",
		},
		"language": convCtx.Language,
	}

	b, err := json.Marshal(reply)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
