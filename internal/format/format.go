// Package format builds protocol-compliant chat-completion payloads.
package format

import (
	"fmt"
	"time"
	"unicode/utf8"

	"inferd/pkg/types"
)

// charsPerToken is the heuristic used for usage accounting when the
// runtime exposes no tokenizer.
const charsPerToken = 4

// EstimateTokens approximates a token count as max(1, chars/4).
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s) / charsPerToken
	if n < 1 {
		n = 1
	}
	return n
}

// CompletionID returns a fresh time-based id. Unique within one process,
// not guaranteed across processes.
func CompletionID() string {
	return fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())
}

// ChatResponse assembles the single-choice success body.
func ChatResponse(model, prompt, completion string) types.ChatCompletionResponse {
	promptTokens := EstimateTokens(prompt)
	completionTokens := EstimateTokens(completion)
	return types.ChatCompletionResponse{
		ID:      CompletionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []types.Choice{{
			Index:        0,
			Message:      types.ChoiceMessage{Role: "assistant", Content: completion},
			FinishReason: "stop",
		}},
		Usage: types.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}
}

// ModelList builds the single-element listing for GET /v1/models.
func ModelList(model string, created time.Time) types.ModelList {
	return types.ModelList{
		Object: "list",
		Data: []types.ModelEntry{{
			ID:      model,
			Object:  "model",
			Created: created.Unix(),
			OwnedBy: "local",
		}},
	}
}
