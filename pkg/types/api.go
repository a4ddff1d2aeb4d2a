package types

import (
	"encoding/json"
	"errors"
)

// Content part type tags accepted in multi-part messages.
const (
	PartText     = "text"
	PartImageURL = "image_url"
	PartAudioURL = "audio_url"
)

// ChatCompletionRequest is the body of POST /v1/chat/completions.
type ChatCompletionRequest struct {
	// Model identifier; must match the model the server is configured with.
	// example: gemma-3n
	Model string `json:"model" example:"gemma-3n"`
	// Conversation messages, oldest first. At least one is required.
	Messages []ChatMessage `json:"messages"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Maximum number of new tokens to generate.
	// example: 256
	MaxTokens int `json:"max_tokens,omitempty" example:"256"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	// Streaming responses are not supported; true is rejected.
	Stream bool `json:"stream,omitempty"`
}

// ChatMessage is one conversation turn.
type ChatMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// ContentKind discriminates the two variants of MessageContent.
type ContentKind int

const (
	// ContentText means the content was a plain JSON string.
	ContentText ContentKind = iota
	// ContentParts means the content was an array of typed parts.
	ContentParts
)

// MessageContent models the OpenAI "string or array of parts" content field
// as an explicit tagged union rather than an interface{} inspected at
// runtime. Exactly one of Text/Parts is meaningful, selected by Kind.
type MessageContent struct {
	Kind  ContentKind
	Text  string
	Parts []ContentPart
}

// TextContent wraps a plain string into the union.
func TextContent(s string) MessageContent {
	return MessageContent{Kind: ContentText, Text: s}
}

// PartsContent wraps a part list into the union.
func PartsContent(parts ...ContentPart) MessageContent {
	return MessageContent{Kind: ContentParts, Parts: parts}
}

var errBadContent = errors.New("content must be a string or an array of content parts")

// UnmarshalJSON performs the discriminated parse: a JSON string selects the
// text variant, a JSON array selects the parts variant.
func (c *MessageContent) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = MessageContent{Kind: ContentText, Text: s}
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(b, &parts); err == nil {
		*c = MessageContent{Kind: ContentParts, Parts: parts}
		return nil
	}
	return errBadContent
}

// MarshalJSON emits the variant in its wire shape.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Kind == ContentParts {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// ContentPart is one typed fragment of a multi-part message.
type ContentPart struct {
	// Type tag: "text", "image_url" or "audio_url". Unknown tags are
	// skipped by the decoder with a warning.
	Type string `json:"type"`
	// Text payload, set when Type == "text".
	Text string `json:"text,omitempty"`
	// Inline image, set when Type == "image_url".
	ImageURL *MediaURL `json:"image_url,omitempty"`
	// Inline audio clip, set when Type == "audio_url".
	AudioURL *MediaURL `json:"audio_url,omitempty"`
}

// MediaURL carries inline base64 media. Supported schemes are
// "data:<mime>;base64,<payload>" and "base64://<payload>"; any other scheme
// is ignored.
type MediaURL struct {
	URL string `json:"url"`
}

// ChatCompletionResponse is the single synchronous completion returned for
// a successful request.
type ChatCompletionResponse struct {
	// example: chatcmpl-1700000000000000000
	ID      string `json:"id" example:"chatcmpl-1700000000000000000"`
	Object  string `json:"object" example:"chat.completion"`
	Created int64  `json:"created" example:"1700000000"`
	Model   string `json:"model" example:"gemma-3n"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice holds the assistant message for one completion.
type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason" example:"stop"`
}

// ChoiceMessage is the assistant reply; response content is always a plain
// string.
type ChoiceMessage struct {
	Role    string `json:"role" example:"assistant"`
	Content string `json:"content"`
}

// Usage carries heuristic token accounting (roughly 4 chars per token).
type Usage struct {
	PromptTokens     int `json:"prompt_tokens" example:"3"`
	CompletionTokens int `json:"completion_tokens" example:"12"`
	TotalTokens      int `json:"total_tokens" example:"15"`
}

// ErrorResponse is the envelope for every failure body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes one failure.
type ErrorBody struct {
	// example: empty content
	Message string `json:"message" example:"empty content"`
	// example: invalid_request
	Type string `json:"type" example:"invalid_request"`
	// HTTP status code echoed into the body.
	// example: 400
	Code int `json:"code" example:"400"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status            string `json:"status" example:"ok"`
	ServerRunning     bool   `json:"server_running" example:"true"`
	ModelLoaded       bool   `json:"model_loaded" example:"true"`
	RequestsProcessed uint64 `json:"requests_processed" example:"42"`
	UptimeSeconds     int64  `json:"uptime_seconds" example:"3600"`
}

// ModelList is returned by GET /v1/models.
type ModelList struct {
	Object string       `json:"object" example:"list"`
	Data   []ModelEntry `json:"data"`
}

// ModelEntry describes the single model this server fronts.
type ModelEntry struct {
	ID      string `json:"id" example:"gemma-3n"`
	Object  string `json:"object" example:"model"`
	Created int64  `json:"created" example:"1700000000"`
	OwnedBy string `json:"owned_by" example:"local"`
}
