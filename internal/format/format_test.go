package format

import (
	"strings"
	"testing"
	"time"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 1},
		{"Hi", 1},
		{"12345678", 2},
		{strings.Repeat("a", 400), 100},
	}
	for _, c := range cases {
		if got := EstimateTokens(c.in); got != c.want {
			t.Fatalf("EstimateTokens(%q)=%d want %d", c.in, got, c.want)
		}
	}
}

func TestChatResponseShape(t *testing.T) {
	resp := ChatResponse("m", "Hi", "Hello there, friend")
	if resp.Object != "chat.completion" {
		t.Fatalf("object=%q", resp.Object)
	}
	if !strings.HasPrefix(resp.ID, "chatcmpl-") {
		t.Fatalf("id=%q", resp.ID)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("choices=%d", len(resp.Choices))
	}
	ch := resp.Choices[0]
	if ch.FinishReason != "stop" || ch.Message.Role != "assistant" {
		t.Fatalf("unexpected choice: %+v", ch)
	}
	if resp.Usage.PromptTokens < 1 || resp.Usage.CompletionTokens < 1 {
		t.Fatalf("usage below floor: %+v", resp.Usage)
	}
	if resp.Usage.TotalTokens != resp.Usage.PromptTokens+resp.Usage.CompletionTokens {
		t.Fatalf("total mismatch: %+v", resp.Usage)
	}
}

func TestCompletionIDUniqueWithinProcess(t *testing.T) {
	a := CompletionID()
	time.Sleep(time.Microsecond)
	b := CompletionID()
	if a == b {
		t.Fatalf("ids collided: %s", a)
	}
}

func TestModelList(t *testing.T) {
	created := time.Unix(1700000000, 0)
	l := ModelList("m", created)
	if l.Object != "list" || len(l.Data) != 1 {
		t.Fatalf("unexpected list: %+v", l)
	}
	if l.Data[0].ID != "m" || l.Data[0].Object != "model" || l.Data[0].Created != 1700000000 {
		t.Fatalf("unexpected entry: %+v", l.Data[0])
	}
}
