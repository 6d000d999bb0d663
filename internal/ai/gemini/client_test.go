package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeChatResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	response fakeChatResponse
	messages []string
}

func (f *fakeChat) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	for _, part := range parts {
		f.messages = append(f.messages, part.Text)
	}
	return f.response.resp, f.response.err
}

type chatCall struct {
	model  string
	config *genai.GenerateContentConfig
	chat   *fakeChat
}

type fakeChats struct {
	mu    sync.Mutex
	queue []fakeChatResponse
	calls []chatCall
}

func (f *fakeChats) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.queue = append(f.queue, fakeChatResponse{resp: resp, err: err})
}

func (f *fakeChats) Create(_ context.Context, model string, config *genai.GenerateContentConfig, _ []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	chat := &fakeChat{response: f.queue[0]}
	f.queue = f.queue[1:]
	f.calls = append(f.calls, chatCall{model: model, config: config, chat: chat})
	return chat, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func noWait(t *testing.T) *[]time.Duration {
	t.Helper()
	var waited []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}
	t.Cleanup(func() { wait = original })
	return &waited
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	waited := noWait(t)

	chats := &fakeChats{}
	chats.enqueue(nil, genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"})
	chats.enqueue(textResponse("  retry ok "), nil)

	g := &Generator{chats: chats, model: "gemini-test", maxRetries: 3, logger: zap.NewNop()}

	out, err := g.GenerateContent(context.Background(), "system", "message")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "retry ok" {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}
	if len(*waited) != 1 || (*waited)[0] != baseRetryDelay {
		t.Fatalf("unexpected waits: %v", *waited)
	}

	for _, call := range chats.calls {
		if call.model != "gemini-test" {
			t.Fatalf("unexpected model %q", call.model)
		}
		if call.config.SystemInstruction == nil || call.config.SystemInstruction.Parts[0].Text != "system" {
			t.Fatalf("expected system instruction to be set")
		}
		if len(call.chat.messages) != 1 || call.chat.messages[0] != "message" {
			t.Fatalf("unexpected chat messages: %+v", call.chat.messages)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	chats := &fakeChats{}
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue(nil, tempErr)
	chats.enqueue(nil, tempErr)

	g := &Generator{chats: chats, model: "gemini-test", maxRetries: 2, logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "", "msg"); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	noWait(t)

	chats := &fakeChats{}
	chats.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	g := &Generator{chats: chats, model: "gemini-test", maxRetries: 3, logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGeneratorRejectsEmptyResponseAndMessage(t *testing.T) {
	noWait(t)

	chats := &fakeChats{}
	chats.enqueue(textResponse("   "), nil)
	g := &Generator{chats: chats, model: "gemini-test", maxRetries: 1, logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "", "msg"); err == nil {
		t.Fatal("expected error for empty response")
	}
	if _, err := g.GenerateContent(context.Background(), "", "  "); err == nil {
		t.Fatal("expected error for empty message")
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantDelay time.Duration
		wantRetry bool
	}{
		{name: "plain error", err: errors.New("boom")},
		{name: "bad request", err: genai.APIError{Code: http.StatusBadRequest}},
		{name: "server error backs off", err: genai.APIError{Code: http.StatusBadGateway}, wantDelay: 2 * baseRetryDelay, wantRetry: true},
		{name: "short quota delay", err: genai.APIError{Code: http.StatusTooManyRequests, Message: "Please retry in 1.5s."}, wantDelay: 1500 * time.Millisecond, wantRetry: true},
		{name: "quota without hint", err: genai.APIError{Code: http.StatusTooManyRequests}, wantDelay: 2 * baseRetryDelay, wantRetry: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			delay, retry := retryDelay(tt.err, 2)
			if retry != tt.wantRetry || (retry && delay != tt.wantDelay) {
				t.Fatalf("retryDelay() = %v, %v; want %v, %v", delay, retry, tt.wantDelay, tt.wantRetry)
			}
		})
	}
}
