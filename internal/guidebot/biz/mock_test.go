package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/guidebot/pkg/llm"
	"github.com/kart-io/guidebot/pkg/relay"
)

// mockEmbedding 按文本返回预设向量，未预设的文本返回 fallback。
type mockEmbedding struct {
	vectors  map[string][]float32
	fallback []float32
	failOn   map[string]bool
	err      error
	calls    atomic.Int64
}

func (m *mockEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	if m.failOn[text] {
		return nil, fmt.Errorf("embedding failed for %q", text)
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbedding) Name() string { return "mock-embedding" }

var _ llm.EmbeddingProvider = (*mockEmbedding)(nil)

type mockGeneration struct {
	answer string
	err    error

	mu      sync.Mutex
	prompts []string
}

func (m *mockGeneration) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockGeneration) Name() string { return "mock-generation" }

func (m *mockGeneration) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

var _ llm.GenerationProvider = (*mockGeneration)(nil)

type mockRelay struct {
	delay time.Duration
	err   error

	mu   sync.Mutex
	sent []relay.Message
}

func (m *mockRelay) Send(ctx context.Context, msg relay.Message) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

func (m *mockRelay) Name() string { return "mock-relay" }

func (m *mockRelay) messages() []relay.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]relay.Message(nil), m.sent...)
}

var _ relay.Relay = (*mockRelay)(nil)

// goSubmitter 每个任务一个 goroutine。
type goSubmitter struct{}

func (goSubmitter) Submit(task func()) error {
	go task()
	return nil
}

func (g goSubmitter) SubmitWithContext(ctx context.Context, task func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.Submit(task)
}

// rejectSubmitter 拒绝所有任务。
type rejectSubmitter struct{ err error }

func (r rejectSubmitter) Submit(func()) error { return r.err }

func (r rejectSubmitter) SubmitWithContext(context.Context, func()) error { return r.err }

// captureLogger 记录所有日志，便于断言。
type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
	kv    []interface{}
}

func (l *captureLogger) add(level, msg string, kv []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (l *captureLogger) Infow(msg string, kv ...interface{})  { l.add("info", msg, kv) }
func (l *captureLogger) Warnw(msg string, kv ...interface{})  { l.add("warn", msg, kv) }
func (l *captureLogger) Errorw(msg string, kv ...interface{}) { l.add("error", msg, kv) }

func (l *captureLogger) find(msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

func (l *captureLogger) dump() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	for _, e := range l.entries {
		fmt.Fprintf(&b, "%s %s %v\n", e.level, e.msg, e.kv)
	}
	return b.String()
}

func (e logEntry) value(key string) interface{} {
	for i := 0; i+1 < len(e.kv); i += 2 {
		if e.kv[i] == key {
			return e.kv[i+1]
		}
	}
	return nil
}

var _ Logger = (*captureLogger)(nil)
