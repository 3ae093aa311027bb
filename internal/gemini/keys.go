package gemini

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"
)

// keyPool 은 API 키를 라운드로빈으로 돌리고 키마다 genai.Client 를 하나씩 재사용한다.
type keyPool struct {
	timeout time.Duration

	mu      sync.Mutex
	keys    []string
	next    int
	clients map[string]*genai.Client
}

func newKeyPool(keys []string, timeout time.Duration) *keyPool {
	return &keyPool{
		timeout: timeout,
		keys:    keys,
		clients: make(map[string]*genai.Client, len(keys)),
	}
}

func (p *keyPool) nextKey() (string, bool) {
	if len(p.keys) == 0 {
		return "", false
	}
	key := p.keys[p.next%len(p.keys)]
	p.next++
	return key, true
}

func (p *keyPool) client(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key, ok := p.nextKey()
	if !ok {
		return nil, ErrMissingAPIKey
	}
	if cached := p.clients[key]; cached != nil {
		return cached, nil
	}

	cc := &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI}
	if p.timeout > 0 {
		cc.HTTPOptions.Timeout = genai.Ptr(p.timeout)
	}
	created, err := genai.NewClient(context.WithoutCancel(ctx), cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	p.clients[key] = created
	return created, nil
}
