package health

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/store"
)

type stubStore struct {
	backend string
	err     error
}

func (s stubStore) Ping(context.Context) error { return s.err }
func (s stubStore) Backend() string            { return s.backend }

func TestCollectStatus(t *testing.T) {
	cfg := &config.Config{
		Gemini: config.GeminiConfig{
			APIKeys:        nil,
			DefaultModel:   "gemini-3-test",
			TimeoutSeconds: 10,
		},
	}

	resp := NewChecker(cfg, store.NewMemoryStore()).Collect(context.Background(), false)
	if resp.Status != "degraded" {
		t.Fatalf("expected degraded status without api key, got %s", resp.Status)
	}
	if resp.Components["store"].Status != "ok" {
		t.Fatalf("expected store ok when disabled, got %s", resp.Components["store"].Status)
	}
	if resp.Components["gemini"].Detail["instrument_model"] != "gemini-3-test" {
		t.Fatalf("unexpected gemini detail: %+v", resp.Components["gemini"].Detail)
	}
}

func TestCollectDeepStoreCheck(t *testing.T) {
	cfg := &config.Config{
		Gemini: config.GeminiConfig{APIKeys: []string{"k"}},
		Store:  config.StoreConfig{Enabled: true},
	}

	resp := NewChecker(cfg, stubStore{backend: "valkey"}).Collect(context.Background(), true)
	if resp.Status != "ok" {
		t.Fatalf("expected ok, got %+v", resp)
	}

	resp = NewChecker(cfg, stubStore{backend: "valkey", err: errors.New("down")}).Collect(context.Background(), true)
	if resp.Components["store"].Status != "degraded" || resp.Components["store"].Detail["ping_error"] != "down" {
		t.Fatalf("expected degraded store, got %+v", resp.Components["store"])
	}

	resp = NewChecker(cfg, stubStore{backend: "memory"}).Collect(context.Background(), false)
	if resp.Components["store"].Status != "degraded" {
		t.Fatalf("memory fallback must be reported as degraded when store is enabled")
	}
}

func TestCollectWithValkey(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Gemini: config.GeminiConfig{APIKeys: []string{"k"}},
		Store: config.StoreConfig{
			URL:                "redis://" + mr.Addr(),
			Enabled:            true,
			DisableCache:       true,
			ConnectMaxAttempts: 1,
		},
	}
	st, err := store.NewStore(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(st.Close)

	resp := NewChecker(cfg, st).Collect(context.Background(), true)
	if resp.Status != "ok" {
		t.Fatalf("expected ok with valkey, got %+v", resp)
	}
}
