package store

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/valkey-io/valkey-go"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
)

// ErrNotFound 는 키가 없거나 만료되었을 때 반환된다.
var ErrNotFound = errors.New("store key not found")

type backend int

const (
	backendMemory backend = iota
	backendValkey
)

// Store 는 Valkey 기반 키-값 저장소다. Valkey 를 쓸 수 없으면 프로세스 메모리로 동작한다.
// 할당량 카운터, 업적 이벤트 스트림, 진단 아카이브가 이 저장소를 공유한다.
type Store struct {
	client  valkey.Client
	backend backend

	mu       sync.Mutex
	counters map[string]memEntry[int64]
	blobs    map[string]memEntry[[]byte]
	streams  map[string][]StreamEntry
	seq      int64
}

// StreamEntry 는 메모리 스트림의 항목이다.
type StreamEntry struct {
	ID     string
	Fields map[string]string
}

type memEntry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e memEntry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// NewStore 는 설정에 따라 저장소를 생성한다.
// 연결은 backoff 로 재시도하며, 필수가 아니면 실패 시 메모리 백엔드로 대체한다.
func NewStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if !cfg.Store.Enabled {
		if cfg.Store.Required {
			return nil, errors.New("store required but disabled")
		}
		logger.Info("store_memory_backend", "reason", "disabled")
		return NewMemoryStore(), nil
	}

	client, err := connect(ctx, cfg.Store, logger)
	if err != nil {
		if cfg.Store.Required {
			return nil, err
		}
		logger.Warn("store_memory_backend", "reason", "connect_failed", "err", err)
		return NewMemoryStore(), nil
	}

	return &Store{client: client, backend: backendValkey}, nil
}

// NewMemoryStore 는 메모리 백엔드 저장소를 생성한다.
func NewMemoryStore() *Store {
	return &Store{
		backend:  backendMemory,
		counters: make(map[string]memEntry[int64]),
		blobs:    make(map[string]memEntry[[]byte]),
		streams:  make(map[string][]StreamEntry),
	}
}

func connect(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (valkey.Client, error) {
	conn, err := parseStoreURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}

	var tlsConfig *tls.Config
	if conn.useTLS {
		host, _, splitErr := net.SplitHostPort(conn.addr)
		if splitErr != nil {
			return nil, fmt.Errorf("parse store addr: %w", splitErr)
		}
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}

	option := valkey.ClientOption{
		TLSConfig:    tlsConfig,
		Username:     conn.username,
		Password:     conn.password,
		InitAddress:  []string{conn.addr},
		SelectDB:     conn.selectDB,
		DisableCache: cfg.DisableCache,
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = time.Duration(max(1, cfg.ConnectRetrySeconds)) * time.Second
	retry.MaxInterval = 10 * time.Second
	retry.Multiplier = 2.0
	retry.RandomizationFactor = 0.2

	attempt := 0
	client, err := backoff.Retry(ctx, func() (valkey.Client, error) {
		attempt++
		c, connErr := valkey.NewClient(option)
		if connErr == nil {
			return c, nil
		}
		if errors.Is(connErr, valkey.ErrNoCache) {
			return nil, backoff.Permanent(connErr)
		}
		return nil, connErr
	},
		backoff.WithBackOff(retry),
		backoff.WithMaxTries(uint(max(1, cfg.ConnectMaxAttempts))),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn("store_connect_retry", "attempt", attempt, "retry_in", wait, "err", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}
	logger.Info("store_connected", "addr", conn.addr, "db", conn.selectDB)
	return client, nil
}

// Backend 는 현재 백엔드 이름을 반환한다.
func (s *Store) Backend() string {
	if s.backend == backendValkey {
		return "valkey"
	}
	return "memory"
}

// Close 는 Valkey 연결을 종료한다.
func (s *Store) Close() {
	if s == nil {
		return
	}
	if s.backend == backendValkey && s.client != nil {
		s.client.Close()
	}
}

// Ping Valkey 연결 확인
func (s *Store) Ping(ctx context.Context) error {
	if s.backend == backendMemory {
		return nil
	}
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping valkey: %w", err)
	}
	return nil
}

// Incr 는 카운터를 1 증가시키고 새 값을 반환한다. 키가 새로 생기면 ttl 을 건다.
func (s *Store) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if s.backend == backendMemory {
		return s.incrMemory(key, ttl), nil
	}

	value, err := s.client.Do(ctx, s.client.B().Incr().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if value == 1 && ttl > 0 {
		cmd := s.client.B().Expire().Key(key).Seconds(int64(ttl.Seconds())).Build()
		if err := s.client.Do(ctx, cmd).Error(); err != nil {
			return value, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return value, nil
}

// Decr 는 카운터를 1 감소시킨다. 거절된 요청의 증가분을 되돌릴 때 쓴다.
func (s *Store) Decr(ctx context.Context, key string) error {
	if s.backend == backendMemory {
		s.decrMemory(key)
		return nil
	}
	if err := s.client.Do(ctx, s.client.B().Decr().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("decr %s: %w", key, err)
	}
	return nil
}

// Count 는 카운터 값을 반환한다. 없으면 0 이다.
func (s *Store) Count(ctx context.Context, key string) (int64, error) {
	if s.backend == backendMemory {
		return s.countMemory(key), nil
	}

	value, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsInt64()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// SetBytes 는 값을 ttl 과 함께 저장한다.
func (s *Store) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.backend == backendMemory {
		s.setBytesMemory(key, value, ttl)
		return nil
	}

	builder := s.client.B().Set().Key(key).Value(valkey.BinaryString(value))
	var cmd valkey.Completed
	if ttl > 0 {
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// GetBytes 는 저장된 값을 반환한다.
func (s *Store) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if s.backend == backendMemory {
		return s.getBytesMemory(key)
	}

	value, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// AppendStream 는 스트림에 항목을 추가하고 근사 MAXLEN 으로 길이를 제한한다.
func (s *Store) AppendStream(ctx context.Context, stream string, maxLen int64, fields map[string]string) (string, error) {
	if len(fields) == 0 {
		return "", errors.New("stream fields are empty")
	}
	if s.backend == backendMemory {
		return s.appendStreamMemory(stream, maxLen, fields), nil
	}

	args := make([]string, 0, 4+len(fields)*2)
	if maxLen > 0 {
		args = append(args, "MAXLEN", "~", strconv.FormatInt(maxLen, 10))
	}
	args = append(args, "*")
	for _, key := range sortedKeys(fields) {
		args = append(args, key, fields[key])
	}

	cmd := s.client.B().Arbitrary("XADD").Keys(stream).Args(args...).Build()
	id, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}
	return id, nil
}

// StreamLength 는 스트림 항목 수를 반환한다.
func (s *Store) StreamLength(ctx context.Context, stream string) (int64, error) {
	if s.backend == backendMemory {
		s.mu.Lock()
		defer s.mu.Unlock()
		return int64(len(s.streams[stream])), nil
	}

	n, err := s.client.Do(ctx, s.client.B().Xlen().Key(stream).Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("xlen %s: %w", stream, err)
	}
	return n, nil
}

func sortedKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
