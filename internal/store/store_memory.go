package store

import (
	"maps"
	"strconv"
	"time"
)

// incrMemory 메모리 백엔드 카운터 증가
func (s *Store) incrMemory(key string, ttl time.Duration) int64 {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.counters[key]
	if !ok || entry.expired(now) {
		entry = memEntry[int64]{}
		if ttl > 0 {
			entry.expiresAt = now.Add(ttl)
		}
	}
	entry.value++
	s.counters[key] = entry
	return entry.value
}

// decrMemory 메모리 백엔드 카운터 감소
func (s *Store) decrMemory(key string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.counters[key]
	if !ok || entry.expired(now) {
		return
	}
	entry.value--
	s.counters[key] = entry
}

// countMemory 메모리 백엔드 카운터 조회
func (s *Store) countMemory(key string) int64 {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.counters[key]
	if !ok {
		return 0
	}
	if entry.expired(now) {
		delete(s.counters, key)
		return 0
	}
	return entry.value
}

// setBytesMemory 메모리 백엔드 값 저장
func (s *Store) setBytesMemory(key string, value []byte, ttl time.Duration) {
	now := time.Now()
	entry := memEntry[[]byte]{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}

	s.mu.Lock()
	s.pruneExpiredLocked(now)
	s.blobs[key] = entry
	s.mu.Unlock()
}

// getBytesMemory 메모리 백엔드 값 조회
func (s *Store) getBytesMemory(key string) ([]byte, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	if entry.expired(now) {
		delete(s.blobs, key)
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

// appendStreamMemory 메모리 백엔드 스트림 추가 (maxLen 초과분은 앞에서 제거)
func (s *Store) appendStreamMemory(stream string, maxLen int64, fields map[string]string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + strconv.FormatInt(s.seq, 10)
	entries := append(s.streams[stream], StreamEntry{ID: id, Fields: maps.Clone(fields)})
	if maxLen > 0 && int64(len(entries)) > maxLen {
		entries = entries[int64(len(entries))-maxLen:]
	}
	s.streams[stream] = entries
	return id
}

// StreamEntries 는 메모리 백엔드 스트림의 복사본을 반환한다. Valkey 백엔드에서는 nil 이다.
func (s *Store) StreamEntries(stream string) []StreamEntry {
	if s.backend != backendMemory {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StreamEntry(nil), s.streams[stream]...)
}

// pruneExpiredLocked 만료된 값 정리 (락 보유 상태에서 호출)
func (s *Store) pruneExpiredLocked(now time.Time) {
	for key, entry := range s.blobs {
		if entry.expired(now) {
			delete(s.blobs, key)
		}
	}
	for key, entry := range s.counters {
		if entry.expired(now) {
			delete(s.counters, key)
		}
	}
}
