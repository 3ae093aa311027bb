package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/cache"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
)

const (
	defaultThreshold = 0.7
	reloadDebounce   = 200 * time.Millisecond
)

// packSet: 교체 단위의 규칙 묶음. generation 은 캐시 키에 섞여 재적재 시 이전 결과를 무효화한다.
type packSet struct {
	packs      []compiledPack
	generation uint64
}

// InjectionGuard: 호출자가 보낸 자유 텍스트를 검사하는 보안 가드입니다.
type InjectionGuard struct {
	cfg    *config.Config
	logger *slog.Logger
	packs  atomic.Pointer[packSet]
	cache  *cache.TTLCache[string, Evaluation]
	group  singleflight.Group

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
}

// NewGuard: 입력 검증 가드를 생성합니다.
func NewGuard(cfg *config.Config, logger *slog.Logger) (*InjectionGuard, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	cacheTTL := time.Duration(cfg.Guard.CacheTTLSeconds) * time.Second
	guard := &InjectionGuard{
		cfg:    cfg,
		logger: logger,
		cache:  cache.NewTTLCache[string, Evaluation](cfg.Guard.CacheMaxSize, cacheTTL),
	}
	guard.packs.Store(&packSet{})

	if cfg.Guard.Enabled {
		guard.Reload()
	}

	return guard, nil
}

// Reload: 기본 규칙과 설정 디렉터리의 규칙을 다시 읽어 교체합니다.
func (g *InjectionGuard) Reload() int {
	packs := loadDefaultRulepacks(g.logger)
	packs = append(packs, loadRulepacks(g.cfg.Guard.RulepacksDir, g.logger)...)

	previous := g.packs.Load()
	g.packs.Store(&packSet{packs: packs, generation: previous.generation + 1})
	g.cache.Purge()
	if g.logger != nil {
		g.logger.Info("guard_ready", "packs", len(packs), "threshold", g.threshold())
	}
	return len(packs)
}

// Watch: 규칙 디렉터리 변경을 감시해 재적재합니다. ctx 가 끝나면 감시를 멈춥니다.
func (g *InjectionGuard) Watch(ctx context.Context) error {
	dir := g.cfg.Guard.RulepacksDir
	if !g.cfg.Guard.Enabled || !g.cfg.Guard.WatchRulepacks || dir == "" {
		return nil
	}

	g.watchMu.Lock()
	defer g.watchMu.Unlock()
	if g.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create rulepack watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch rulepack dir %s: %w", dir, err)
	}
	g.watcher = watcher

	go g.watchLoop(ctx, watcher)
	if g.logger != nil {
		g.logger.Info("guard_watch_started", "dir", dir)
	}
	return nil
}

func (g *InjectionGuard) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isRulepackFile(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() { g.Reload() })
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if g.logger != nil {
				g.logger.Warn("guard_watch_error", "err", err)
			}
		}
	}
}

// Evaluate: 입력 문자열을 평가합니다.
func (g *InjectionGuard) Evaluate(input string) Evaluation {
	if g == nil || g.cfg == nil || !g.cfg.Guard.Enabled {
		return Evaluation{Score: 0, Hits: nil, Threshold: math.Inf(1)}
	}
	if strings.TrimSpace(input) == "" {
		return Evaluation{Score: 0, Hits: nil, Threshold: g.threshold()}
	}

	set := g.packs.Load()
	key := fmt.Sprintf("%d:%s", set.generation, input)
	if cached, ok := g.cache.Get(key); ok {
		return cached
	}

	value, _, _ := g.group.Do(key, func() (any, error) {
		result := g.evaluateInternal(set.packs, input)
		g.cache.Set(key, result)
		return result, nil
	})

	if evaluation, ok := value.(Evaluation); ok {
		return evaluation
	}
	return Evaluation{Score: 0, Hits: nil, Threshold: g.threshold()}
}

// EnsureSafe: 위험 입력을 오류로 반환합니다.
func (g *InjectionGuard) EnsureSafe(input string) error {
	evaluation := g.Evaluate(input)
	if evaluation.Blocked() {
		return &BlockedError{Score: evaluation.Score, Threshold: evaluation.Threshold, Rules: evaluation.ruleIDs()}
	}
	return nil
}

// PackCount: 적재된 규칙 묶음 수를 반환합니다.
func (g *InjectionGuard) PackCount() int {
	return len(g.packs.Load().packs)
}

// PackInfo 는 적재된 규칙 묶음 요약이다.
type PackInfo struct {
	Name       string  `json:"name"`
	Threshold  float64 `json:"threshold"`
	RegexRules int     `json:"regex_rules"`
	Phrases    int     `json:"phrases"`
}

// Packs 는 현재 세대의 규칙 묶음 요약과 세대 번호를 반환합니다.
func (g *InjectionGuard) Packs() ([]PackInfo, uint64) {
	set := g.packs.Load()
	infos := make([]PackInfo, 0, len(set.packs))
	for _, pack := range set.packs {
		infos = append(infos, PackInfo{
			Name:       pack.name,
			Threshold:  pack.threshold,
			RegexRules: len(pack.regexes),
			Phrases:    len(pack.phrases.phrases),
		})
	}
	return infos, set.generation
}

func (g *InjectionGuard) threshold() float64 {
	if g.cfg == nil {
		return defaultThreshold
	}
	if g.cfg.Guard.Threshold > 0 {
		return g.cfg.Guard.Threshold
	}

	maxThreshold := 0.0
	for _, pack := range g.packs.Load().packs {
		maxThreshold = max(maxThreshold, pack.threshold)
	}
	if maxThreshold > 0 {
		return maxThreshold
	}
	return defaultThreshold
}

func (g *InjectionGuard) evaluateInternal(packs []compiledPack, input string) Evaluation {
	threshold := g.threshold()

	if containsSuspiciousBase64(input) {
		if g.logger != nil {
			g.logger.Warn("guard_base64_payload_blocked", "input", trimForLog(input))
		}
		return Evaluation{
			Score:     threshold,
			Hits:      []Match{{ID: "base64_payload", Weight: threshold}},
			Threshold: threshold,
		}
	}

	candidates := []string{norm.NFC.String(input)}
	if normalized := normalizeText(input); normalized != candidates[0] {
		candidates = append(candidates, normalized)
	}
	score, hits := evaluatePacks(packs, candidates, foldText(input))
	if score >= threshold && g.logger != nil {
		g.logger.Warn("guard_blocked", "score", score, "hits", len(hits), "input", trimForLog(input))
	}
	return Evaluation{Score: score, Hits: hits, Threshold: threshold}
}

func evaluatePacks(packs []compiledPack, candidates []string, folded string) (float64, []Match) {
	total := 0.0
	hits := make([]Match, 0)
	foldedBytes := []byte(folded)
	for _, pack := range packs {
		score, matched := pack.score(candidates, foldedBytes)
		total += score
		hits = append(hits, matched...)
	}
	return total, hits
}

func trimForLog(value string) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= 50 {
		return value
	}
	return string(runes[:50])
}
