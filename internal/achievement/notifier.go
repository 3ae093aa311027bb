package achievement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/metrics"
)

// ActivityDrawingAnalysis 는 그림 분석 완료 활동 유형이다.
const ActivityDrawingAnalysis = "drawing_analysis"

const (
	defaultTimeout   = 5 * time.Second
	queuePerWorker   = 64
	resultPublished  = "published"
	resultFailed     = "failed"
	resultDropped    = "dropped"
	resultDisabled   = "disabled"
	resultNoIdentity = "no_identity"
)

// Publisher 는 활동 이벤트를 스트림에 적재한다.
type Publisher interface {
	AppendStream(ctx context.Context, stream string, maxLen int64, fields map[string]string) (string, error)
}

// Event 는 분석 완료 후 업적 평가를 위해 발행하는 활동 이벤트다.
type Event struct {
	UserID     string
	Activity   string
	TaskType   string
	AnalysisID string
	Fallback   bool
	At         time.Time
}

func (e Event) fields() map[string]string {
	return map[string]string{
		"userId":     e.UserID,
		"activity":   e.Activity,
		"taskType":   e.TaskType,
		"analysisId": e.AnalysisID,
		"fallback":   strconv.FormatBool(e.Fallback),
		"at":         e.At.UTC().Format(time.RFC3339Nano),
	}
}

// Notifier 는 이벤트를 호출자와 분리된 작업자 풀에서 발행한다.
// Notify 는 대기하지 않으며 발행 오류는 로그로만 남는다.
type Notifier struct {
	publisher Publisher
	stream    string
	maxLen    int64
	timeout   time.Duration
	logger    *slog.Logger

	queue     chan Event
	workers   *pool.Pool
	done      chan struct{}
	closeOnce sync.Once
}

// NewNotifier 는 업적 알림기를 생성한다. 비활성 설정이면 Notify 가 아무 일도 하지 않는다.
func NewNotifier(cfg *config.Config, publisher Publisher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{logger: logger}
	if cfg == nil || !cfg.Achievement.Enabled || publisher == nil {
		return n
	}

	workers := max(1, cfg.Achievement.Workers)
	timeout := time.Duration(cfg.Achievement.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	n.publisher = publisher
	n.stream = cfg.Achievement.Stream
	n.maxLen = cfg.Achievement.MaxLen
	n.timeout = timeout
	n.queue = make(chan Event, workers*queuePerWorker)
	n.workers = pool.New().WithMaxGoroutines(workers)
	n.done = make(chan struct{})
	go n.dispatch()
	return n
}

// Enabled 는 발행 활성화 여부를 반환한다.
func (n *Notifier) Enabled() bool {
	return n != nil && n.queue != nil
}

// Notify 는 이벤트를 큐에 넣고 즉시 반환한다. 큐가 가득 차면 이벤트를 버린다.
func (n *Notifier) Notify(ctx context.Context, event Event) {
	if !n.Enabled() {
		metrics.RecordAchievement(resultDisabled)
		return
	}
	if event.UserID == "" {
		metrics.RecordAchievement(resultNoIdentity)
		return
	}
	if event.Activity == "" {
		event.Activity = ActivityDrawingAnalysis
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	defer func() {
		// Close 이후 호출
		if recover() != nil {
			metrics.RecordAchievement(resultDropped)
		}
	}()

	select {
	case n.queue <- event:
	default:
		metrics.RecordAchievement(resultDropped)
		n.logger.WarnContext(ctx, "achievement_queue_full",
			"analysis_id", event.AnalysisID,
			"capacity", cap(n.queue),
		)
	}
}

func (n *Notifier) dispatch() {
	defer close(n.done)
	for event := range n.queue {
		n.workers.Go(func() {
			n.publish(event)
		})
	}
	n.workers.Wait()
}

func (n *Notifier) publish(event Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordAchievement(resultFailed)
			n.logger.Error("achievement_publish_panic", "analysis_id", event.AnalysisID, "panic", fmt.Sprint(r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	id, err := n.publisher.AppendStream(ctx, n.stream, n.maxLen, event.fields())
	if err != nil {
		metrics.RecordAchievement(resultFailed)
		n.logger.Warn("achievement_publish_failed",
			"analysis_id", event.AnalysisID,
			"user_id", event.UserID,
			"timeout", errors.Is(err, context.DeadlineExceeded),
			"err", err,
		)
		return
	}
	metrics.RecordAchievement(resultPublished)
	n.logger.Debug("achievement_published", "analysis_id", event.AnalysisID, "stream_id", id)
}

// Close 는 큐를 닫고 남은 이벤트 발행을 기다린다.
func (n *Notifier) Close() {
	if !n.Enabled() {
		return
	}
	n.closeOnce.Do(func() {
		close(n.queue)
		<-n.done
	})
}
