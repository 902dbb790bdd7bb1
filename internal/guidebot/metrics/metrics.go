// Package metrics 提供 guidebot 的业务指标收集。
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/guidebot/pkg/errors"
)

// Metrics 业务指标，全部为原子计数器。
type Metrics struct {
	// 查询指标
	queriesTotal  atomic.Uint64
	queriesFailed atomic.Uint64
	failuresMu    sync.Mutex
	failures      map[string]uint64 // 按错误类型统计

	// 阶段耗时（纳秒累计）
	retrievalNanos  atomic.Int64
	retrievalCount  atomic.Uint64
	generationNanos atomic.Int64
	generationCount atomic.Uint64

	// 转发指标
	relaySent   atomic.Uint64
	relayFailed atomic.Uint64

	// 语料指标
	corpusLoads    atomic.Uint64
	passagesLoaded atomic.Uint64
	passagesFailed atomic.Uint64

	startTime time.Time
}

// Snapshot 指标快照，用于 /metrics 输出。
type Snapshot struct {
	UptimeSeconds       float64           `json:"uptime_seconds"`
	QueriesTotal        uint64            `json:"queries_total"`
	QueriesFailed       uint64            `json:"queries_failed"`
	FailuresByKind      map[string]uint64 `json:"failures_by_kind"`
	RetrievalAvgMillis  float64           `json:"retrieval_avg_ms"`
	GenerationAvgMillis float64           `json:"generation_avg_ms"`
	RelaySent           uint64            `json:"relay_sent"`
	RelayFailed         uint64            `json:"relay_failed"`
	CorpusLoads         uint64            `json:"corpus_loads"`
	PassagesLoaded      uint64            `json:"passages_loaded"`
	PassagesFailed      uint64            `json:"passages_failed"`
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default 返回进程级指标实例。
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

// New 创建独立的指标实例，测试中使用。
func New() *Metrics {
	return &Metrics{
		failures:  make(map[string]uint64),
		startTime: time.Now(),
	}
}

// RecordQuery 记录一次查询结果。失败按注册的错误码归类，
// 自定义消息不影响分类。
func (m *Metrics) RecordQuery(err error) {
	m.queriesTotal.Add(1)
	if err == nil {
		return
	}
	m.queriesFailed.Add(1)

	var kind string
	if e := errors.FromError(err); e != nil {
		kind = e.MessageEN
		if registered, ok := errors.Lookup(e.Code); ok {
			kind = registered.MessageEN
		}
	}
	m.failuresMu.Lock()
	m.failures[kind]++
	m.failuresMu.Unlock()
}

// RecordRetrieval 记录一次检索耗时。
func (m *Metrics) RecordRetrieval(d time.Duration) {
	m.retrievalNanos.Add(int64(d))
	m.retrievalCount.Add(1)
}

// RecordGeneration 记录一次生成耗时。
func (m *Metrics) RecordGeneration(d time.Duration) {
	m.generationNanos.Add(int64(d))
	m.generationCount.Add(1)
}

// RecordRelay 记录一次转发结果。
func (m *Metrics) RecordRelay(err error) {
	if err != nil {
		m.relayFailed.Add(1)
		return
	}
	m.relaySent.Add(1)
}

// RecordCorpusLoad 记录一次语料加载。
func (m *Metrics) RecordCorpusLoad(loaded, failed int) {
	m.corpusLoads.Add(1)
	m.passagesLoaded.Add(uint64(loaded))
	m.passagesFailed.Add(uint64(failed))
}

// Snapshot 返回当前指标快照。
func (m *Metrics) Snapshot() Snapshot {
	m.failuresMu.Lock()
	failures := make(map[string]uint64, len(m.failures))
	for k, v := range m.failures {
		failures[k] = v
	}
	m.failuresMu.Unlock()

	return Snapshot{
		UptimeSeconds:       time.Since(m.startTime).Seconds(),
		QueriesTotal:        m.queriesTotal.Load(),
		QueriesFailed:       m.queriesFailed.Load(),
		FailuresByKind:      failures,
		RetrievalAvgMillis:  avgMillis(m.retrievalNanos.Load(), m.retrievalCount.Load()),
		GenerationAvgMillis: avgMillis(m.generationNanos.Load(), m.generationCount.Load()),
		RelaySent:           m.relaySent.Load(),
		RelayFailed:         m.relayFailed.Load(),
		CorpusLoads:         m.corpusLoads.Load(),
		PassagesLoaded:      m.passagesLoaded.Load(),
		PassagesFailed:      m.passagesFailed.Load(),
	}
}

func avgMillis(nanos int64, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(nanos) / float64(count) / 1e6
}
