// Package resilience 提供外部调用的熔断器。
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/kart-io/logger"
)

// ErrCircuitOpen 熔断器打开，调用被拒绝。
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config 熔断器配置。
type Config struct {
	// Name 熔断器名称，用于日志。
	Name string
	// MaxFailures 触发熔断的连续失败次数，<=0 表示禁用熔断。
	MaxFailures int
	// OpenTimeout 熔断器打开后进入半开状态前的等待时间。
	OpenTimeout time.Duration
}

// DefaultConfig 返回默认熔断器配置。
func DefaultConfig(name string) *Config {
	return &Config{
		Name:        name,
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
	}
}

// State 熔断器状态。
type State int

const (
	// StateClosed 正常放行。
	StateClosed State = iota
	// StateOpen 拒绝所有调用。
	StateOpen
	// StateHalfOpen 放行一个探测调用。
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker 熔断器实现。半开状态只允许一个探测调用在途。
type Breaker struct {
	config *Config
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker 创建熔断器。
func NewBreaker(config *Config) *Breaker {
	if config == nil {
		config = DefaultConfig("default")
	}
	return &Breaker{
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// Execute 通过熔断器执行 fn。熔断器打开时直接返回 ErrCircuitOpen。
func (b *Breaker) Execute(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}

	err := fn()
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	if b.config.MaxFailures <= 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.config.OpenTimeout {
			return ErrCircuitOpen
		}
		logger.Infow("circuit breaker half-open", "breaker", b.config.Name)
		b.state = StateHalfOpen
		b.probing = true
		return nil
	default:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	}
}

func (b *Breaker) after(err error) {
	if b.config.MaxFailures <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state != StateClosed {
			logger.Infow("circuit breaker closed", "breaker", b.config.Name)
		}
		b.state = StateClosed
		b.failures = 0
		b.probing = false
		return
	}

	b.failures++
	switch b.state {
	case StateHalfOpen:
		b.trip()
	case StateClosed:
		if b.failures >= b.config.MaxFailures {
			b.trip()
		}
	}
}

// trip 打开熔断器，调用方持有锁。
func (b *Breaker) trip() {
	logger.Warnw("circuit breaker open",
		"breaker", b.config.Name,
		"failures", b.failures,
		"open_timeout", b.config.OpenTimeout,
	)
	b.state = StateOpen
	b.openedAt = b.now()
	b.probing = false
}

// State 返回当前状态。
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset 重置为关闭状态。
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.probing = false
}
