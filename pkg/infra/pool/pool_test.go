package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	p, err := NewPool(RelayPool, RelayPoolConfig(4))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	if p.Name() != "relay" {
		t.Errorf("池名称不匹配: 期望 relay, 实际 %s", p.Name())
	}
	if p.Type() != RelayPool {
		t.Errorf("池类型不匹配: 期望 %s, 实际 %s", RelayPool, p.Type())
	}
	if p.Cap() != 4 {
		t.Errorf("池容量不匹配: 期望 4, 实际 %d", p.Cap())
	}
}

func TestNewPoolInvalidConfig(t *testing.T) {
	for _, cfg := range []*Config{nil, {Capacity: 0}, {Capacity: -1}} {
		if _, err := NewPool(CorpusPool, cfg); !errors.Is(err, ErrInvalidPoolConfig) {
			t.Errorf("期望 ErrInvalidPoolConfig, 实际: %v", err)
		}
	}
}

func TestPoolSubmit(t *testing.T) {
	p, err := NewPool(CorpusPool, CorpusPoolConfig(10))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	var counter atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		})
		if err != nil {
			t.Errorf("提交任务失败: %v", err)
			wg.Done()
		}
	}

	wg.Wait()

	if counter.Load() != 100 {
		t.Errorf("任务执行数不匹配: 期望 100, 实际 %d", counter.Load())
	}
	if s := p.Stats(); s.SubmittedTasks != 100 {
		t.Errorf("提交数不匹配: 期望 100, 实际 %d", s.SubmittedTasks)
	}
}

func TestPoolSubmitWithContext(t *testing.T) {
	p, err := NewPool(RelayPool, RelayPoolConfig(5))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	done := make(chan struct{})
	err = p.SubmitWithContext(context.Background(), func() {
		close(done)
	})
	if err != nil {
		t.Errorf("提交任务失败: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("任务未执行")
	}

	// 已取消的上下文
	canceledCtx, cancel := context.WithCancel(context.Background())
	cancel()

	err = p.SubmitWithContext(canceledCtx, func() {
		t.Error("已取消的上下文不应执行任务")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("期望 context.Canceled 错误, 实际: %v", err)
	}
}

func TestPoolPanicRecovery(t *testing.T) {
	caught := make(chan struct{})

	cfg := RelayPoolConfig(5)
	cfg.PanicHandler = func(interface{}) { close(caught) }

	p, err := NewPool(RelayPool, cfg)
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	if err := p.Submit(func() { panic("测试 panic") }); err != nil {
		t.Errorf("提交任务失败: %v", err)
	}

	select {
	case <-caught:
	case <-time.After(time.Second):
		t.Fatal("panic 未被捕获")
	}
	if p.Stats().PanicRecovered != 1 {
		t.Errorf("panic 计数不匹配: 期望 1, 实际 %d", p.Stats().PanicRecovered)
	}
}

func TestPoolClosed(t *testing.T) {
	p, err := NewPool(CorpusPool, CorpusPoolConfig(5))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}

	p.Release()
	p.Release()

	err = p.Submit(func() {
		t.Error("已关闭的池不应执行任务")
	})
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("期望 ErrPoolClosed, 实际: %v", err)
	}
}

func TestPoolNonblocking(t *testing.T) {
	p, err := NewPool(RelayPool, RelayPoolConfig(1))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	// 占用唯一的 worker
	done := make(chan struct{})
	started := make(chan struct{})
	err = p.Submit(func() {
		close(started)
		<-done
	})
	if err != nil {
		t.Errorf("提交任务失败: %v", err)
	}
	<-started

	err = p.Submit(func() {
		t.Error("非阻塞模式下池满时不应执行任务")
	})
	if !errors.Is(err, ErrPoolOverload) {
		t.Errorf("期望 ErrPoolOverload, 实际: %v", err)
	}
	if p.Stats().RejectedTasks != 1 {
		t.Errorf("拒绝数不匹配: 期望 1, 实际 %d", p.Stats().RejectedTasks)
	}

	close(done)
}

func TestPoolReleaseTimeout(t *testing.T) {
	p, err := NewPool(CorpusPool, CorpusPoolConfig(2))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}

	var finished atomic.Bool
	_ = p.Submit(func() {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	})

	if err := p.ReleaseTimeout(time.Second); err != nil {
		t.Errorf("ReleaseTimeout 失败: %v", err)
	}
	if !finished.Load() {
		t.Error("ReleaseTimeout 应等待任务完成")
	}
	if err := p.ReleaseTimeout(time.Second); err != nil {
		t.Errorf("重复 ReleaseTimeout 应返回 nil: %v", err)
	}
}

func BenchmarkPoolSubmit(b *testing.B) {
	cfg := CorpusPoolConfig(1000)
	cfg.PreAlloc = true
	p, _ := NewPool(CorpusPool, cfg)
	defer p.Release()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = p.Submit(func() {})
		}
	})
}
