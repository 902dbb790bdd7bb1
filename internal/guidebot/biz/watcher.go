package biz

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultWatchDebounce = 500 * time.Millisecond

// CorpusWatcher 监听语料文件，变更后重新加载。
// 监听的是文件所在目录，编辑器先写临时文件再改名的保存方式也能被捕获。
type CorpusWatcher struct {
	path     string
	loader   *CorpusLoader
	debounce time.Duration
	log      Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}

	// reloaded 每次重新加载后回调，测试中使用。
	reloaded func(*LoadReport, error)
}

// NewCorpusWatcher 创建语料文件监听器。
func NewCorpusWatcher(path string, loader *CorpusLoader, log Logger) *CorpusWatcher {
	return &CorpusWatcher{
		path:     filepath.Clean(path),
		loader:   loader,
		debounce: defaultWatchDebounce,
		log:      orGlobal(log),
	}
}

// Name 返回组件名称。
func (w *CorpusWatcher) Name() string { return "corpus-watcher" }

// Start 开始监听，监听循环在后台运行。
func (w *CorpusWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return fmt.Errorf("corpus watcher already started")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create corpus watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.watcher = fw
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.loop(loopCtx, fw, w.done)

	w.log.Infow("Watching corpus file", "path", w.path)
	return nil
}

// Stop 停止监听并等待正在进行的重新加载结束。
func (w *CorpusWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	fw, cancel, done := w.watcher, w.cancel, w.done
	w.watcher, w.cancel, w.done = nil, nil, nil
	w.mu.Unlock()

	if fw == nil {
		return nil
	}

	cancel()
	err := fw.Close()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (w *CorpusWatcher) loop(ctx context.Context, fw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			trigger = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warnw("Corpus watcher error", "path", w.path, "error", err.Error())

		case <-trigger:
			trigger = nil
			w.reload(ctx)
		}
	}
}

func (w *CorpusWatcher) reload(ctx context.Context) {
	passages, err := LoadCorpusFile(w.path)
	if err != nil {
		w.log.Errorw("Corpus reload skipped", "path", w.path, "error", err.Error())
		w.notify(nil, err)
		return
	}

	report, err := w.loader.Load(ctx, passages)
	if err != nil {
		w.log.Warnw("Corpus reload finished with failures", "path", w.path, "error", err.Error())
	}
	w.notify(report, err)
}

func (w *CorpusWatcher) notify(report *LoadReport, err error) {
	if w.reloaded != nil {
		w.reloaded(report, err)
	}
}
