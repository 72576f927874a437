package pair

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"pairloop/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// Manager 持有当前生效的 profile，支持 fsnotify 热更新。
type Manager struct {
	path string

	mu      sync.RWMutex
	current *Profile

	reloadDebounce time.Duration
}

func NewManager(path string) (*Manager, error) {
	p, err := LoadProfile(path)
	if err != nil {
		return nil, err
	}
	return &Manager{
		path:           path,
		current:        p,
		reloadDebounce: 500 * time.Millisecond,
	}, nil
}

func (m *Manager) Current() *Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Manager) reload() {
	p, err := LoadProfile(m.path)
	if err != nil {
		logger.Warnf("pair profile reload failed, keeping previous: %v", err)
		return
	}
	m.mu.Lock()
	old := m.current
	m.current = p
	m.mu.Unlock()
	logger.Infof("pair profile reloaded name=%s legs=%s/%s hold=%s", p.Name, p.LegA, p.LegB, p.HoldTime)
	if old != nil && (old.LegA != p.LegA || old.LegB != p.LegB) {
		logger.Warnf("pair legs changed %s/%s -> %s/%s; existing outcome history keeps old buckets", old.LegA, old.LegB, p.LegA, p.LegB)
	}
}

// Watch 阻塞监听 profile 文件变更，ctx 取消后返回。
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// 监听目录而非文件本身：编辑器的原子替换会使文件级 watch 失效
	dir := filepath.Dir(m.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(m.path)

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(m.reloadDebounce, m.reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("pair profile watcher error: %v", err)
		}
	}
}
