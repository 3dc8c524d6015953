package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Batch is one coalesced burst of filesystem changes under the watched
// root. Watch mode treats every batch as "the tree moved, rescan".
type Batch struct {
	Paths     []string
	Timestamp time.Time
}

// Notifier watches a directory tree and delivers change batches after a
// quiet window, so a burst of saves triggers one rescan instead of many.
type Notifier struct {
	root     string
	fsw      *fsnotify.Watcher
	batches  chan Batch
	ignorer  func(relPath string) bool
	quiet    time.Duration
	pending  map[string]time.Time
	stop     chan struct{}
	stopped  chan struct{}
}

func New(root string, quiet time.Duration, ignorer func(relPath string) bool) (*Notifier, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root path required")
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if quiet <= 0 {
		quiet = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Notifier{
		root:    root,
		fsw:     fsw,
		batches: make(chan Batch, 8),
		ignorer: ignorer,
		quiet:   quiet,
		pending: make(map[string]time.Time),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

func (n *Notifier) Start() error {
	if err := n.addDirRecursive(n.root); err != nil {
		return err
	}
	go n.run()
	return nil
}

func (n *Notifier) Stop() {
	close(n.stop)
	_ = n.fsw.Close()
	<-n.stopped
}

func (n *Notifier) Batches() <-chan Batch {
	return n.batches
}

func (n *Notifier) run() {
	defer close(n.batches)
	defer close(n.stopped)

	ticker := time.NewTicker(n.quiet / 2)
	defer ticker.Stop()

	for {
		select {
		case <-n.stop:
			return
		case ev, ok := <-n.fsw.Events:
			if !ok {
				return
			}
			n.handle(ev)
		case _, ok := <-n.fsw.Errors:
			if !ok {
				continue
			}
		case now := <-ticker.C:
			n.flush(now)
		}
	}
}

func (n *Notifier) handle(ev fsnotify.Event) {
	if strings.TrimSpace(ev.Name) == "" {
		return
	}
	relPath, ok := n.relPath(ev.Name)
	if !ok || relPath == "." {
		return
	}
	// Dotted segments (.git, tooling dirs) never trigger rescans.
	for _, seg := range strings.Split(relPath, "/") {
		if strings.HasPrefix(seg, ".") {
			return
		}
	}
	if n.ignorer != nil && n.ignorer(relPath) {
		return
	}

	if ev.Op&fsnotify.Create != 0 && n.isDir(ev.Name) {
		_ = n.addDirRecursive(ev.Name)
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		n.pending[relPath] = time.Now()
	}
}

// flush emits one batch once every pending path has been quiet long
// enough. A path still churning holds the whole batch back.
func (n *Notifier) flush(now time.Time) {
	if len(n.pending) == 0 {
		return
	}
	for _, last := range n.pending {
		if now.Sub(last) < n.quiet {
			return
		}
	}

	paths := make([]string, 0, len(n.pending))
	for relPath := range n.pending {
		paths = append(paths, relPath)
	}
	sort.Strings(paths)
	n.pending = make(map[string]time.Time)

	select {
	case n.batches <- Batch{Paths: paths, Timestamp: now}:
	case <-n.stop:
	}
}

func (n *Notifier) addDirRecursive(path string) error {
	return filepath.WalkDir(path, func(next string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&os.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		relPath, ok := n.relPath(next)
		if !ok {
			return filepath.SkipDir
		}
		if relPath != "." {
			if strings.HasPrefix(filepath.Base(next), ".") {
				return filepath.SkipDir
			}
			if n.ignorer != nil && n.ignorer(relPath) {
				return filepath.SkipDir
			}
		}
		return n.fsw.Add(next)
	})
}

func (n *Notifier) relPath(path string) (string, bool) {
	rel, err := filepath.Rel(n.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "" {
		return "", false
	}
	return rel, true
}

func (n *Notifier) isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
