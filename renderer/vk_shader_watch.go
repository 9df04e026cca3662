package renderer

import (
	"log"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// ShaderWatcher flags a kernel override file as changed. The frame loop polls Changed between frames and rebuilds the
// compute pipeline, so no GPU object is ever touched from the watcher goroutine.
type ShaderWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	changed atomic.Bool
	done    chan struct{}
}

// NewShaderWatcher watches the directory of path, editors tend to replace files instead of writing them in place.
func NewShaderWatcher(path string) (*ShaderWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve shader path '%s'", path)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "watch '%s'", filepath.Dir(abs))
	}
	sw := &ShaderWatcher{
		path:    abs,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go sw.watch()
	log.Printf("Watching shader override %s", abs)
	return sw, nil
}

func (sw *ShaderWatcher) watch() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != sw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				sw.changed.Store(true)
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Shader watcher error: %v", err)
		}
	}
}

// Changed reports whether the file changed since the last call.
func (sw *ShaderWatcher) Changed() bool {
	return sw.changed.Swap(false)
}

func (sw *ShaderWatcher) Path() string {
	return sw.path
}

func (sw *ShaderWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
