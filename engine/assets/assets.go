package assets

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/scenestream/engine/core"
)

// Watcher reports changes of the identity record so a new build can be
// loaded. The parent directory is watched since packaging tools usually
// replace the record rather than write it in place.
type Watcher struct {
	record string
	bus    *core.EventBus

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	stopped  chan struct{}

	mutex    sync.Mutex
	isClosed bool
	started  bool
}

func NewWatcher(recordPath string, bus *core.EventBus) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(recordPath)
	if err != nil {
		fsWatch.Close()
		return nil, err
	}
	return &Watcher{
		record:   abs,
		bus:      bus,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

func (w *Watcher) Initialize() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.isClosed {
		return errors.New("watcher instance already closed")
	}
	if err := w.fsnotify.Add(filepath.Dir(w.record)); err != nil {
		return err
	}
	w.started = true
	go w.start()
	core.LogDebug("watching build identity record '%s'", w.record)
	return nil
}

func (w *Watcher) start() {
	defer close(w.stopped)
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.record {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				core.LogInfo("build identity record changed (%s)", e.Op.String())
				w.bus.Fire(core.EventContext{Type: core.EVENT_CODE_BUILD_CHANGED, Data: w.record})
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-w.done:
			return
		}
	}
}

// Shutdown stops the watch. It is safe to call more than once.
func (w *Watcher) Shutdown() error {
	w.mutex.Lock()
	if w.isClosed {
		w.mutex.Unlock()
		return nil
	}
	w.isClosed = true
	started := w.started
	w.mutex.Unlock()

	close(w.done)
	err := w.fsnotify.Close()
	if started {
		<-w.stopped
	}
	return err
}
