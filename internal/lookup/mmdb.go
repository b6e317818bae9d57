package lookup

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/oschwald/maxminddb-golang"
)

// mmdbTable holds the load/reload machinery shared by every lookup table
// backed by a MaxMind MMDB file (GeoIP, ASN): an atomically swapped reader
// plus an optional fsnotify watch that reloads the file in place when the
// feed updates underneath a running process. Record decoding and field
// extraction stay with the embedding type.
type mmdbTable struct {
	reader atomic.Pointer[maxminddb.Reader]

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	watchPath string
	watchDone chan struct{}
}

// decode looks up ip in the current reader and decodes it into rec. Reports
// whether a reader is loaded and the IP parsed and matched; callers build
// the returned field map from rec afterward.
func (m *mmdbTable) decode(value string, rec any) bool {
	r := m.reader.Load()
	if r == nil {
		return false
	}
	ip := net.ParseIP(value)
	if ip == nil {
		return false
	}
	return r.Lookup(ip, rec) == nil
}

// load opens path and swaps it in as the active reader, closing the
// previous one afterward so in-flight lookups against it still complete.
func (m *mmdbTable) load(path string) (MmdbInfo, error) {
	r, err := maxminddb.Open(path)
	if err != nil {
		return MmdbInfo{}, fmt.Errorf("open mmdb %q: %w", path, err)
	}
	info := MmdbInfo{
		DatabaseType: r.Metadata.DatabaseType,
		BuildTime:    time.Unix(int64(r.Metadata.BuildEpoch), 0), //nolint:gosec // BuildEpoch is a uint, safe for unix timestamps
		NodeCount:    r.Metadata.NodeCount,
	}
	old := m.reader.Swap(r)
	if old != nil {
		_ = old.Close()
	}
	return info, nil
}

// watch starts an fsnotify watch on path, calling reload on every
// write/create event. Replaces any previous watch on this table.
func (m *mmdbTable) watch(path string, reload func(path string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopWatchLocked()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %q: %w", path, err)
	}

	m.watcher = w
	m.watchPath = path
	m.watchDone = make(chan struct{})

	go m.watchLoop(w, path, m.watchDone, reload)
	return nil
}

func (m *mmdbTable) watchLoop(w *fsnotify.Watcher, path string, done chan struct{}, reload func(string)) {
	defer close(done)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				reload(path)
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}

func (m *mmdbTable) stopWatchLocked() {
	if m.watcher != nil {
		_ = m.watcher.Close()
		<-m.watchDone
		m.watcher = nil
		m.watchPath = ""
		m.watchDone = nil
	}
}

// close stops any active watch and closes the current reader.
func (m *mmdbTable) close() {
	m.mu.Lock()
	m.stopWatchLocked()
	m.mu.Unlock()

	if r := m.reader.Swap(nil); r != nil {
		_ = r.Close()
	}
}
