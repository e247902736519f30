package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ghostmonk/storyfeed/internal/logger"
)

// FileProvider reads the bearer token from a file and watches it for
// changes, so rotating the token on disk flows through as an identity
// change without restarting. A missing or empty file means "no credential".
type FileProvider struct {
	path string
	log  logger.Logger

	mu     sync.Mutex
	cached Credential
	subs   map[int]func(Credential)
	nextID int

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFile creates a provider reading the token from path. Call Start to
// begin watching and Close to stop.
func NewFile(path string, log logger.Logger) *FileProvider {
	return &FileProvider{
		path: path,
		log:  log,
		subs: make(map[int]func(Credential)),
	}
}

// Current returns the last known credential from the file.
func (p *FileProvider) Current() Credential {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cached
}

// Subscribe registers fn for token changes observed on disk.
func (p *FileProvider) Subscribe(fn func(Credential)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Start reads the file once and begins watching its directory. Watching
// the directory instead of the file survives the rename-then-replace
// pattern editors and secret managers use.
func (p *FileProvider) Start() error {
	p.reload()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	p.watcher = watcher
	p.done = make(chan struct{})

	go p.loop()
	return nil
}

// Close stops watching. Safe to call when Start was never called.
func (p *FileProvider) Close() error {
	if p.watcher == nil {
		return nil
	}
	err := p.watcher.Close()
	<-p.done
	return err
}

func (p *FileProvider) loop() {
	defer close(p.done)

	base := filepath.Base(p.path)
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				p.reload()
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.log.Warn("token file watcher error", logger.Error(err))
		}
	}
}

// reload re-reads the token file and notifies subscribers when the token
// value actually changed.
func (p *FileProvider) reload() {
	token := ""
	data, err := os.ReadFile(p.path)
	switch {
	case err == nil:
		token = strings.TrimSpace(string(data))
	case os.IsNotExist(err):
		// Removed file drops the credential.
	default:
		p.log.Warn("read token file", logger.String("path", p.path), logger.Error(err))
		return
	}

	p.mu.Lock()
	if token == p.cached.Token {
		p.mu.Unlock()
		return
	}
	cred := Credential{Token: token}
	p.cached = cred
	subs := make([]func(Credential), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	p.log.Debug("credential changed on disk", logger.String("path", p.path),
		logger.Bool("present", cred.Present()))
	for _, fn := range subs {
		fn(cred)
	}
}
