package hubsso

import (
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/happsea/hub-sso-bridge/pkg/observability"
)

// SecretSource supplies the shared secret. Implementations must
// re-read the underlying store on every call rather than caching at
// startup: container deployments inject the secret after process
// launch. An empty secret means the feature is disabled.
type SecretSource interface {
	Secret() string
	Enabled() bool
}

// EnvSecretSource reads the secret from an environment variable on
// every call.
type EnvSecretSource struct {
	envVar string
}

// NewEnvSecretSource creates a source reading the named environment
// variable.
func NewEnvSecretSource(envVar string) *EnvSecretSource {
	return &EnvSecretSource{envVar: envVar}
}

func (s *EnvSecretSource) Secret() string {
	return strings.TrimSpace(os.Getenv(s.envVar))
}

func (s *EnvSecretSource) Enabled() bool {
	return s.Secret() != ""
}

// FileSecretSource reads the secret from a mounted file. The content
// is cached and invalidated by an fsnotify watcher, so a secret
// rotated or injected into the mount takes effect without a restart.
type FileSecretSource struct {
	path    string
	logger  *observability.Logger
	watcher *fsnotify.Watcher

	mu     sync.RWMutex
	cached string
	loaded bool
}

// NewFileSecretSource creates a file-backed source and starts watching
// the file's directory for changes. Close releases the watcher.
func NewFileSecretSource(path string, logger *observability.Logger) (*FileSecretSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	s := &FileSecretSource{
		path:    path,
		logger:  logger,
		watcher: watcher,
	}

	// Watch the directory, not the file: secret mounts are typically
	// replaced via rename, which drops a watch on the file itself.
	dir := path[:strings.LastIndexByte(path, '/')+1]
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	go s.watch()

	return s, nil
}

func (s *FileSecretSource) watch() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				s.invalidate()
				s.logger.WithField("path", s.path).Info("secret file changed, cache invalidated")
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.WithError(err).Warn("secret file watcher error")
		}
	}
}

func (s *FileSecretSource) invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

func (s *FileSecretSource) Secret() string {
	s.mu.RLock()
	if s.loaded {
		secret := s.cached
		s.mu.RUnlock()
		return secret
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.cached
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		// Missing or unreadable file disables the feature.
		s.cached = ""
	} else {
		s.cached = strings.TrimSpace(string(data))
	}
	s.loaded = true

	return s.cached
}

func (s *FileSecretSource) Enabled() bool {
	return s.Secret() != ""
}

// Close stops the file watcher
func (s *FileSecretSource) Close() error {
	return s.watcher.Close()
}

// StaticSecretSource holds a fixed secret. Test helper.
type StaticSecretSource string

func (s StaticSecretSource) Secret() string { return string(s) }
func (s StaticSecretSource) Enabled() bool  { return s != "" }
