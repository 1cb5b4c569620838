package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/crewtrack/fieldvoice/pkg/provider/speech"
)

// ErrSourceNotRegistered is returned by [Registry.CreateSource] when no
// factory has been registered under the requested source kind.
var ErrSourceNotRegistered = errors.New("config: speech source not registered")

// Registry maps source kinds to speech source constructors. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[SourceKind]func(SpeechConfig) (speech.Source, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[SourceKind]func(SpeechConfig) (speech.Source, error)),
	}
}

// RegisterSource registers a speech source factory under kind.
// Subsequent calls with the same kind overwrite the previous registration.
func (r *Registry) RegisterSource(kind SourceKind, factory func(SpeechConfig) (speech.Source, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[kind] = factory
}

// CreateSource instantiates a speech source using the factory registered
// under cfg.Source. Returns [ErrSourceNotRegistered] if no factory has been
// registered for that kind.
func (r *Registry) CreateSource(cfg SpeechConfig) (speech.Source, error) {
	r.mu.RLock()
	factory, ok := r.sources[cfg.Source]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotRegistered, cfg.Source)
	}
	return factory(cfg)
}
