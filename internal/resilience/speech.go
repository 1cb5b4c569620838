package resilience

import (
	"context"

	"github.com/crewtrack/fieldvoice/pkg/provider/speech"
)

// SourceFallback implements [speech.Source] with automatic failover across
// recognizer gateways. Each gateway has its own breaker, so a primary that
// keeps refusing captures is bypassed until its cooldown elapses.
type SourceFallback struct {
	group *Group[speech.Source]
}

var _ speech.Source = (*SourceFallback)(nil)

// NewSourceFallback creates a [SourceFallback] with primary as the preferred
// gateway.
func NewSourceFallback(primary speech.Source, name string, cfg GroupConfig) *SourceFallback {
	return &SourceFallback{group: NewGroup(primary, name, cfg)}
}

// Add registers an additional speech source as a fallback.
func (f *SourceFallback) Add(name string, src speech.Source) {
	f.group.Add(name, src)
}

// Start opens a capture against the first healthy gateway. When the primary
// fails to start, fallbacks are tried in registration order. Once a capture
// is established its event stream stays bound to the gateway that opened
// it; failover applies per capture, not per event.
func (f *SourceFallback) Start(ctx context.Context, cfg speech.Config) (speech.Stream, error) {
	return DoWithResult(f.group, func(s speech.Source) (speech.Stream, error) {
		return s.Start(ctx, cfg)
	})
}
