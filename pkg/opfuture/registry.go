package opfuture

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry is the Invocation Registry external collaborator (spec.md §6): it
// tracks in-flight invocations and is told to forget one on terminal
// completion. Deregister is idempotent, matching the contract spec.md §4.4
// relies on (redundant completions deregister defensively too).
type Registry struct {
	log *zap.Logger

	mu    sync.Mutex
	live  map[uuid.UUID]*Future
	gone  *lru.Cache // uuid.UUID -> time.Time, diagnostics only
}

// NewRegistry creates a registry. diagnosticCacheSize bounds how many
// recently-deregistered invocation IDs are remembered purely so a later
// redundant completion can be logged with "deregistered Nms ago" instead of
// "unknown invocation" (spec.md §9's open question on late redundant
// completions).
func NewRegistry(log *zap.Logger, diagnosticCacheSize int) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	if diagnosticCacheSize <= 0 {
		diagnosticCacheSize = 256
	}
	cache, _ := lru.New(diagnosticCacheSize)
	return &Registry{
		log:  log,
		live: make(map[uuid.UUID]*Future),
		gone: cache,
	}
}

// Register records that fut is the future for inv. It does not start fut;
// callers dispatch separately.
func (r *Registry) Register(inv *Invocation, fut *Future) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[inv.ID] = fut
}

// Deregister forgets inv. Idempotent: forgetting an invocation that was
// never registered, or was already forgotten, is not an error.
func (r *Registry) Deregister(inv *Invocation) {
	r.mu.Lock()
	_, existed := r.live[inv.ID]
	delete(r.live, inv.ID)
	r.mu.Unlock()

	if existed {
		r.gone.Add(inv.ID, time.Now())
		return
	}
	if v, ok := r.gone.Get(inv.ID); ok {
		since := time.Since(v.(time.Time))
		r.log.Debug("redundant deregister of already-forgotten invocation",
			zap.Stringer("invocation", inv.ID), zap.Duration("since", since))
	}
}

// Lookup returns the future registered for id, if any.
func (r *Registry) Lookup(id uuid.UUID) (*Future, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.live[id]
	return f, ok
}

// Len reports the number of currently-tracked in-flight invocations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
