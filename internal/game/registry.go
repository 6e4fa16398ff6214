package game

import (
	"sort"
	"sync"

	"github.com/quizcast/quizcast-backend/internal"
)

// Registry maps live connections to their declared team names. Pure
// bookkeeping; room membership and roles live in the RoomStore.
type Registry struct {
	mu    sync.RWMutex
	names map[*internal.Client]string
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[*internal.Client]string)}
}

func (r *Registry) SetName(c *internal.Client, name string) {
	r.mu.Lock()
	r.names[c] = name
	r.mu.Unlock()
}

func (r *Registry) Name(c *internal.Client) (string, bool) {
	r.mu.RLock()
	name, ok := r.names[c]
	r.mu.RUnlock()
	return name, ok
}

// NameOrDefault resolves a connection's display name, falling back to the
// generated gamemaster label for unregistered connections.
func (r *Registry) NameOrDefault(c *internal.Client) string {
	if name, ok := r.Name(c); ok && name != "" {
		return name
	}
	return internal.DefaultTeamName
}

func (r *Registry) Remove(c *internal.Client) {
	r.mu.Lock()
	delete(r.names, c)
	r.mu.Unlock()
}

// Names returns the registered team names, sorted for stable output. Used
// by the health endpoint.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.names))
	for _, name := range r.names {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
