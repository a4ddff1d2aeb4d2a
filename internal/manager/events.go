package manager

import (
	"sync"

	"inferd/pkg/types"
)

// statusFeed pushes read-only status snapshots to observers (e.g. a host
// UI). Observers never mutate status; they only receive copies. Publishes
// never block: a slow subscriber keeps only the latest snapshot.
type statusFeed struct {
	mu   sync.Mutex
	subs []chan types.ServiceStatus
}

// Subscribe registers an observer. The channel carries the most recent
// snapshot; stale ones are replaced, not queued.
func (f *statusFeed) Subscribe() <-chan types.ServiceStatus {
	ch := make(chan types.ServiceStatus, 1)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch
}

func (f *statusFeed) publish(s types.ServiceStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- s:
		default:
			// Drop the stale snapshot, then push the fresh one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}
