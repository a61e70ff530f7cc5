package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/roboflow/pkg/domain"
)

// allRuns is the subscription key that receives events of every run.
const allRuns = ""

// StreamManager fans run events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // RunID -> Set of Channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe returns a channel of JSON events for runID, or for every run when runID is empty.
func (sm *StreamManager) Subscribe(runID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[runID]; !ok {
		sm.subscribers[runID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[runID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[runID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, runID)
			}
		}
	}
}

// Broadcast delivers msg to the subscribers of runID and to those of every run.
func (sm *StreamManager) Broadcast(runID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, key := range []string{runID, allRuns} {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				// Drop message if channel is full (slow client)
				slog.Warn("SSE: Client buffer full, dropping message", "run_id", runID)
			}
		}
		if runID == allRuns {
			break
		}
	}
}

func (sm *StreamManager) publish(base domain.EventBase, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("SSE: failed to encode event", "type", base.Type, "err", err)
		return
	}
	sm.Broadcast(base.RunID, string(data))
}

// Hooks returns lifecycle hooks that broadcast every event.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter:   func(_ context.Context, e *domain.StateEvent) { sm.publish(e.EventBase, e) },
		OnStateLeave:   func(_ context.Context, e *domain.StateEvent) { sm.publish(e.EventBase, e) },
		OnActionCall:   func(_ context.Context, e *domain.ActionEvent) { sm.publish(e.EventBase, e) },
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) { sm.publish(e.EventBase, e) },
		OnGuard:        func(_ context.Context, e *domain.GuardEvent) { sm.publish(e.EventBase, e) },
		OnRunFinish:    func(_ context.Context, e *domain.RunEvent) { sm.publish(e.EventBase, e) },
	}
}
