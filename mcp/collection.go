package mcp

import (
	"sync"

	"github.com/cskr/pubsub"
)

// changedTopic is the single pubsub topic each collection publishes an
// empty struct{} on after any insert or remove.
const changedTopic = "changed"

// ToolSet is an observable, name-keyed registry of Tools. Insert and
// Remove publish a Changed event; names are unique within the set.
type ToolSet struct {
	mu    sync.RWMutex
	tools map[string]Tool
	hub   *pubsub.PubSub
}

// NewToolSet builds an empty ToolSet.
func NewToolSet() *ToolSet {
	return &ToolSet{
		tools: make(map[string]Tool),
		hub:   pubsub.New(1),
	}
}

// Insert adds or replaces a Tool by name and publishes Changed.
func (s *ToolSet) Insert(t Tool) {
	s.mu.Lock()
	s.tools[t.Name()] = t
	s.mu.Unlock()
	s.hub.Pub(struct{}{}, changedTopic)
}

// Remove deletes a Tool by name, if present, and publishes Changed.
func (s *ToolSet) Remove(name string) {
	s.mu.Lock()
	_, existed := s.tools[name]
	delete(s.tools, name)
	s.mu.Unlock()
	if existed {
		s.hub.Pub(struct{}{}, changedTopic)
	}
}

// Get looks up a Tool by name.
func (s *ToolSet) Get(name string) (Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[name]
	return t, ok
}

// List returns all Tools in an unspecified but stable-per-call order.
func (s *ToolSet) List() []Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tool, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, t)
	}
	return out
}

// Subscribe registers a non-blocking Changed callback, invoked whenever
// the set's contents change. The returned disposer unsubscribes; calling
// it is the caller's responsibility and is safe to call once.
func (s *ToolSet) Subscribe(onChanged func()) (disposer func()) {
	ch := s.hub.Sub(changedTopic)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				onChanged()
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		s.hub.Unsub(ch)
	}
}

// PromptSet is the Prompt counterpart of ToolSet.
type PromptSet struct {
	mu      sync.RWMutex
	prompts map[string]Prompt
	hub     *pubsub.PubSub
}

// NewPromptSet builds an empty PromptSet.
func NewPromptSet() *PromptSet {
	return &PromptSet{
		prompts: make(map[string]Prompt),
		hub:     pubsub.New(1),
	}
}

// Insert adds or replaces a Prompt by name and publishes Changed.
func (s *PromptSet) Insert(p Prompt) {
	s.mu.Lock()
	s.prompts[p.Name()] = p
	s.mu.Unlock()
	s.hub.Pub(struct{}{}, changedTopic)
}

// Remove deletes a Prompt by name, if present, and publishes Changed.
func (s *PromptSet) Remove(name string) {
	s.mu.Lock()
	_, existed := s.prompts[name]
	delete(s.prompts, name)
	s.mu.Unlock()
	if existed {
		s.hub.Pub(struct{}{}, changedTopic)
	}
}

// Get looks up a Prompt by name.
func (s *PromptSet) Get(name string) (Prompt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prompts[name]
	return p, ok
}

// List returns all Prompts in an unspecified but stable-per-call order.
func (s *PromptSet) List() []Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Prompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		out = append(out, p)
	}
	return out
}

// Subscribe registers a non-blocking Changed callback.
func (s *PromptSet) Subscribe(onChanged func()) (disposer func()) {
	ch := s.hub.Sub(changedTopic)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				onChanged()
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		s.hub.Unsub(ch)
	}
}
