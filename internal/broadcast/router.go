// Package broadcast is the Broadcast Router: it multiplexes a single
// store-and-forward BBS transport into content-typed channels.
package broadcast

import (
	"crypto/sha256"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ContentType tags the payload kind carried on the underlying BBS
// transport.
type ContentType uint8

const (
	ContentSwapOffers ContentType = iota
	ContentSoftwareUpdate
	ContentExchangeRates
)

// Listener is notified of every accepted inbound message on the content
// types it's registered for. Accepted reports whether the payload parsed
// successfully; false tells the router "malformed, do not forward" (there
// is currently nothing further downstream of the router to forward to,
// but the contract is preserved for a future relay).
type Listener interface {
	OnMessage(timestamp int64, payload []byte) (accepted bool)
}

// Sender is the outbound BBS transport a Router hands framed messages to.
// It is deliberately minimal — the actual network client is out of scope
// here, referenced only by interface.
type Sender interface {
	SendRaw(contentType ContentType, payload []byte) error
}

const dedupCacheSize = 4096

// Router dispatches inbound BBS payloads to content-typed listener lists,
// in registration order, and dedups inbound payloads by content hash — a
// small LRU suffices.
type Router struct {
	mu        sync.Mutex
	listeners map[ContentType][]Listener
	seen      *lru.Cache[[32]byte, struct{}]
	sender    Sender
}

// NewRouter constructs a Router that sends outbound messages via sender.
func NewRouter(sender Sender) *Router {
	cache, _ := lru.New[[32]byte, struct{}](dedupCacheSize)
	return &Router{
		listeners: make(map[ContentType][]Listener),
		seen:      cache,
		sender:    sender,
	}
}

// RegisterListener appends listener to contentType's dispatch list.
// Registration order is dispatch order.
func (r *Router) RegisterListener(contentType ContentType, listener Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[contentType] = append(r.listeners[contentType], listener)
}

// UnregisterListener removes listener from every content type it was
// registered under.
func (r *Router) UnregisterListener(listener Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ct, ls := range r.listeners {
		filtered := ls[:0]
		for _, l := range ls {
			if l != listener {
				filtered = append(filtered, l)
			}
		}
		r.listeners[ct] = filtered
	}
}

// SendRawMessage hands contentType and payload, unchanged, to the
// router's Sender for delivery over the BBS network.
func (r *Router) SendRawMessage(contentType ContentType, payload []byte) error {
	return r.sender.SendRaw(contentType, payload)
}

// Dispatch delivers an inbound payload received at timestamp on
// contentType to every registered listener, in registration order.
// Duplicate payloads (by content hash) are dropped before any listener
// sees them; see DESIGN.md's Open Question resolution to preserve both
// layers of dedup.
func (r *Router) Dispatch(contentType ContentType, timestamp int64, payload []byte) {
	hash := sha256.Sum256(payload)

	r.mu.Lock()
	if _, dup := r.seen.Get(hash); dup {
		r.mu.Unlock()
		return
	}
	r.seen.Add(hash, struct{}{})
	listeners := append([]Listener(nil), r.listeners[contentType]...)
	r.mu.Unlock()

	for _, l := range listeners {
		l.OnMessage(timestamp, payload)
	}
}
