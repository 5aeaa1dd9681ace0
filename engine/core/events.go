package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// A pipeline run started.
	/* Context usage:
	 * data = *PipelineEvent
	 */
	EVENT_CODE_PIPELINE_STARTED SystemEventCode = 0x02

	// A pipeline run created its nodes. Attachments may still be in flight.
	/* Context usage:
	 * data = *PipelineEvent
	 */
	EVENT_CODE_PIPELINE_COMPLETED SystemEventCode = 0x03

	// A pipeline run stopped on a fatal error.
	/* Context usage:
	 * data = *PipelineEvent, Err set
	 */
	EVENT_CODE_PIPELINE_FAILED SystemEventCode = 0x04

	// A scene node was created by the composer.
	/* Context usage:
	 * data = *NodeEvent
	 */
	EVENT_CODE_NODE_CREATED SystemEventCode = 0x05

	// An asset was attached to a node.
	/* Context usage:
	 * data = *AttachmentEvent
	 */
	EVENT_CODE_ASSET_ATTACHED SystemEventCode = 0x06

	// An attachment was skipped or failed. Never fatal.
	/* Context usage:
	 * data = *AttachmentEvent, Err set
	 */
	EVENT_CODE_ATTACHMENT_FAILED SystemEventCode = 0x07

	// The identity record on disk changed.
	/* Context usage:
	 * data = string path of the record
	 */
	EVENT_CODE_BUILD_CHANGED SystemEventCode = 0x08

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

type PipelineEvent struct {
	RunID string
	Build string
	Err   error
}

type NodeEvent struct {
	RunID  string
	NodeID uint32
	Name   string
}

// AttachmentEvent describes one attachment outcome. RunID names the pipeline
// run that dispatched it, empty when the attachment ran outside a pipeline.
type AttachmentEvent struct {
	RunID    string
	NodeID   uint32
	NodeName string
	Path     string
	Kind     string
	Err      error
}

// Should return true if handled.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus delivers events to listeners registered per code. Safe for use from
// attachment workers and the host loop at the same time.
type EventBus struct {
	mu         sync.RWMutex
	registered map[SystemEventCode][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[SystemEventCode][]*registeredEvent),
	}
}

/**
 * Register to listen for when events are sent with the provided code. A listener
 * can only be registered once per code; a duplicate returns false.
 */
func (b *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if b == nil || onEvent == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.registered[code] {
		if listener != nil && e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	b.registered[code] = append(b.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code. If no matching
 * registration is found, this function returns false.
 */
func (b *EventBus) Unregister(code SystemEventCode, listener interface{}) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 */
func (b *EventBus) Fire(context EventContext) bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	events := make([]*registeredEvent, len(b.registered[context.Type]))
	copy(events, b.registered[context.Type])
	b.mu.RUnlock()

	for _, e := range events {
		if e.callback(context) {
			// Message has been handled, do not send to other listeners.
			return true
		}
	}
	return false
}

func (b *EventBus) Shutdown() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered = make(map[SystemEventCode][]*registeredEvent)
}
