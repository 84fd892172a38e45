package domain

// EventType tags the variants of the stream event union.
type EventType string

const (
	EventTypeMetadata EventType = "metadata"
	EventTypeContent  EventType = "content"
	EventTypeDone     EventType = "done"
	EventTypeError    EventType = "error"
)

// StreamEvent is the tagged union of events a streaming session emits.
//
// For every session exactly one MetadataEvent is emitted first, followed by
// zero or more ContentEvents in generation order, followed by exactly one
// terminal event (DoneEvent or ErrorEvent).
type StreamEvent interface {
	EventType() EventType
}

// MetadataEvent announces the sources composed into the prompt before any
// answer text is available. Sources may be empty when retrieval found nothing
// relevant, in which case HasContext is false.
type MetadataEvent struct {
	Sources    []Source
	HasContext bool
}

// ContentEvent carries one answer fragment, forwarded in arrival order.
type ContentEvent struct {
	Text string
}

// DoneEvent terminates a successful session.
type DoneEvent struct{}

// ErrorEvent terminates a failed session. Generation failures before the
// first ContentEvent are retried through the synchronous path and surface
// here only when that also fails.
type ErrorEvent struct {
	Message string
}

func (MetadataEvent) EventType() EventType { return EventTypeMetadata }
func (ContentEvent) EventType() EventType  { return EventTypeContent }
func (DoneEvent) EventType() EventType     { return EventTypeDone }
func (ErrorEvent) EventType() EventType    { return EventTypeError }
