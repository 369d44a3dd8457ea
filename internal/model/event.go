package model

// EventKind identifies the field or transition an event describes.
type EventKind string

// Event kind constants.
const (
	EventPayeeRenamed     EventKind = "payee_renamed"
	EventCategoryChanged  EventKind = "category_changed"
	EventTagsAdded        EventKind = "tags_added"
	EventMemoChanged      EventKind = "memo_changed"
	EventStatusChanged    EventKind = "status_changed"
	EventTransferLinked   EventKind = "transfer_linked"
	EventTransferUnlinked EventKind = "transfer_unlinked"
)

// Event is a pure data record describing one observable change made by the
// rule engine or the transfer linker. Events are consumed by review UIs and
// carry no callbacks.
type Event struct {
	Kind   EventKind
	Title  string
	Detail string
}
