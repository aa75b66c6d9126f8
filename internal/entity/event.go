package entity

type EventKind string

const (
	EventLeadCreated EventKind = "lead.created"
	EventLeadUpdated EventKind = "lead.updated"
)

// EventMeta carries request metadata alongside the lead snapshot.
type EventMeta struct {
	Source string `json:"source,omitempty"`
	IP     string `json:"ip,omitempty"`
}

// Event is consumed once by the notifier and then discarded.
type Event struct {
	Kind EventKind `json:"event"`
	Lead Lead      `json:"lead"`
	Meta EventMeta `json:"meta"`
}

func (k EventKind) Valid() bool {
	return k == EventLeadCreated || k == EventLeadUpdated
}

// EventKindFor maps an upsert status to the event kind sent to staff.
func EventKindFor(status UpsertStatus) EventKind {
	if status == UpsertCreated {
		return EventLeadCreated
	}
	return EventLeadUpdated
}

type UpsertStatus string

const (
	UpsertCreated UpsertStatus = "created"
	UpsertUpdated UpsertStatus = "updated"
)
