package cluster

// MsgType identifies a peer wire message
type MsgType string

const (
	// MsgHeartbeat is the leader's periodic self-assertion
	MsgHeartbeat MsgType = "heartbeat"

	// MsgLoadRequest is a candidate polling a peer's load
	MsgLoadRequest MsgType = "load_request"

	// MsgLoadResponse answers a load request
	MsgLoadResponse MsgType = "load_response"

	// MsgLeaderAnnounce declares the winner of an election
	MsgLeaderAnnounce MsgType = "leader_announce"

	// MsgPing is a liveness probe; echoed back verbatim
	MsgPing MsgType = "ping"
)

// Message is one peer wire frame. A flat struct with a type tag; unused
// fields are omitted on the wire.
type Message struct {
	Type MsgType `json:"type"`
	Term uint64  `json:"term,omitempty"`

	// heartbeat / leader_announce
	Leader      string `json:"leader,omitempty"`
	TermEndUnix int64  `json:"term_end_unix,omitempty"`

	// load_request
	Candidate     string  `json:"candidate,omitempty"`
	CandidateLoad float64 `json:"candidate_load,omitempty"`

	// load_response
	Addr string  `json:"addr,omitempty"`
	Load float64 `json:"load,omitempty"`
}
