package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionFlag     Action = "flag"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload is the client message. QID and Answer are only read for
// autosave/flag actions.
type RequestPayload struct {
	Action Action `json:"action"`
	QID    string `json:"q_id,omitempty"`
	Answer string `json:"ans,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventSuccess Event = "success"
	EventTick    Event = "tick"
	EventExpired Event = "expired"
	EventPong    Event = "pong"
)

// TickResponse streams the live timer once per second.
type TickResponse struct {
	Event            Event  `json:"event"`
	Phase            string `json:"phase"`
	SectionIndex     int    `json:"section_index"`
	SectionName      string `json:"section_name,omitempty"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

// ExpiredResponse signals that the section or break timer ran out.
type ExpiredResponse struct {
	Event        Event  `json:"event"`
	Phase        string `json:"phase"`
	SectionIndex int    `json:"section_index"`
}

type SuccessResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
