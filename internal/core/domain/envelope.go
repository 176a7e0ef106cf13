package domain

import "encoding/json"

// Frame types sent by the client.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
)

// Event types pushed by the server, plus the local transport lifecycle tags.
const (
	EventConnected         = "connected"
	EventDisconnected      = "disconnected"
	EventError             = "error"
	EventSubscribed        = "subscribed"
	EventUnsubscribed      = "unsubscribed"
	EventPong              = "pong"
	EventEscrowUpdate      = "escrow_update"
	EventStatusChange      = "status_change"
	EventPaymentStatus     = "payment_status"
	EventParticipantJoined = "participant_joined"
)

// Frame is an outbound client message.
type Frame struct {
	Type     string `json:"type"`
	EscrowID string `json:"escrow_id,omitempty"`
}

// EventEnvelope is an inbound server push. Envelopes carrying an escrow id
// are routed both to their type topic and to the escrow's channel topic.
type EventEnvelope struct {
	Type     string          `json:"type"`
	EscrowID string          `json:"escrow_id,omitempty"`
	Status   EscrowStatus    `json:"status,omitempty"`
	Message  string          `json:"message,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// EventData is the decoded payload of an escrow push. The server emits a
// second participant either as an explicit participant_joined event type or
// as a generic state push carrying the payee identity, so both shapes are
// represented here.
type EventData struct {
	EventType    string       `json:"event_type,omitempty"`
	Status       EscrowStatus `json:"status,omitempty"`
	OldStatus    EscrowStatus `json:"old_status,omitempty"`
	NewStatus    EscrowStatus `json:"new_status,omitempty"`
	PayerID      string       `json:"payer_id,omitempty"`
	PayeeID      string       `json:"payee_id,omitempty"`
	IsCodeActive *bool        `json:"is_code_active,omitempty"`
}

// DecodeData unmarshals the envelope payload. An absent payload decodes to
// the zero value.
func (e EventEnvelope) DecodeData() (EventData, error) {
	var d EventData
	if len(e.Data) == 0 {
		return d, nil
	}
	err := json.Unmarshal(e.Data, &d)
	return d, err
}

// StatusHint extracts the escrow status an envelope reports, looking at the
// top-level field first and then the payload's status and new_status fields.
// Returns "" when the envelope carries no status.
func (e EventEnvelope) StatusHint() EscrowStatus {
	if e.Status.Valid() {
		return e.Status
	}
	d, err := e.DecodeData()
	if err != nil {
		return ""
	}
	if d.Status.Valid() {
		return d.Status
	}
	if d.NewStatus.Valid() {
		return d.NewStatus
	}
	return ""
}

// EscrowTopic returns the per-escrow channel topic for an escrow id.
func EscrowTopic(escrowID string) string {
	return "escrow:" + escrowID
}

// ConnectionState describes the transport connection.
type ConnectionState string

const (
	ConnDisconnected ConnectionState = "disconnected"
	ConnConnecting   ConnectionState = "connecting"
	ConnConnected    ConnectionState = "connected"
)
