package ws

// server -> client
const (
	MsgState = "state"
	MsgError = "error"
)

// Message is the envelope for everything pushed over the socket.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}
