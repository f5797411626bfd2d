package push

import "context"

// MaxBatchSize is the largest batch the push provider accepts
const MaxBatchSize = 100

// Ticket statuses and error codes reported by the provider
const (
	StatusOK                 = "ok"
	StatusError              = "error"
	ErrorDeviceNotRegistered = "DeviceNotRegistered"
	ErrorMessageRateExceeded = "MessageRateExceeded"
	ErrorInvalidCredentials  = "InvalidCredentials"
	ErrorMessageTooBig       = "MessageTooBig"
)

// Message is one notification addressed to a device token
type Message struct {
	To    string                 `json:"to"`
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
	Sound string                 `json:"sound,omitempty"`
}

// TicketDetails carries the provider error code of a failed ticket
type TicketDetails struct {
	Error string `json:"error,omitempty"`
}

// Ticket is the provider's per-message receipt
type Ticket struct {
	Status  string         `json:"status"`
	ID      string         `json:"id,omitempty"`
	Message string         `json:"message,omitempty"`
	Details *TicketDetails `json:"details,omitempty"`
}

// OK reports whether the provider accepted the message
func (t Ticket) OK() bool {
	return t.Status == StatusOK
}

// DeviceNotRegistered reports whether the token is permanently invalid
func (t Ticket) DeviceNotRegistered() bool {
	return t.Details != nil && t.Details.Error == ErrorDeviceNotRegistered
}

// Client sends batches of at most MaxBatchSize messages and returns one
// ticket per message, in order
type Client interface {
	Send(ctx context.Context, messages []Message) ([]Ticket, error)
}
