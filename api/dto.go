// dto.go - Request/response shapes for the HTTP surface.
package api

// MessageRequest is one inbound chat message: the sender's stable chat
// identity plus the raw text (menu label, command, or free text).
type MessageRequest struct {
	Identity int64  `json:"identity"`
	Text     string `json:"text"`
}

// MessageResponse is the rendered reply for the transport to send back.
type MessageResponse struct {
	Text    string   `json:"text"`
	Buttons []string `json:"buttons,omitempty"`
}

// ClientDTO is a directory entry.
type ClientDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Balance      string `json:"balance"`
	Registered   bool   `json:"registered"`
	RegisteredAt string `json:"registered_at"`
}

// BalanceDTO is a single balance read.
type BalanceDTO struct {
	ID      int64  `json:"id"`
	Balance string `json:"balance"`
}

// CountDTO reports the client count.
type CountDTO struct {
	Count int `json:"count"`
}

// OperationDTO is one audit-log record.
type OperationDTO struct {
	At            string  `json:"at"`
	Kind          string  `json:"kind"`
	ClientID      int64   `json:"client_id"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	Purchase      *string `json:"purchase,omitempty"`
	Delta         *string `json:"delta,omitempty"`
	BalanceBefore string  `json:"balance_before"`
	BalanceAfter  string  `json:"balance_after"`
	Comment       string  `json:"comment"`
}

// ErrorDTO is the error envelope.
type ErrorDTO struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
