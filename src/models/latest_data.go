package models

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

type MLatestData struct {
	Type      string                    `json:"type"` // "INITIAL" or "UPDATE"
	Results   map[string][]MStdevResult `json:"results"`
	Report    *MRunReport               `json:"report,omitempty"`
	Timestamp int64                     `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command    string   `json:"command"`
	Securities []string `json:"securities"`
}
