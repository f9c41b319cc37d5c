package models

// Message types accepted by the agent
const (
	MsgStartFocusMode = "START_FOCUS_MODE"
	MsgEndFocusMode   = "END_FOCUS_MODE"
	MsgUpdateSettings = "UPDATE_SETTINGS"
	MsgQueueSite      = "QUEUE_SITE"
	MsgGetStatus      = "GET_STATUS"
)

// Message is a request sent to the agent by a UI surface.
type Message struct {
	Type     string `json:"type"`
	Duration int    `json:"duration,omitempty"` // minutes, START_FOCUS_MODE
	URL      string `json:"url,omitempty"`      // QUEUE_SITE
}

// Response answers a Message.
type Response struct {
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
	Status  *Status `json:"status,omitempty"`
}

// Status is the GET_STATUS payload.
type Status struct {
	Focus            FocusSession `json:"focus"`
	RemainingSeconds int64        `json:"remainingSeconds"`
	CurrentDomain    string       `json:"currentDomain"`
	UserActive       bool         `json:"userActive"`
	TrackingEnabled  bool         `json:"trackingEnabled"`
	Today            DayStats     `json:"today"`
	PendingRules     bool         `json:"pendingRules"`
}
