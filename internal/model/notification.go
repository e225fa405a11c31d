package model

// Notification is a per-user inbox entry
type Notification struct {
	ID               string     `json:"id"`
	RecipientID      string     `json:"recipient_id"`
	NotificationType string     `json:"notification_type"`
	Title            string     `json:"title"`
	Message          string     `json:"message"`
	ActionURL        *string    `json:"action_url,omitempty"`
	SignalID         *string    `json:"signal_id,omitempty"`
	AssessmentID     *string    `json:"assessment_id,omitempty"`
	EscalationID     *string    `json:"escalation_id,omitempty"`
	Read             bool       `json:"read"`
	ReadAt           *Timestamp `json:"read_at,omitempty"`
	Priority         string     `json:"priority"`
	CreatedAt        Timestamp  `json:"created_at"`
}

// Inbox is the notification feed's cached view
type Inbox struct {
	Items       []Notification `json:"items"`
	UnreadCount int            `json:"unread_count"`
}

// Clone returns a copy whose Items slice can be mutated independently
func (in Inbox) Clone() Inbox {
	items := make([]Notification, len(in.Items))
	copy(items, in.Items)
	return Inbox{Items: items, UnreadCount: in.UnreadCount}
}
