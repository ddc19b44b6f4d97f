package event

// NotificationEventPushModel matches SendPayloadDto from noti-service:
// { lstUserIds?: string[], title: string, body: string, data?: any }
type NotificationEventPushModel struct {
	LstUserIds []string       `json:"lstUserIds,omitempty"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Data       map[string]any `json:"data,omitempty"`
}

const (
	// PushNotiQueue carries farmer-facing push notifications.
	PushNotiQueue string = "push_noti_events"

	// AuditQueue carries the append-only transition log for compliance.
	AuditQueue string = "policy_audit_events"

	// PaymentEventsQueue carries payment executor outcome reports.
	PaymentEventsQueue string = "payment_events"
)
