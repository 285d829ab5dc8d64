package utils

import (
	"io"
	"log/slog"
)

// Action names attached to log records as the "action" attribute.
const (
	ActionServiceStarted      = "service_started"
	ActionGracefulShutdown    = "graceful_shutdown"
	ActionDBConnected         = "db_connected"
	ActionSuperadminSeeded    = "superadmin_seeded"
	ActionOrderPlaced         = "order_placed"
	ActionOrderStatusChanged  = "order_status_changed"
	ActionTransitionRejected  = "transition_rejected"
	ActionScanReceived        = "scan_received"
	ActionScanInvalidPayload  = "scan_invalid_payload"
	ActionStudentReviewed     = "student_reviewed"
	ActionEventPublishFailed  = "event_publish_failed"
	ActionRabbitMQConnected   = "rabbitmq_connected"
	ActionTelegramConnected   = "telegram_connected"
	ActionDBQueryFailed       = "db_query_failed"
	ActionRequestUnauthorized = "request_unauthorized"
)

// NewLogger returns a JSON logger for production and a text logger otherwise.
func NewLogger(w io.Writer, development bool) *slog.Logger {
	if development {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
