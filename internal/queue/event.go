// Package queue defines message payloads exchanged over the message broker.
package queue

import "encoding/json"

// Notification kinds understood by the delivery collaborator.  The kind
// selects the mail template on the consumer side.
const (
    KindReservationConfirmation  = "reservation_confirmation"
    KindPaymentReminder          = "payment_reminder"
    KindReservationCancelled     = "reservation_cancelled"
    KindAdminNotification        = "admin_notification"
    KindPaymentConfirmed         = "payment_confirmed"
    KindWelcomeUser              = "welcome_user"
    KindPasswordReset            = "password_reset"
    KindNoShowNotification       = "no_show_notification"
    KindCancellationConfirmation = "cancellation_confirmation"
    KindRescheduleConfirmation   = "reschedule_confirmation"
    KindExtensionConfirmation    = "extension_confirmation"
)

// NotificationEvent is published for every outbox row once its state
// change has committed.  It carries enough information for downstream
// consumers to render and deliver the message without querying the
// primary database.
type NotificationEvent struct {
    Kind           string          `json:"kind"`
    RecipientEmail string          `json:"recipient_email"`
    RecipientName  string          `json:"recipient_name"`
    ReservationID  uint64          `json:"reservation_id,omitempty"`
    Payload        json.RawMessage `json:"payload,omitempty"`
    EnqueuedAt     string          `json:"enqueued_at"`
}
