package redisclient

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinichub/scheduling-engine/internal/scheduling"
)

const eventsChannel = "events:appointments"

// EventNotifier publishes appointment events on a redis pub/sub channel for
// downstream notification systems. Delivery is fire-and-forget; a failed
// publish is logged and dropped, never surfaced to the scheduling write.
type EventNotifier struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewEventNotifier(client *redis.Client, log zerolog.Logger) *EventNotifier {
	return &EventNotifier{client: client, log: log}
}

type appointmentEvent struct {
	Event          string    `json:"event"`
	AppointmentID  string    `json:"appointment_id"`
	PractitionerID string    `json:"practitioner_id"`
	PatientID      string    `json:"patient_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (n *EventNotifier) AppointmentCreated(a *scheduling.Appointment) {
	n.publish(scheduling.EventAppointmentCreated, a, "")
}

func (n *EventNotifier) AppointmentUpdated(a *scheduling.Appointment) {
	n.publish(scheduling.EventAppointmentUpdated, a, "")
}

func (n *EventNotifier) AppointmentStatusChanged(a *scheduling.Appointment, previous scheduling.Status) {
	n.publish(scheduling.EventAppointmentStatusChanged, a, previous)
}

func (n *EventNotifier) publish(event string, a *scheduling.Appointment, previous scheduling.Status) {
	payload, err := json.Marshal(appointmentEvent{
		Event:          event,
		AppointmentID:  a.ID.String(),
		PractitionerID: a.PractitionerID.String(),
		PatientID:      a.PatientID.String(),
		Status:         string(a.Status),
		PreviousStatus: string(previous),
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		OccurredAt:     time.Now().UTC(),
	})
	if err != nil {
		n.log.Warn().Err(err).Str("event", event).Msg("marshal appointment event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := n.client.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		n.log.Warn().Err(err).Str("event", event).Str("appointment_id", a.ID.String()).Msg("publish appointment event")
	}
}
