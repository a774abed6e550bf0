package scheduling

const (
	EventAppointmentCreated       = "APPOINTMENT_CREATED"
	EventAppointmentUpdated       = "APPOINTMENT_UPDATED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
)

// Notifier receives appointment events after a committed write. Delivery is
// fire-and-forget: implementations must not return control-flow errors and
// failures never roll back the scheduling write.
type Notifier interface {
	AppointmentCreated(a *Appointment)
	AppointmentUpdated(a *Appointment)
	AppointmentStatusChanged(a *Appointment, previous Status)
}

// NopNotifier drops all events; used by tools and tests.
type NopNotifier struct{}

func (NopNotifier) AppointmentCreated(*Appointment)               {}
func (NopNotifier) AppointmentUpdated(*Appointment)               {}
func (NopNotifier) AppointmentStatusChanged(*Appointment, Status) {}
