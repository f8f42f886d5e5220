package events

// Booking lifecycle topics. Every transition of a booking through the
// state machine emits exactly one event on the corresponding topic.
const (
	TopicBookingCreated   = "booking.created"
	TopicBookingConfirmed = "booking.confirmed"
	TopicBookingCancelled = "booking.cancelled"
	TopicBookingCheckedIn = "booking.checked_in"
	TopicBookingCompleted = "booking.completed"
)
