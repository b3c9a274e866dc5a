package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&CaregiverProfile{},
		&ClientProfile{},
		&AvailabilitySlot{},
		&BookingRequest{},
		&Booking{},
		&Review{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
		&UserOnlineStatus{},
		&Notification{},
		&NotificationPreference{},
	}
}
