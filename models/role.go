package models

// Role is the account type a user registers with.
type Role string

const (
	RoleClient    Role = "client"
	RoleCaregiver Role = "caregiver"
	RoleAdmin     Role = "admin"
)

// Capability names an action gated by role.
type Capability string

const (
	CapRequestBooking      Capability = "request_booking"
	CapRespondToRequest    Capability = "respond_to_request"
	CapManageSchedule      Capability = "manage_schedule"
	CapDriveBooking        Capability = "drive_booking"
	CapCancelBooking       Capability = "cancel_booking"
	CapWriteReview         Capability = "write_review"
	CapRespondToReview     Capability = "respond_to_review"
	CapModerateReviews     Capability = "moderate_reviews"
	CapNotifyAnyUser       Capability = "notify_any_user"
	CapDeactivateUsers     Capability = "deactivate_users"
	CapViewEarnings        Capability = "view_earnings"
	CapOwnClientProfile    Capability = "own_client_profile"
	CapOwnCaregiverProfile Capability = "own_caregiver_profile"
)

var roleCapabilities = map[Role][]Capability{
	RoleClient: {
		CapRequestBooking,
		CapCancelBooking,
		CapWriteReview,
		CapOwnClientProfile,
	},
	RoleCaregiver: {
		CapRespondToRequest,
		CapManageSchedule,
		CapDriveBooking,
		CapCancelBooking,
		CapRespondToReview,
		CapViewEarnings,
		CapOwnCaregiverProfile,
	},
	RoleAdmin: {
		CapDriveBooking,
		CapCancelBooking,
		CapModerateReviews,
		CapNotifyAnyUser,
		CapDeactivateUsers,
	},
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Can reports whether r grants c.
func (r Role) Can(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// SelfRegistrable reports whether users may sign up with r.
func (r Role) SelfRegistrable() bool {
	return r == RoleClient || r == RoleCaregiver
}
