package identity

// Kind is the outcome of a reconciliation attempt. KindNone means the user is
// authorized; every other value is an expected business denial, not a fault.
type Kind int

const (
	KindNone Kind = iota

	// KindIdentityUnverifiable: claims carry no usable subject identifier.
	KindIdentityUnverifiable

	// KindUserNotFound: no user row matches the subject or the email.
	KindUserNotFound

	// KindUserInactive: the matched user has been deactivated.
	KindUserInactive

	// KindNoSchoolAccess: the user is active but holds no grant to an
	// active school.
	KindNoSchoolAccess

	// KindIdentityConflict: the email matches a user already bound to a
	// different subject. Refused to avoid handing the account to another
	// external identity that happens to share the address.
	KindIdentityConflict
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindIdentityUnverifiable:
		return "identity_unverifiable"
	case KindUserNotFound:
		return "user_not_found"
	case KindUserInactive:
		return "user_inactive"
	case KindNoSchoolAccess:
		return "no_school_access"
	case KindIdentityConflict:
		return "identity_conflict"
	}
	return "unknown"
}

// Message returns the message shown to the denied user. Every kind is
// recoverable by contacting an administrator, so all messages say so.
func (k Kind) Message() string {
	switch k {
	case KindUserNotFound:
		return "You signed in with Google, but you don't have a user account in the " +
			"Bus Tracker app. Please contact your administrator."
	case KindUserInactive:
		return "You signed in with Google, but your user account is not active in the " +
			"Bus Tracker app. Please contact your administrator."
	case KindNoSchoolAccess:
		return "You have an active user account in the Bus Tracker app, but you don't " +
			"have access to any schools yet. Please contact your administrator."
	case KindIdentityUnverifiable, KindIdentityConflict:
		return "You signed in with Google, but your account could not be verified. " +
			"Please contact your administrator."
	}
	return ""
}
