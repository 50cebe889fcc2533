package services

// Actor is the authenticated user a request acts for.
type Actor struct {
	// OwnerID is the identity provider subject; it keys the user's profile.
	OwnerID  string
	Username string
	Email    string
}
