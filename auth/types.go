package auth

// User is the profile snapshot returned by the backend alongside the token
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Credentials couples the opaque bearer token with its user snapshot.
// Presence of a non-empty token is the sole authentication signal; the
// client never checks expiry locally.
type Credentials struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
