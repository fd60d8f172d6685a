// Package session carries the identity used to stamp document mutations.
package session

// UserSession exposes the current user for audit stamping. An instance
// is injected into every repository and handler that needs it; nothing
// reads identity from process-wide state.
type UserSession interface {
	CurrentUserName() string
}

// Static is a fixed-identity session, used at process start and in tests.
type Static struct {
	UserName string
}

func (s Static) CurrentUserName() string {
	if s.UserName == "" {
		return "System"
	}
	return s.UserName
}
