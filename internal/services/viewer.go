package services

// Viewer is the authentication state of the request being served.
type Viewer struct {
	Authenticated bool
	UserID        uint
	Username      string
}

// Anonymous is the viewer of a request without a valid session.
var Anonymous = Viewer{}
