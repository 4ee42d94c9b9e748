package registry

import "fmt"

// Response bodies
const (
	msgUnknownCommand     = "Unknown command"
	msgNotLoggedIn        = "You are not logged in"
	msgInvalidCredentials = "Invalid username/password combination"
	msgNoWishLists        = "There are no students present in the wish list"
	msgLoggedOut          = "Successfully logged out"
	msgDisconnected       = "Disconnected from server"
	msgInternalError      = "Internal server error"
)

// Response is the reply to one command
type Response struct {
	Body string
	// Disconnect asks the transport to close the connection after writing
	Disconnect bool
}

// String renders the response in wire format
func (r Response) String() string {
	return "[ " + r.Body + " ]\n"
}

func reply(format string, args ...any) Response {
	return Response{Body: fmt.Sprintf(format, args...)}
}
