package model

import (
	"time"

	"github.com/google/uuid"
)

// ConnID identifies one client connection for its lifetime.
// It carries no meaning beyond equality.
type ConnID uuid.UUID

// NewConnID returns a fresh connection identity
func NewConnID() ConnID {
	return ConnID(uuid.New())
}

func (c ConnID) String() string {
	return uuid.UUID(c).String()
}

// Session binds an authenticated username to a connection
type Session struct {
	Conn       ConnID
	Username   string
	LoggedInAt time.Time
}

// Stats is a point-in-time view of the registry tables
type Stats struct {
	Accounts    int `json:"accounts"`
	WishLists   int `json:"wish_lists"`
	Sessions    int `json:"sessions"`
	Connections int `json:"connections"`
}
