package server

import (
	"net"

	"github.com/mcoot/wishlist/internal/model"
	"github.com/mcoot/wishlist/internal/registry"
)

type eventKind int

const (
	eventOpen eventKind = iota
	eventCommand
	eventClose
	eventStats
)

// event is a message from a connection goroutine (or Stats) to the loop
type event struct {
	kind    eventKind
	conn    model.ConnID
	netConn net.Conn          // eventOpen
	cmd     registry.Prepared // eventCommand

	response chan registry.Response // eventCommand
	stats    chan statsResult       // eventStats
}

type statsResult struct {
	stats model.Stats
	err   error
}
