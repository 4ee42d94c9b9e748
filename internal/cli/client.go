package cli

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrMalformedReply is returned when a server line is not "[ body ]"
var ErrMalformedReply = errors.New("malformed reply")

const disconnectedBody = "Disconnected from server"

// Reply is one response line from the server
type Reply struct {
	Command string `json:"command"`
	Body    string `json:"response"`
}

// Disconnected reports whether the server closed the session after this reply
func (r Reply) Disconnected() bool {
	return r.Body == disconnectedBody
}

// ParseReply strips the "[ " and " ]\n" framing from a response line
func ParseReply(line string) (string, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "[ ") || !strings.HasSuffix(line, " ]") {
		return "", fmt.Errorf("%w: %q", ErrMalformedReply, line)
	}
	return line[2 : len(line)-2], nil
}

// Client holds one TCP connection to the wish-list server
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

// Dial connects to addr
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: timeout,
	}, nil
}

// Send writes one command and waits for its reply. The server treats each
// read as one command, so the next command is only sent once this returns.
func (c *Client) Send(command string) (Reply, error) {
	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return Reply{}, err
		}
	}

	if _, err := c.conn.Write([]byte(command + "\n")); err != nil {
		return Reply{}, fmt.Errorf("send command: %w", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}

	body, err := ParseReply(line)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Command: command, Body: body}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}
