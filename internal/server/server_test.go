package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/wishlist/internal/dependencies/mocks"
	"github.com/mcoot/wishlist/internal/model"
	"github.com/mcoot/wishlist/internal/registry"
	"github.com/mcoot/wishlist/internal/services/auth"
	"github.com/mcoot/wishlist/internal/services/wishlist"
	"github.com/mcoot/wishlist/internal/storage/memory"
	"github.com/mcoot/wishlist/internal/testutil"
)

// testClient speaks the line protocol over one connection
type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

// send writes one command and waits for its response line
func (c *testClient) send(command string) string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetDeadline(time.Now().Add(2*time.Second)))
	_, err := c.conn.Write([]byte(command + "\n"))
	require.NoError(c.t, err)
	line, err := c.reader.ReadString('\n')
	require.NoError(c.t, err)
	return line
}

type ServerSuite struct {
	suite.Suite
	random *mocks.MockRandom
	server *Server
	cancel context.CancelFunc
	done   chan error
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	logger := testutil.NopLogger()
	store := memory.New()
	s.random = mocks.NewMockRandom()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	authService := auth.New(store, clk, auth.Config{BcryptCost: bcrypt.MinCost}, logger)
	wishlistService := wishlist.New(store, authService, s.random, logger)
	reg := registry.New(store, authService, wishlistService, logger)

	s.server = New(Config{Host: "127.0.0.1", Port: 0}, reg, logger)
	s.Require().NoError(s.server.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)
	go func() { s.done <- s.server.Serve(ctx) }()
}

func (s *ServerSuite) TearDownTest() {
	s.cancel()
	select {
	case err := <-s.done:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("server did not stop")
	}
}

func (s *ServerSuite) dial() *testClient {
	return dial(s.T(), s.server.Addr())
}

func (s *ServerSuite) stats() model.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stats, err := s.server.Stats(ctx)
	s.Require().NoError(err)
	return stats
}

// Protocol scenarios

func (s *ServerSuite) TestRegister() {
	c := s.dial()
	s.Equal("[ Username alice successfully registered ]\n", c.send("register alice pw1"))
}

func (s *ServerSuite) TestRegisterThenLogin() {
	c := s.dial()
	c.send("register alice pw1")
	s.Equal("[ User alice successfully logged in ]\n", c.send("login alice pw1"))
}

func (s *ServerSuite) TestPostWish() {
	c := s.dial()
	c.send("register alice pw1")
	c.send("register bob pw2")
	c.send("login alice pw1")
	s.Equal("[ Gift bicycle for student bob submitted successfully ]\n", c.send("post-wish bob bicycle"))
}

func (s *ServerSuite) TestGetWishEmpty() {
	c := s.dial()
	c.send("register alice pw1")
	c.send("login alice pw1")
	s.Equal("[ There are no students present in the wish list ]\n", c.send("get-wish"))
}

func (s *ServerSuite) TestUnknownCommandKeepsConnection() {
	c := s.dial()
	s.Equal("[ Unknown command ]\n", c.send("hello there"))
	s.Equal("[ You are not logged in ]\n", c.send("logout"))
	s.Equal("[ You are not logged in ]\n", c.send("logout"))
}

// Sessions are per connection

func (s *ServerSuite) TestSessionBelongsToConnection() {
	alice := s.dial()
	other := s.dial()
	alice.send("register alice pw1")
	alice.send("login alice pw1")

	s.Equal("[ You are not logged in ]\n", other.send("get-wish"))
	s.Equal("[ There are no students present in the wish list ]\n", alice.send("get-wish"))
}

func (s *ServerSuite) TestDrawIsOneTimeAcrossConnections() {
	alice := s.dial()
	bob := s.dial()
	carol := s.dial()
	alice.send("register alice pw1")
	alice.send("register bob pw2")
	alice.send("register carol pw3")
	alice.send("login alice pw1")
	bob.send("login bob pw2")
	carol.send("login carol pw3")
	alice.send("post-wish alice book")
	alice.send("post-wish bob bicycle")
	s.random.QueueIntn(0, 0)

	s.Equal("[ alice: [book] ]\n", carol.send("get-wish"))
	s.Equal("[ bob: [bicycle] ]\n", alice.send("get-wish"))
	s.Equal("[ There are no students present in the wish list ]\n", bob.send("get-wish"))
	s.Equal("[ There are no students present in the wish list ]\n", carol.send("get-wish"))
}

// Connection teardown

func (s *ServerSuite) TestDisconnectClosesConnection() {
	c := s.dial()
	s.Equal("[ Disconnected from server ]\n", c.send("disconnect"))

	_, err := c.reader.ReadByte()
	s.ErrorIs(err, io.EOF)
}

func (s *ServerSuite) TestPeerCloseDropsSession() {
	c := s.dial()
	c.send("register alice pw1")
	c.send("login alice pw1")
	s.Equal(1, s.stats().Sessions)

	s.Require().NoError(c.conn.Close())

	s.Eventually(func() bool {
		st := s.stats()
		return st.Sessions == 0 && st.Connections == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *ServerSuite) TestOtherConnectionsSurviveTeardown() {
	a := s.dial()
	b := s.dial()
	a.send("register alice pw1")
	b.send("login alice pw1")

	s.Require().NoError(a.conn.Close())

	s.Equal("[ There are no students present in the wish list ]\n", b.send("get-wish"))
}

func (s *ServerSuite) TestStatsCountsConnections() {
	a := s.dial()
	s.dial()
	a.send("register alice pw1")

	s.Eventually(func() bool {
		return s.stats().Connections == 2
	}, 2*time.Second, 10*time.Millisecond)
	s.Equal(1, s.stats().Accounts)
}

func (s *ServerSuite) TestShutdownClosesClients() {
	c := s.dial()
	c.send("register alice pw1")

	s.cancel()
	s.Require().NoError(<-s.done)
	s.done <- nil

	require.NoError(s.T(), c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := c.reader.ReadByte()
	s.Error(err)

	_, err = s.server.Stats(context.Background())
	s.ErrorIs(err, ErrStopped)
}

func TestLogoutNotBlockedByRegistrations(t *testing.T) {
	logger := testutil.NopLogger()
	store := memory.New()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	authService := auth.New(store, clk, auth.DefaultConfig(), logger)
	wishlistService := wishlist.New(store, authService, mocks.NewMockRandom(), logger)
	reg := registry.New(store, authService, wishlistService, logger)

	srv := New(Config{Host: "127.0.0.1", Port: 0}, reg, logger)
	require.NoError(t, srv.Listen())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	idle := dial(t, srv.Addr())
	idle.send("register zoe pw")
	require.Equal(t, "[ User zoe successfully logged in ]\n", idle.send("login zoe pw"))

	const registrations = 10
	results := make(chan string, registrations)
	for i := 0; i < registrations; i++ {
		conn, err := net.DialTimeout("tcp", srv.Addr(), 2*time.Second)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		require.NoError(t, conn.SetDeadline(time.Now().Add(30*time.Second)))
		_, err = fmt.Fprintf(conn, "register user%d pw\n", i)
		require.NoError(t, err)

		go func() {
			line, err := bufio.NewReader(conn).ReadString('\n')
			if err != nil {
				line = err.Error()
			}
			results <- line
		}()
	}
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	assert.Equal(t, "[ Successfully logged out ]\n", idle.send("logout"))
	assert.Less(t, time.Since(start), 250*time.Millisecond)

	for i := 0; i < registrations; i++ {
		assert.Contains(t, <-results, "successfully registered")
	}
}

func TestListenBindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	srv := New(Config{Host: "127.0.0.1", Port: port}, nil, testutil.NopLogger())
	err = srv.Listen()
	assert.ErrorIs(t, err, ErrBind)
	assert.Contains(t, err.Error(), strconv.Itoa(port))
}

func TestDecode(t *testing.T) {
	assert.Equal(t, "post-wish bob колело", decode([]byte("post-wish bob колело")))
	assert.Equal(t, "a�b", decode([]byte{'a', 0xff, 'b'}))
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 5*time.Millisecond, nextBackoff(0))
	assert.Equal(t, 10*time.Millisecond, nextBackoff(5*time.Millisecond))
	assert.Equal(t, time.Second, nextBackoff(800*time.Millisecond))
}
