package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/wishlist/internal/api"
	"github.com/mcoot/wishlist/internal/dependencies/mocks"
	"github.com/mcoot/wishlist/internal/server"
	"github.com/mcoot/wishlist/internal/services/auth"
	"github.com/mcoot/wishlist/internal/storage/memory"
	"github.com/mcoot/wishlist/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked
// dependencies. Both listeners use ephemeral ports on 127.0.0.1.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	admin := api.DefaultConfig()
	admin.Host = "127.0.0.1"
	cfg := Config{
		Server: server.Config{Host: "127.0.0.1", Port: 0, BufferSize: server.DefaultConfig().BufferSize},
		Admin:  &admin,
	}

	app := newWithDependencies(store, mockClock, mockRandom,
		auth.Config{BcryptCost: bcrypt.MinCost}, cfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
