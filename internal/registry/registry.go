// Package registry interprets protocol commands against the shared
// tables of accounts, wish lists and sessions.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/mcoot/wishlist/internal/model"
	"github.com/mcoot/wishlist/internal/services/auth"
	"github.com/mcoot/wishlist/internal/services/wishlist"
	"github.com/mcoot/wishlist/internal/storage"
)

// Registry dispatches command lines for connections.
//
// Prepare is safe for concurrent use and does the password hashing and
// comparison. Execute and Handle are not: the transport must call them
// from a single goroutine so that draws and registration checks never
// interleave.
type Registry struct {
	storage  storage.Storage
	auth     *auth.Service
	wishlist *wishlist.Service
	logger   *slog.Logger
}

// New creates a new Registry
func New(storage storage.Storage, authService *auth.Service, wishlistService *wishlist.Service, logger *slog.Logger) *Registry {
	return &Registry{
		storage:  storage,
		auth:     authService,
		wishlist: wishlistService,
		logger:   logger.With(slog.String("component", "registry")),
	}
}

// Prepared is a parsed command whose credential work is already done
type Prepared struct {
	cmd Command

	// register: stored form of the password
	hash string
	// register and login: outcome of the checks made while preparing
	err error
	// set when preparing panicked
	fault error
}

// Prepare parses line and runs the expensive part of register and login
// outside the caller that owns the registry tables. An account that
// exists stays registered, so a taken name or a verified password found
// here is still valid when the command is executed.
func (r *Registry) Prepare(ctx context.Context, line string) (p Prepared) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("panic recovered",
				slog.Any("error", err),
				slog.String("stack", string(debug.Stack())),
			)
			p.fault = fmt.Errorf("prepare: %v", err)
		}
	}()

	p.cmd = Parse(line)
	if p.cmd.Arity() != 3 {
		return p
	}
	name, password := p.cmd.Args[0], p.cmd.Args[1]

	switch p.cmd.Name {
	case CmdRegister:
		if !model.ValidUsername(name) {
			p.err = model.ErrInvalidUsername
			return p
		}
		exists, err := r.auth.AccountExists(ctx, name)
		switch {
		case err != nil:
			p.err = err
		case exists:
			p.err = model.ErrUsernameTaken
		default:
			p.hash, p.err = r.auth.HashPassword(password)
		}
	case CmdLogin:
		p.err = r.auth.VerifyPassword(ctx, name, password)
	}
	return p
}

// Handle prepares and executes one command line on behalf of conn
func (r *Registry) Handle(ctx context.Context, line string, conn model.ConnID) Response {
	return r.Execute(ctx, r.Prepare(ctx, line), conn)
}

// Execute runs a prepared command on behalf of conn
func (r *Registry) Execute(ctx context.Context, p Prepared, conn model.ConnID) (resp Response) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("panic recovered",
				slog.Any("error", err),
				slog.String("stack", string(debug.Stack())),
				slog.String("conn", conn.String()),
			)
			resp = Response{Body: msgInternalError}
		}
	}()

	cmd := p.cmd
	if p.fault != nil {
		return r.internalError(cmd.Name, p.fault)
	}

	switch cmd.Name {
	case CmdRegister:
		if cmd.Arity() != 3 {
			return Response{Body: msgUnknownCommand}
		}
		return r.register(ctx, cmd.Args[0], p)
	case CmdLogin:
		if cmd.Arity() != 3 {
			return Response{Body: msgUnknownCommand}
		}
		return r.login(conn, cmd.Args[0], p)
	case CmdPostWish:
		if cmd.Arity() != 3 {
			return Response{Body: msgUnknownCommand}
		}
		return r.postWish(ctx, conn, cmd.Args[0], cmd.Args[1])
	case CmdGetWish:
		if cmd.Arity() != 1 {
			return Response{Body: msgUnknownCommand}
		}
		return r.getWish(ctx, conn)
	case CmdLogout:
		if cmd.Arity() != 1 {
			return Response{Body: msgUnknownCommand}
		}
		return r.logout(conn)
	case CmdDisconnect:
		if cmd.Arity() != 1 {
			return Response{Body: msgUnknownCommand}
		}
		_ = r.auth.Logout(conn)
		return Response{Body: msgDisconnected, Disconnect: true}
	default:
		return Response{Body: msgUnknownCommand}
	}
}

// Drop discards any session held by conn. The transport calls it when
// the connection goes away.
func (r *Registry) Drop(conn model.ConnID) {
	r.auth.Drop(conn)
}

// Stats counts accounts, wish lists and sessions
func (r *Registry) Stats(ctx context.Context) (model.Stats, error) {
	accounts, err := r.storage.CountAccounts(ctx)
	if err != nil {
		return model.Stats{}, fmt.Errorf("count accounts: %w", err)
	}
	owners, err := r.storage.ListWishListOwners(ctx)
	if err != nil {
		return model.Stats{}, fmt.Errorf("list wish list owners: %w", err)
	}
	return model.Stats{
		Accounts:  accounts,
		WishLists: len(owners),
		Sessions:  r.auth.SessionCount(),
	}, nil
}

func (r *Registry) register(ctx context.Context, name string, p Prepared) Response {
	err := p.err
	if err == nil {
		_, err = r.auth.CreateAccount(ctx, name, p.hash)
	}
	switch {
	case err == nil:
		return reply("Username %s successfully registered", name)
	case errors.Is(err, model.ErrInvalidUsername):
		return reply("Username %s is invalid, select a valid one", name)
	case errors.Is(err, model.ErrUsernameTaken):
		return reply("Username %s is already taken, select another one", name)
	default:
		return r.internalError("register", err)
	}
}

func (r *Registry) login(conn model.ConnID, name string, p Prepared) Response {
	switch {
	case p.err == nil:
		r.auth.BindSession(conn, name)
		return reply("User %s successfully logged in", name)
	case errors.Is(p.err, model.ErrInvalidCredentials):
		return Response{Body: msgInvalidCredentials}
	default:
		return r.internalError("login", p.err)
	}
}

func (r *Registry) postWish(ctx context.Context, conn model.ConnID, name, gift string) Response {
	if _, err := r.auth.Session(conn); err != nil {
		return Response{Body: msgNotLoggedIn}
	}

	err := r.wishlist.Post(ctx, name, gift)
	switch {
	case err == nil:
		return reply("Gift %s for student %s submitted successfully", gift, name)
	case errors.Is(err, model.ErrAccountNotFound):
		return reply("Student with username %s is not registered", name)
	case errors.Is(err, model.ErrGiftExists):
		return reply("The same gift for student %s was already submitted", name)
	default:
		return r.internalError("post-wish", err)
	}
}

func (r *Registry) getWish(ctx context.Context, conn model.ConnID) Response {
	session, err := r.auth.Session(conn)
	if err != nil {
		return Response{Body: msgNotLoggedIn}
	}

	wl, err := r.wishlist.Draw(ctx, session.Username)
	switch {
	case err == nil:
		return reply("%s: %s", wl.Owner, wl.GiftsString())
	case errors.Is(err, model.ErrNoWishLists):
		return Response{Body: msgNoWishLists}
	default:
		return r.internalError("get-wish", err)
	}
}

func (r *Registry) logout(conn model.ConnID) Response {
	if err := r.auth.Logout(conn); err != nil {
		return Response{Body: msgNotLoggedIn}
	}
	return Response{Body: msgLoggedOut}
}

func (r *Registry) internalError(command string, err error) Response {
	r.logger.Error("command failed",
		slog.String("command", command),
		slog.String("error", err.Error()))
	return Response{Body: msgInternalError}
}
