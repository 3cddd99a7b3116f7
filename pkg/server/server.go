// Package server runs the TCP accept loop: one goroutine per connection, each driving a
// protocol.Session until the client disconnects, plus a shutdown hook that flushes both
// stores before the process exits.
package server

import (
	"context"
	"fmt"
	"net"

	"github.com/corrchess/server/pkg/protocol"
	"github.com/corrchess/server/pkg/store/account"
	"github.com/corrchess/server/pkg/store/gamestore"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/iox"
)

// Server listens on a TCP port and dispatches each connection to a new protocol.Session
// backed by a shared account store and game store.
type Server struct {
	iox.AsyncCloser

	accounts *account.Store
	games    *gamestore.Store
}

// New returns a Server backed by accounts and games. Both stores are shared across every
// connection; the single-mutex discipline in each store is what makes that safe.
func New(accounts *account.Store, games *gamestore.Store) *Server {
	return &Server{
		AsyncCloser: iox.NewAsyncCloser(),
		accounts:    accounts,
		games:       games,
	}
}

// ListenAndServe binds port and accepts connections until ctx is canceled or the server is
// closed. It blocks; call it from its own goroutine or last in main.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}
	defer lis.Close()

	go func() {
		select {
		case <-s.Closed():
		case <-ctx.Done():
		}
		lis.Close()
	}()

	logw.Infof(ctx, "Listening on port %d", port)

	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-s.Closed():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		go protocol.Serve(ctx, conn, s.accounts, s.games)
	}
}

// Shutdown closes the listener (unblocking ListenAndServe) and flushes both stores to disk.
// Safe to call once, typically from a signal handler.
func (s *Server) Shutdown(ctx context.Context) {
	s.Close()
	s.accounts.Save(ctx)
	s.games.Save(ctx)
	logw.Infof(ctx, "Stores flushed, shutdown complete")
}
