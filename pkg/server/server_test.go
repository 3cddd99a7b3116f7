package server_test

import (
	"bufio"
	"context"
	"encoding/binary"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/corrchess/server/pkg/server"
	"github.com/corrchess/server/pkg/store/account"
	"github.com/corrchess/server/pkg/store/gamestore"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())
	return port
}

func TestListenAndServeRoundTrip(t *testing.T) {
	ctx := context.Background()
	accounts, err := account.New(ctx, filepath.Join(t.TempDir(), "accounts.csv"))
	require.NoError(t, err)
	games, err := gamestore.New(ctx, t.TempDir())
	require.NoError(t, err)

	s := server.New(accounts, games)
	port := freePort(t)

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, port) }()
	time.Sleep(50 * time.Millisecond) // give the listener a moment to bind

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("create alice hunter2\n"))
	require.NoError(t, err)

	var buf [4]byte
	r := bufio.NewReader(conn)
	_, err = r.Read(buf[:])
	require.NoError(t, err)
	require.EqualValues(t, 0, int32(binary.BigEndian.Uint32(buf[:])), "create succeeds")

	s.Shutdown(ctx)
	require.NoError(t, <-done)
}
