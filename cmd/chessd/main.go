// chessd is the correspondence chess server: a TCP listener speaking the line-oriented
// protocol in pkg/protocol, backed by flat-file account and game stores.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/corrchess/server/pkg/server"
	"github.com/corrchess/server/pkg/store/account"
	"github.com/corrchess/server/pkg/store/gamestore"
	"github.com/seekerror/build"
	"github.com/seekerror/logw"
)

var version = build.NewVersion(0, 1, 0)

var (
	dataDir = flag.String("data", "serverdata", "Directory for accounts and game data")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: chessd [options] <port>

chessd is a correspondence chess server.
Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx := context.Background()

	logw.Infof(ctx, "chessd %v", version)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	port, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		flag.Usage()
		os.Exit(1)
	}

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		logw.Exitf(ctx, "Create data directory %v: %v", *dataDir, err)
	}

	accounts, err := account.New(ctx, filepath.Join(*dataDir, "accounts.csv"))
	if err != nil {
		logw.Exitf(ctx, "Load accounts: %v", err)
	}
	games, err := gamestore.New(ctx, *dataDir)
	if err != nil {
		logw.Exitf(ctx, "Load games: %v", err)
	}

	s := server.New(accounts, games)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logw.Infof(ctx, "Shutdown signal received")
		s.Shutdown(ctx)
	}()

	if err := s.ListenAndServe(ctx, port); err != nil {
		logw.Exitf(ctx, "Serve: %v", err)
	}
}
