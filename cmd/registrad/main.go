// registrad serves a register store over gRPC. It fronts one of the local
// backends (memory, filesystem, sqlite) so remote cores can share a single
// persistent store through storage/grpcstore.Client.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"registra.dev/registra/storage"
	"registra.dev/registra/storage/grpcstore"
	"registra.dev/registra/storage/localfs"
	"registra.dev/registra/storage/memstore"
	"registra.dev/registra/storage/sqlitestore"
)

func main() {
	fs := flag.NewFlagSet("registrad", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7878", "listen address")
	backend := fs.String("backend", "localfs", "store backend: mem, localfs, sqlite")
	dataDir := fs.String("data-dir", "./registra-data", "data directory for the localfs backend")
	dbPath := fs.String("db", "./registra.db", "database file for the sqlite backend")

	_ = fs.Parse(os.Args[1:])

	store, closeFn, err := openBackend(*backend, *dataDir, *dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpcstore.RegisterRegisterStoreServer(s, &grpcstore.Server{Store: store})

	fmt.Fprintf(os.Stderr, "registrad listening on %s (backend=%s)\n", lis.Addr().String(), *backend)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openBackend(name, dataDir, dbPath string) (storage.Store, func() error, error) {
	switch name {
	case "mem":
		return memstore.New(), nil, nil
	case "localfs":
		store, err := localfs.New(dataDir)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "sqlite":
		store, err := sqlitestore.Open(dbPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("registrad: unknown backend %q", name)
	}
}
