package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"streamline/internal/audit"
	"streamline/internal/httpapi"
	"streamline/internal/store"
)

func main() {
	// Check for CLI subcommands before parsing server flags.
	if len(os.Args) > 1 {
		cliDataDir := "data"
		if RunCLI(os.Args[1:], cliDataDir) {
			return
		}
	}

	addr := flag.String("addr", ":6667", "TCP listen address for chat sessions")
	apiAddr := flag.String("api-addr", ":8080", "REST API listen address (empty to disable)")
	dataDir := flag.String("data", "data", "directory for users.json, rooms.json, and vault exports")
	auditDB := flag.String("audit-db", "", "moderation audit log SQLite path (default <data>/audit.db)")
	flag.Parse()

	st, err := store.New(*dataDir)
	if err != nil {
		log.Fatalf("[store] %v", err)
	}

	auditPath := *auditDB
	if auditPath == "" {
		auditPath = filepath.Join(*dataDir, "audit.db")
	}
	auditLog, err := audit.Open(auditPath)
	if err != nil {
		log.Fatalf("[audit] %v", err)
	}
	defer auditLog.Close()

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("[server] listen %s: %v", *addr, err)
	}
	log.Printf("[server] listening on %s", *addr)

	srv := NewServer(listener, st, auditLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv.runSweeps(ctx)

	if *apiAddr != "" {
		api := httpapi.New(srv, *dataDir)
		go func() {
			if err := api.Run(ctx, *apiAddr); err != nil {
				log.Printf("[api] %v", err)
			}
		}()
		log.Printf("[api] listening on %s", *apiAddr)
	}

	if err := srv.Run(ctx); err != nil {
		log.Printf("[server] %v", err)
	}
	log.Println("[server] shut down")
}
