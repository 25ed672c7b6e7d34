// Command dbgbridge runs the debug-adapter bridge: it speaks the Debug
// Adapter Protocol on stdio (or a TCP listener) and translates it to a
// native Go debugger backend's JSON-RPC control interface.
package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/kestrel-tools/dbgbridge/internal/bridgelog"
	"github.com/kestrel-tools/dbgbridge/internal/dapio"
	"github.com/kestrel-tools/dbgbridge/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		listen  string
		logFile string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "dbgbridge",
		Short: "Bridge a DAP-speaking editor to a native Go debugger backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := os.Stderr
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				out = f
			}

			log := bridgelog.New(bridgelog.Options{Verbose: verbose, Output: out})

			if listen != "" {
				return runListener(cmd.Context(), log, listen)
			}
			return runStdio(cmd.Context(), log)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "host:port to accept one DAP client connection on, instead of stdio")
	cmd.Flags().StringVar(&logFile, "log-dest", "", "file to write bridge logs to (default stderr)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug-level bridge logging")

	return cmd
}

func runStdio(ctx context.Context, log logr.Logger) error {
	transport := dapio.NewStdioTransport(os.Stdin, os.Stdout)
	srv := session.NewServer(log, transport)
	return srv.Run(ctx)
}

func runListener(ctx context.Context, log logr.Logger, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer ln.Close()

	log.Info("waiting for a client connection", "addr", addr)
	conn, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}

	transport := dapio.NewConnTransport(conn)
	srv := session.NewServer(log, transport)
	return srv.Run(ctx)
}
