package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const defaultBaseURL = "http://localhost:8080"

type globals struct {
	baseURL   string
	tokenPath string
	grpcAddr  string
	client    *http.Client
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.luminous-token.json"
	}
	return filepath.Join(home, ".luminous", "token.json")
}

func newRootCmd() *cobra.Command {
	g := &globals{client: &http.Client{Timeout: 15 * time.Second}}

	root := &cobra.Command{
		Use:           "luminous",
		Short:         "Command-line client for the Luminous Deep API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.baseURL, "api", defaultBaseURL, "API base URL")
	root.PersistentFlags().StringVar(&g.tokenPath, "token", defaultTokenPath(), "token file path")
	root.PersistentFlags().StringVar(&g.grpcAddr, "grpc", "127.0.0.1:9090", "gRPC server address")

	root.AddCommand(
		newAuthCmd(g),
		newLibraryCmd(g),
		newSeriesCmd(g),
		newSignalCmd(g),
		newProgressCmd(g),
		newCanonCmd(g),
		newWorldCmd(g),
		newSyncCmd(g),
		newNotifyCmd(),
		newRPCCmd(g),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
