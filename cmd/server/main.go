package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mnohosten/keyra-db/pkg/observability"
	"github.com/mnohosten/keyra-db/pkg/server"
)

func main() {
	// Parse command-line flags
	host := flag.String("host", "localhost", "Server host address")
	port := flag.Int("port", 6380, "Server TCP port for the command protocol")
	adminPort := flag.Int("admin-port", 8080, "HTTP admin port (health, stats, metrics, export, websocket)")
	noAdmin := flag.Bool("no-admin", false, "Disable the HTTP admin surface")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	observability.SetLoggingLevel(observability.ParseLevel(*logLevel))

	// Create server configuration
	config := server.DefaultConfig()
	config.Host = *host
	config.Port = *port
	config.AdminPort = *adminPort
	config.EnableAdmin = !*noAdmin

	srv := server.New(config)

	fmt.Printf("🚀 KeyraDB server starting on %s:%d\n", config.Host, config.Port)
	if config.EnableAdmin {
		fmt.Printf("🔧 Admin surface: http://%s:%d\n", config.Host, config.AdminPort)
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to start server: %v\n", err)
		os.Exit(1)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	fmt.Printf("\n⚠️  Received signal: %v\n", sig)

	if err := srv.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Shutdown error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Server shutdown complete")
}
