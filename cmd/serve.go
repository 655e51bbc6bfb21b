package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkadlec/facegallery/internal/detect"
	"github.com/mkadlec/facegallery/internal/identity"
	"github.com/mkadlec/facegallery/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Face Gallery API server.
The server ingests photos, matches detected faces to known people and
exposes the clustering and audit workflows over a JSON API.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// drainEvents logs engine events until the channel closes. The channel is
// buffered and drops on overflow, so this is strictly informational.
func drainEvents(engine *identity.Engine) {
	for ev := range engine.Events() {
		if ev.PersonUID != "" {
			log.Printf("event %s: face %d person %s", ev.Type, ev.RecordID, ev.PersonUID)
			continue
		}
		log.Printf("event %s: face %d", ev.Type, ev.RecordID)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	fmt.Println("Connecting to PostgreSQL database...")
	app, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	stats := app.engine.Stats()
	fmt.Printf("Engine warmed up with %d face records (%d indexed)\n", stats.Records, stats.Indexed)

	detector := detect.NewClient(app.cfg.Detector.URL, time.Duration(app.cfg.Detector.Timeout)*time.Second)
	server := web.NewServer(app.cfg, app.engine, app.faces, app.people, detector)

	go drainEvents(app.engine)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Gallery API on %s\n", app.cfg.Server.Addr)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
