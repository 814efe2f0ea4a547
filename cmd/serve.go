package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-station/internal/config"
	"github.com/kozaktomas/face-station/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web operator API",
	Long: `Start the Face Station web server. The API drives enrollment,
training and recognition over HTTP: a remote camera pushes frames to it
and a kiosk frontend follows progress on the event stream.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (0 = config default)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	engine, err := loadEngine(cfg)
	if err != nil {
		return err
	}
	manager, err := newManager(cfg, st, engine)
	if err != nil {
		return err
	}

	server := web.NewServer(cfg, manager, st, engine, newDetector(cfg, false))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		// Let an in-flight retraining land its model before the process
		// exits; artifacts are persisted as part of the training run.
		manager.Wait()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Station API on http://localhost:%d\n", cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
