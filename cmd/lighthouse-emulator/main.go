package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/lighthouse-toolkit/cmd/flags"
	"github.com/ruteri/lighthouse-toolkit/httpserver"
	"github.com/urfave/cli/v2"
)

var cliFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on; point every Lighthouse URL and the RPC address (/rpc) here",
	},
	&cli.Int64Flag{
		Name:  "height",
		Value: 1,
		Usage: "emulated chain height seen by getBlockNumber conditions",
	},
	&cli.DurationFlag{
		Name:  "block-time",
		Value: 0,
		Usage: "advance the emulated height by one every interval; 0 keeps it fixed",
	},
}

func serverFlags() []cli.Flag {
	out := append([]cli.Flag{}, cliFlags...)
	out = append(out, flags.LogFlags...)
	out = append(out, flags.LogServiceFlagFn("lighthouse-emulator"))
	return append(out, flags.ServerFlags...)
}

func main() {
	app := &cli.App{
		Name:  "lighthouse-emulator",
		Usage: "Serve an in-memory emulation of the Lighthouse storage and key services",
		Flags: serverFlags(),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			emulator := httpserver.NewEmulator(logger)
			emulator.SetHeight(cCtx.Int64("height"))

			server, err := httpserver.New(&httpserver.HTTPServerConfig{
				ListenAddr:               cCtx.String("listen-addr"),
				EnablePprof:              cCtx.Bool(flags.PprofFlag.Name),
				Log:                      logger,
				DrainDuration:            flags.DrainDuration(cCtx),
				GracefulShutdownDuration: 30 * time.Second,
				ReadTimeout:              60 * time.Second,
				WriteTimeout:             30 * time.Second,
			}, emulator)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			if blockTime := cCtx.Duration("block-time"); blockTime > 0 {
				ticker := time.NewTicker(blockTime)
				defer ticker.Stop()
				go func() {
					for range ticker.C {
						emulator.SetHeight(emulator.Height() + 1)
					}
				}()
			}

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Drain()
			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
