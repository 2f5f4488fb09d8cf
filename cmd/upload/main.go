package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/ruteri/lighthouse-toolkit/cmd/flags"
	"github.com/ruteri/lighthouse-toolkit/cmd/lhcommon"
	"github.com/ruteri/lighthouse-toolkit/workflow"
	"github.com/urfave/cli/v2"
)

var flagPlain = &cli.BoolFlag{
	Name:  "plain",
	Usage: "upload without encryption",
}

var flagName = &cli.StringFlag{
	Name:  "name",
	Usage: "file name to store the upload under",
}

func upload(cCtx *cli.Context, src workflow.Source) error {
	logger := flags.SetupLogger(cCtx)
	src.Name = cCtx.String(flagName.Name)

	err := func() error {
		tk, err := lhcommon.Setup(cCtx, logger)
		if err != nil {
			return err
		}

		if src.Path == "" && src.Text == "" {
			path, err := workflow.WriteSampleFile(tk.Config.WorkDir, tk.Config.PublicAddress, time.Now())
			if err != nil {
				return err
			}
			logger.Info("Created sample file", slog.String("path", path))
			src.Path = path
		}

		uploader := workflow.NewUploader(tk.Config, tk.Identity, tk.Client, tk.Records, logger)
		rec, err := uploader.Upload(cCtx.Context, src, workflow.Options{Encrypt: !cCtx.Bool(flagPlain.Name)})
		if err != nil {
			return err
		}

		fmt.Printf("Uploaded %s\n  cid:  %s\n  size: %d\n", rec.FileName, rec.CID, rec.Size)
		if rec.ViewURL != "" {
			fmt.Printf("  view: %s\n", rec.ViewURL)
		}
		return nil
	}()

	return lhcommon.Finish(logger, err)
}

func main() {
	if err := flags.LoadDotEnv(); err != nil {
		log.Println(err)
	}

	app := &cli.App{
		Name:           "upload",
		Usage:          "Upload files or text to Lighthouse, encrypted unless --plain is given",
		Flags:          lhcommon.CommonFlags("upload"),
		DefaultCommand: "sample",
		Commands: []*cli.Command{
			{
				Name:  "sample",
				Usage: "create a unique sample file and upload it",
				Flags: []cli.Flag{flagPlain, flagName},
				Action: func(cCtx *cli.Context) error {
					return upload(cCtx, workflow.Source{})
				},
			},
			{
				Name:      "file",
				Usage:     "upload a local file",
				ArgsUsage: "<path>",
				Flags:     []cli.Flag{flagPlain, flagName},
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return cli.Exit("expected exactly one file path", 1)
					}
					return upload(cCtx, workflow.Source{Path: cCtx.Args().First()})
				},
			},
			{
				Name:      "text",
				Usage:     "upload text or JSON given on the command line",
				ArgsUsage: "<text>",
				Flags:     []cli.Flag{flagPlain, flagName},
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return cli.Exit("expected exactly one text argument", 1)
					}
					return upload(cCtx, workflow.Source{Text: cCtx.Args().First()})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
