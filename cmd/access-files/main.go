package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ruteri/lighthouse-toolkit/cmd/flags"
	"github.com/ruteri/lighthouse-toolkit/cmd/lhcommon"
	"github.com/ruteri/lighthouse-toolkit/interfaces"
	"github.com/ruteri/lighthouse-toolkit/workflow"
	"github.com/urfave/cli/v2"
)

var flagOutput = &cli.StringFlag{
	Name:  "output",
	Value: workflow.DefaultDownloadName,
	Usage: "name used for plain downloads (saved as downloaded-<name>)",
}

func printResult(res *workflow.Retrieved, path string) {
	fmt.Printf("Retrieved %s via %s, saved to %s\n", res.CID, res.State, path)
	if text, ok := workflow.Preview(workflow.FormatPayload(res.ContentType, res.Data)); ok {
		fmt.Println("=== CONTENT ===")
		fmt.Println(text)
		fmt.Println("=== END CONTENT ===")
	}
}

func printDeals(deals []interfaces.DealStatus) {
	for _, deal := range deals {
		fmt.Printf("  deal %d: %s (provider %s)\n", deal.ChainDealID, deal.DealStatus, deal.StorageProvider)
	}
}

func accessSpecific(cCtx *cli.Context, tk *lhcommon.Toolkit, retriever *workflow.Retriever) error {
	id, err := lhcommon.ContentIDArg(cCtx.Args().First(), tk.Log)
	if err != nil {
		return err
	}

	res, err := retriever.Retrieve(cCtx.Context, id)
	if err != nil {
		return err
	}

	path, err := retriever.Save(res, cCtx.String(flagOutput.Name))
	if err != nil {
		return err
	}
	printResult(res, path)

	if deals, err := retriever.DealStatus(cCtx.Context, id); err == nil {
		printDeals(deals)
	}
	return nil
}

func accessRecords(cCtx *cli.Context, tk *lhcommon.Toolkit, retriever *workflow.Retriever) error {
	outcomes, err := retriever.RetrieveRecords(cCtx.Context)
	if err != nil {
		return err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			tk.Log.Error("Could not access uploaded file", slog.String("record", o.Slot.FileName), "err", o.Err)
			continue
		}
		fmt.Printf("[%s] %s\n", o.Slot.FileName, o.Record.FileName)
		printResult(o.Retrieved, o.Path)
		printDeals(o.Deals)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads could not be accessed", failed, len(outcomes))
	}
	return nil
}

func main() {
	if err := flags.LoadDotEnv(); err != nil {
		log.Println(err)
	}

	app := &cli.App{
		Name:      "access-files",
		Usage:     "Download or decrypt uploaded files; without a content id, every stored upload record is processed",
		ArgsUsage: "[<cid>]",
		Flags:     append(lhcommon.CommonFlags("access-files"), flagOutput),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			tk, err := lhcommon.Setup(cCtx, logger)
			if err != nil {
				return lhcommon.Finish(logger, err)
			}

			retriever := workflow.NewRetriever(tk.Identity, tk.Client, tk.Records, logger)
			if cCtx.NArg() > 0 {
				return lhcommon.Finish(logger, accessSpecific(cCtx, tk, retriever))
			}
			return lhcommon.Finish(logger, accessRecords(cCtx, tk, retriever))
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
