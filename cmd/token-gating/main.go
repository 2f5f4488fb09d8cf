package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ruteri/lighthouse-toolkit/chain"
	"github.com/ruteri/lighthouse-toolkit/cmd/flags"
	"github.com/ruteri/lighthouse-toolkit/cmd/lhcommon"
	"github.com/ruteri/lighthouse-toolkit/interfaces"
	"github.com/ruteri/lighthouse-toolkit/workflow"
	"github.com/urfave/cli/v2"
)

var conditionFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "chain",
		Value: "Base_Testnet",
		Usage: "chain the condition is evaluated on",
	},
	&cli.StringFlag{
		Name:  "method",
		Value: "getBlockNumber",
		Usage: "condition method",
	},
	&cli.StringFlag{
		Name:  "comparator",
		Value: ">=",
		Usage: "one of == != > >= < <=",
	},
	&cli.StringFlag{
		Name:  "threshold",
		Value: "1",
		Usage: "value the method result is compared against",
	},
	&cli.StringFlag{
		Name:  "aggregator",
		Value: workflow.DefaultAggregator,
		Usage: "boolean expression over condition ids, passed through verbatim",
	},
	flags.RpcAddrFlag,
}

func conditionFromCLI(cCtx *cli.Context) interfaces.AccessCondition {
	cond := workflow.BlockHeightCondition(cCtx.String("chain"), cCtx.String("comparator"), cCtx.String("threshold"))
	cond.Method = cCtx.String("method")
	return cond
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(out))
}

func run(cCtx *cli.Context, logger *slog.Logger) error {
	tk, err := lhcommon.Setup(cCtx, logger)
	if err != nil {
		return err
	}

	id, err := lhcommon.ContentIDArg(cCtx.Args().Get(0), logger)
	if err != nil {
		return err
	}

	command := cCtx.Args().Get(1)
	if command == "" {
		command = "access-control"
	}
	logger.Info("Token gating", slog.String("cid", id.String()), slog.String("command", command))

	var preflight workflow.ConditionChecker
	if tk.Config.RPCAddr != "" {
		probe, err := chain.Dial(cCtx.Context, tk.Config.RPCAddr, logger)
		if err != nil {
			logger.Warn("Condition pre-check disabled", "err", err)
		} else {
			preflight = probe
		}
	}

	controller := workflow.NewAccessController(tk.Identity, tk.Client, preflight, logger)
	cond := conditionFromCLI(cCtx)
	aggregator := cCtx.String("aggregator")

	switch command {
	case "access-control":
		ack, err := controller.ApplyCondition(cCtx.Context, id, cond, aggregator)
		if err != nil {
			return err
		}
		printJSON(ack)
	case "get-key":
		info, err := controller.FetchKey(cCtx.Context, id)
		if err != nil {
			return err
		}
		if info.Conditions != nil {
			fmt.Println("Stored conditions:")
			printJSON(info.Conditions)
		}
		fmt.Printf("Key: %s\n", info.Key)
	case "test-workflow":
		report, err := controller.TestWorkflow(cCtx.Context, id, cond, aggregator)
		if err != nil {
			return err
		}
		printJSON(report.Ack)
		fmt.Println("Key retrieval succeeded after applying the condition")
	default:
		return fmt.Errorf("unknown command %q, available: access-control, get-key, test-workflow", command)
	}
	return nil
}

func main() {
	if err := flags.LoadDotEnv(); err != nil {
		log.Println(err)
	}

	app := &cli.App{
		Name:      "token-gating",
		Usage:     "Apply access conditions to an encrypted upload and test key retrieval",
		ArgsUsage: "<cid> [access-control|get-key|test-workflow]",
		Flags:     append(lhcommon.CommonFlags("token-gating"), conditionFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			return lhcommon.Finish(logger, run(cCtx, logger))
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
