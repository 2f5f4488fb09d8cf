package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ruteri/lighthouse-toolkit/cmd/flags"
	"github.com/ruteri/lighthouse-toolkit/cryptoutils"
	"github.com/urfave/cli/v2"
)

const defaultSelector = "0x8c6645e0"

// defaultErrorNames are the custom errors of the data DAO contracts.
var defaultErrorNames = []string{
	"EnforcedPause",
	"ExpectedPause",
	"FailedDeployment",
	"InsufficientBalance",
	"InsufficientLockAmount",
	"InvalidAllocation",
	"InvalidFeeConfig",
	"InvalidTaxConfig",
	"InvalidVestingDuration",
	"LPTokensAlreadyWithdrawn",
	"LPTokensStillLocked",
	"LiquidityAdditionFailed",
	"LiquidityAlreadyAdded",
	"NoLPTokensToWithdraw",
	"NotCreator",
	"OnlyDataCoin",
}

var flagName = &cli.StringSliceFlag{
	Name:  "name",
	Usage: "candidate error name or signature; replaces the built-in list",
}

var flagABI = &cli.StringFlag{
	Name:  "abi",
	Usage: "JSON ABI file whose custom errors are searched first",
}

func main() {
	app := &cli.App{
		Name:      "decode-error",
		Usage:     "Find the custom error matching a 4-byte revert selector",
		ArgsUsage: "[selector]",
		Flags:     append(append([]cli.Flag{}, flags.LogFlags...), flags.LogServiceFlagFn("decode-error"), flagName, flagABI),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			raw := cCtx.Args().First()
			if raw == "" {
				raw = defaultSelector
			}
			selector, err := cryptoutils.ParseSelector(raw)
			if err != nil {
				return err
			}
			fmt.Printf("Decoding error selector: %s\n\n", raw)

			if abiPath := cCtx.String(flagABI.Name); abiPath != "" {
				f, err := os.Open(abiPath)
				if err != nil {
					return fmt.Errorf("could not open ABI: %w", err)
				}
				defer f.Close()

				sig, found, err := cryptoutils.MatchABIErrors(selector, f)
				if err != nil {
					return err
				}
				if found {
					fmt.Printf("MATCH FOUND in ABI: %s\n", sig)
					return nil
				}
				logger.Info("No matching error in ABI", slog.String("abi", abiPath))
			}

			names := cCtx.StringSlice(flagName.Name)
			if len(names) == 0 {
				names = defaultErrorNames
			}

			match, candidates, found := cryptoutils.MatchSelector(selector, names)
			for _, c := range candidates {
				fmt.Printf("%s: %s\n", c.Signature, c.Selector)
			}
			if !found {
				logger.Warn("No matching error found", slog.String("selector", raw), slog.Int("candidates", len(candidates)))
				return nil
			}
			fmt.Printf("\nMATCH FOUND: %s\n", match)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
