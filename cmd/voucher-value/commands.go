package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/josz5930/CDC-Value-For-You/internal/profile"
	"github.com/josz5930/CDC-Value-For-You/internal/session"
	"github.com/josz5930/CDC-Value-For-You/pkg/denomination"
	"github.com/josz5930/CDC-Value-For-You/pkg/mathutil"
	"github.com/josz5930/CDC-Value-For-You/pkg/output"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newValuateCmd(root *rootOptions) *cobra.Command {
	var (
		in        profile.Input
		share     string
		noWallets bool
	)

	cmd := &cobra.Command{
		Use:   "valuate",
		Short: "Value the vouchers for a usage profile",
		Long: `Value the vouchers for a usage profile. Flags left unset fall back to
the defaults section of the configuration file. A share link query
(e.g. "amount=300&wtp=70") may be given with --share; explicit flags win
over it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			base := rt.conf.DefaultInput()
			if share != "" {
				q, err := url.ParseQuery(strings.TrimPrefix(share, "?"))
				if err != nil {
					return fmt.Errorf("invalid share query: %w", err)
				}
				base = profile.DecodeQuery(base, q)
			}

			var wallets *session.Wallets
			if !noWallets {
				wallets = rt.wallets()
			}

			out := session.New(base, wallets, rt.logger).Evaluate(session.Snapshot{Input: in, At: time.Now()})
			if out.Err != nil {
				rt.logger.Error("invalid usage profile",
					zap.String("op", "main.valuate"),
					zap.Error(out.Err),
				)
				return out.Err
			}

			return output.WriteReport(cmd.OutOrStdout(), rt.outputFormat, output.NewReport(out.Result, out.Wallets))
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.VoucherAmount, "amount", "", "total voucher face value")
	f.StringVar(&in.VoucherDenomination, "denomination", "", "face value of a single voucher")
	f.StringVar(&in.SupermarketSpend, "super-spend", "", "spend per supermarket visit")
	f.StringVar(&in.SupermarketVisits, "super-visits", "", "supermarket visits in the voucher period")
	f.StringVar(&in.HeartlandSpend, "heart-spend", "", "spend per heartland merchant visit")
	f.StringVar(&in.HeartlandVisits, "heart-visits", "", "heartland merchant visits in the voucher period")
	f.StringVar(&in.WTPPercentage, "wtp", "", "willingness to pay as a percentage of face value")
	f.StringVar(&share, "share", "", "share link query to start from")
	f.BoolVar(&noWallets, "no-wallets", false, "skip the wallet simulation")
	return cmd
}

// walletFlags selects the vouchers a spend draws from.
type walletFlags struct {
	wallet string
	units  []string
}

func (wf *walletFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&wf.wallet, "wallet", denomination.PresetRegular, "voucher wallet: regular or supermarket")
	cmd.Flags().StringSliceVar(&wf.units, "unit", nil, "voucher stack as QUANTITYxFACE, e.g. 6x10 (repeatable, overrides --wallet)")
}

// resolve returns the units to spend and the name they are reported under.
func (wf *walletFlags) resolve(rt *cliRuntime) ([]denomination.Unit, string, error) {
	if len(wf.units) > 0 {
		units, err := denomination.ParseUnits(wf.units)
		if err != nil {
			return nil, "", err
		}
		return units, "custom", nil
	}

	switch wf.wallet {
	case denomination.PresetRegular:
		return rt.conf.RegularWallet(), wf.wallet, nil
	case denomination.PresetSupermarket:
		return rt.conf.SupermarketWallet(), wf.wallet, nil
	}
	return nil, "", fmt.Errorf("unknown wallet %q", wf.wallet)
}

// parseAmounts parses positional amounts strictly. Unlike form fields they are
// not sanitized, so "1e3" is a thousand and "$5" is an error.
func parseAmounts(args []string) ([]float64, error) {
	amounts := make([]float64, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
		if err != nil || !mathutil.IsFinite(v) {
			return nil, fmt.Errorf("invalid amount %q", arg)
		}
		amounts = append(amounts, v)
	}
	return amounts, nil
}

func newSpendCmd(root *rootOptions) *cobra.Command {
	var wf walletFlags

	cmd := &cobra.Command{
		Use:   "spend AMOUNT",
		Short: "Pay one purchase with vouchers and report the change forfeited",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			amounts, err := parseAmounts(args)
			if err != nil {
				return err
			}
			units, name, err := wf.resolve(rt)
			if err != nil {
				return err
			}

			outcome := denomination.Spend(amounts[0], units)
			rt.logger.Debug("purchase paid",
				zap.String("op", "main.spend"),
				zap.String("wallet", name),
				zap.Float64("amount", amounts[0]),
				zap.Float64("loss", outcome.TotalLoss),
			)
			return output.WriteOutcome(cmd.OutOrStdout(), rt.outputFormat, amounts[0], outcome)
		},
	}
	wf.register(cmd)
	return cmd
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	var wf walletFlags

	cmd := &cobra.Command{
		Use:   "simulate AMOUNT...",
		Short: "Pay a sequence of purchases from one wallet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			purchases, err := parseAmounts(args)
			if err != nil {
				return err
			}
			units, name, err := wf.resolve(rt)
			if err != nil {
				return err
			}

			sim := denomination.Simulate(units, purchases)
			if mathutil.IsPositive(sim.Uncovered) {
				rt.logger.Warn("wallet ran out before all purchases were paid",
					zap.String("op", "main.simulate"),
					zap.String("wallet", name),
					zap.Float64("uncovered", sim.Uncovered),
				)
			}
			return output.WriteSimulation(cmd.OutOrStdout(), rt.outputFormat, name, sim)
		},
	}
	wf.register(cmd)
	return cmd
}

func newLossCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "loss SPEND DENOMINATION",
		Short: "Change forfeited paying SPEND with vouchers of one face value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			values, err := parseAmounts(args)
			if err != nil {
				return err
			}
			loss := denomination.Loss(values[0], values[1])
			return output.WriteLoss(cmd.OutOrStdout(), rt.outputFormat, values[0], values[1], loss)
		},
	}
}
