// Package output provides utilities for formatting and displaying valuation results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/josz5930/CDC-Value-For-You/pkg/constants"
	"github.com/josz5930/CDC-Value-For-You/pkg/denomination"
	"github.com/josz5930/CDC-Value-For-You/pkg/format"
	"github.com/josz5930/CDC-Value-For-You/pkg/mathutil"
	"github.com/josz5930/CDC-Value-For-You/pkg/valuation"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Report is everything shown for one valuation.
type Report struct {
	Result  valuation.Result        `json:"result"`
	Summary string                  `json:"summary"`
	Wallets *valuation.WalletReport `json:"wallets,omitempty"`
}

// NewReport builds a report with its summary sentence filled in.
func NewReport(result valuation.Result, wallets *valuation.WalletReport) Report {
	return Report{Result: result, Summary: Summary(result), Wallets: wallets}
}

// Summary is the one-line reading of a valuation range.
func Summary(r valuation.Result) string {
	return fmt.Sprintf("Your %s vouchers are worth between %s and %s based on your usage profile.",
		format.Currency(r.VoucherTotal), format.Currency(r.MinValue), format.Currency(r.MaxValue))
}

// WriteReport renders r in the named format.
func WriteReport(w io.Writer, outputFormat string, r Report) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return PrettyFormat(w, r)
	case constants.OutputFormatCSV:
		return CsvFormat(w, r)
	case constants.OutputFormatJSON:
		return writeJSON(w, r)
	}
	return fmt.Errorf("unsupported output format %q", outputFormat)
}

// PrettyFormat outputs a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, r Report) error {
	p := message.NewPrinter(language.English)
	res := r.Result
	b := res.LossBreakdown

	_, _ = p.Fprintf(w, "--- Voucher valuation ---\n")
	_, _ = p.Fprintf(w, "%s\n", r.Summary)
	_, _ = p.Fprintf(w, "Efficiency score: %s\n\n", format.Percent(res.EfficiencyScorePercent))

	_, _ = p.Fprintf(w, "%-22s | %s\n", "Method", "Value")
	_, _ = p.Fprintf(w, "%-22s | %s\n", "______", "_____")
	_, _ = p.Fprintf(w, "%-22s | %s\n", "Willingness to pay", format.Currency(res.WTPValue))
	_, _ = p.Fprintf(w, "%-22s | %s\n", "Denomination loss", format.Currency(res.DenominationLossValue))
	_, _ = p.Fprintf(w, "%-22s | %s\n\n", "Incremental spending", format.Currency(res.IncrementalValue))

	_, _ = p.Fprintf(w, "%-22s | %s\n", "Supermarket loss", format.Currency(b.CategoryALoss))
	_, _ = p.Fprintf(w, "%-22s | %s\n", "Heartland loss", format.Currency(b.CategoryBLoss))
	_, _ = p.Fprintf(w, "%-22s | %s\n", "Total loss", format.Currency(b.TotalLoss))
	_, err := p.Fprintf(w, "%-22s | %s\n", "Usable amount", format.Currency(b.UsableAmount))
	if err != nil {
		return err
	}

	if r.Wallets != nil {
		_, _ = p.Fprintf(w, "\n")
		if err := prettySimulation(w, p, denomination.PresetSupermarket, r.Wallets.CategoryA); err != nil {
			return err
		}
		_, _ = p.Fprintf(w, "\n")
		return prettySimulation(w, p, denomination.PresetRegular, r.Wallets.CategoryB)
	}
	return nil
}

// CsvFormat outputs the report as metric,value rows.
func CsvFormat(w io.Writer, r Report) error {
	res := r.Result
	b := res.LossBreakdown
	rows := [][]string{
		{"metric", "value"},
		{"voucher_total", money(res.VoucherTotal)},
		{"wtp_value", money(res.WTPValue)},
		{"denomination_loss_value", money(res.DenominationLossValue)},
		{"incremental_value", money(res.IncrementalValue)},
		{"min_value", money(res.MinValue)},
		{"max_value", money(res.MaxValue)},
		{"efficiency_score_percent", strconv.FormatFloat(mathutil.Round(res.EfficiencyScorePercent), 'f', 1, 64)},
		{"supermarket_loss", money(b.CategoryALoss)},
		{"heartland_loss", money(b.CategoryBLoss)},
		{"total_loss", money(b.TotalLoss)},
		{"usable_amount", money(b.UsableAmount)},
	}
	if r.Wallets != nil {
		rows = append(rows,
			[]string{"supermarket_wallet_loss", money(r.Wallets.CategoryA.TotalLoss)},
			[]string{"supermarket_wallet_uncovered", money(r.Wallets.CategoryA.Uncovered)},
			[]string{"regular_wallet_loss", money(r.Wallets.CategoryB.TotalLoss)},
			[]string{"regular_wallet_uncovered", money(r.Wallets.CategoryB.Uncovered)},
		)
	}
	return writeCSV(w, rows)
}

// WriteOutcome renders a single spend in the named format.
func WriteOutcome(w io.Writer, outputFormat string, purchase float64, o denomination.Outcome) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		p := message.NewPrinter(language.English)
		_, _ = p.Fprintf(w, "Purchase: %s\n", format.Currency(purchase))
		prettyConsumption(w, p, o.UnitsConsumed)
		_, _ = p.Fprintf(w, "Total loss: %s\n", format.Currency(o.TotalLoss))
		_, err := p.Fprintf(w, "Uncovered: %s\n", format.Currency(o.Uncovered))
		return err
	case constants.OutputFormatCSV:
		rows := consumptionRows(o.UnitsConsumed)
		rows = append(rows, []string{"total", "", money(o.TotalValueUsed()), money(o.TotalLoss)})
		return writeCSV(w, rows)
	case constants.OutputFormatJSON:
		return writeJSON(w, struct {
			PurchaseAmount float64 `json:"purchaseAmount"`
			denomination.Outcome
		}{purchase, o})
	}
	return fmt.Errorf("unsupported output format %q", outputFormat)
}

// WriteSimulation renders a wallet simulation in the named format.
func WriteSimulation(w io.Writer, outputFormat, name string, sim denomination.Simulation) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return prettySimulation(w, message.NewPrinter(language.English), name, sim)
	case constants.OutputFormatCSV:
		rows := [][]string{{"purchase", "amount", "value_used", "loss", "uncovered"}}
		for i, pu := range sim.Purchases {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				money(pu.Amount),
				money(pu.Outcome.TotalValueUsed()),
				money(pu.Outcome.TotalLoss),
				money(pu.Outcome.Uncovered),
			})
		}
		rows = append(rows, []string{"total", "", money(sim.TotalValueUsed), money(sim.TotalLoss), money(sim.Uncovered)})
		return writeCSV(w, rows)
	case constants.OutputFormatJSON:
		return writeJSON(w, sim)
	}
	return fmt.Errorf("unsupported output format %q", outputFormat)
}

// WriteLoss renders the denomination loss of a single purchase.
func WriteLoss(w io.Writer, outputFormat string, spend, denom, loss float64) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		_, err := message.NewPrinter(language.English).Fprintf(w, "Paying %s with %s vouchers forfeits %s\n",
			format.Currency(spend), format.Currency(denom), format.Currency(loss))
		return err
	case constants.OutputFormatCSV:
		return writeCSV(w, [][]string{
			{"spend_amount", "denomination", "loss"},
			{money(spend), money(denom), money(loss)},
		})
	case constants.OutputFormatJSON:
		return writeJSON(w, map[string]float64{
			"spendAmount":  spend,
			"denomination": denom,
			"loss":         loss,
		})
	}
	return fmt.Errorf("unsupported output format %q", outputFormat)
}

func prettySimulation(w io.Writer, p *message.Printer, name string, sim denomination.Simulation) error {
	_, _ = p.Fprintf(w, "--- Wallet simulation (%s) ---\n", name)
	for i, pu := range sim.Purchases {
		_, _ = p.Fprintf(w, "Purchase %d: %s, loss %s", i+1, format.Currency(pu.Amount), format.Currency(pu.Outcome.TotalLoss))
		if mathutil.IsPositive(pu.Outcome.Uncovered) {
			_, _ = p.Fprintf(w, ", uncovered %s", format.Currency(pu.Outcome.Uncovered))
		}
		_, _ = p.Fprintf(w, "\n")
	}
	prettyConsumption(w, p, sim.UnitsConsumed)
	_, _ = p.Fprintf(w, "Total loss: %s\n", format.Currency(sim.TotalLoss))
	_, _ = p.Fprintf(w, "Uncovered: %s\n", format.Currency(sim.Uncovered))
	_, err := p.Fprintf(w, "Remaining: %s\n", format.Currency(denomination.TotalFaceValue(sim.Remaining)))
	return err
}

func prettyConsumption(w io.Writer, p *message.Printer, consumed []denomination.Consumption) {
	_, _ = p.Fprintf(w, "%-8s | %-5s | %-10s | %s\n", "Voucher", "Used", "Value used", "Loss")
	_, _ = p.Fprintf(w, "%-8s | %-5s | %-10s | %s\n", "_______", "____", "__________", "____")
	for _, c := range consumed {
		_, _ = p.Fprintf(w, "%-8s | %-5s | %-10s | %s\n",
			format.Currency(c.FaceValue), strconv.Itoa(c.QuantityUsed), format.Currency(c.TotalValueUsed), format.Currency(c.Loss))
	}
}

func consumptionRows(consumed []denomination.Consumption) [][]string {
	rows := [][]string{{"face_value", "quantity_used", "total_value_used", "loss"}}
	for _, c := range consumed {
		rows = append(rows, []string{
			money(c.FaceValue),
			strconv.Itoa(c.QuantityUsed),
			money(c.TotalValueUsed),
			money(c.Loss),
		})
	}
	return rows
}

func money(v float64) string {
	if !mathutil.IsFinite(v) {
		return constants.InvalidDisplay
	}
	return strconv.FormatFloat(mathutil.Round(v), 'f', constants.CurrencyPlaces, 64)
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}
