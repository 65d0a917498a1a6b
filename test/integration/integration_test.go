package integration

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/josz5930/CDC-Value-For-You/internal/config"
	"github.com/josz5930/CDC-Value-For-You/internal/profile"
	"github.com/josz5930/CDC-Value-For-You/internal/profilestore"
	"github.com/josz5930/CDC-Value-For-You/internal/server"
	"github.com/josz5930/CDC-Value-For-You/internal/session"
	"github.com/josz5930/CDC-Value-For-You/pkg/denomination"
	"github.com/josz5930/CDC-Value-For-You/pkg/output"
	"github.com/josz5930/CDC-Value-For-You/pkg/testutil"
	"github.com/josz5930/CDC-Value-For-You/pkg/valuation"
	"go.uber.org/zap"
)

// evaluateFixture values the fixture's defaults with its wallets, exactly as
// the valuate command does with no flags.
func evaluateFixture(t *testing.T) session.Outcome {
	t.Helper()

	conf, err := config.LoadConfiguration("../test_config.yaml")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if warnings := conf.ValidateConfiguration(); len(warnings) != 0 {
		t.Fatalf("unexpected configuration warnings: %v", warnings)
	}

	wallets := &session.Wallets{Regular: conf.RegularWallet(), Supermarket: conf.SupermarketWallet()}
	out := session.New(conf.DefaultInput(), wallets, zap.NewNop()).Evaluate(session.Snapshot{})
	if out.Err != nil {
		t.Fatalf("Evaluate() error = %v", out.Err)
	}
	return out
}

// TestFixtureValuationBaseline checks the fixture profile against hand-computed values.
func TestFixtureValuationBaseline(t *testing.T) {
	out := evaluateFixture(t)
	r := out.Result

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"wtp", r.WTPValue, 425},
		{"denomination loss value", r.DenominationLossValue, 475},
		{"incremental", r.IncrementalValue, 500},
		{"min", r.MinValue, 425},
		{"max", r.MaxValue, 500},
		{"efficiency", r.EfficiencyScorePercent, 93.33},
		{"supermarket loss", r.LossBreakdown.CategoryALoss, 0},
		{"heartland loss", r.LossBreakdown.CategoryBLoss, 25},
		{"usable", r.LossBreakdown.UsableAmount, 500},
		{"projected spend", r.LossBreakdown.ProjectedSpend, 605},
	}

	for _, check := range checks {
		if !testutil.AlmostEqual(check.got, check.want) {
			t.Errorf("%s: expected %.2f, got %.2f", check.name, check.want, check.got)
		}
	}
}

// TestFixtureWalletSimulation follows the fixture's visits through its wallets.
func TestFixtureWalletSimulation(t *testing.T) {
	out := evaluateFixture(t)
	if out.Wallets == nil {
		t.Fatal("expected wallet report")
	}

	// Eight $60 supermarket trips against $150 of $10 vouchers.
	super := out.Wallets.CategoryA
	if super.TotalLoss != 0 {
		t.Errorf("supermarket loss: expected 0, got %.2f", super.TotalLoss)
	}
	if !testutil.AlmostEqual(super.Uncovered, 330) {
		t.Errorf("supermarket uncovered: expected 330, got %.2f", super.Uncovered)
	}
	if len(super.Remaining) != 0 {
		t.Errorf("supermarket wallet should be empty, got %v", super.Remaining)
	}

	// Ten $12.50 heartland visits against the regular mix.
	regular := out.Wallets.CategoryB
	if !testutil.AlmostEqual(regular.TotalLoss, 23) {
		t.Errorf("regular loss: expected 23, got %.2f", regular.TotalLoss)
	}
	if regular.Uncovered != 0 {
		t.Errorf("regular uncovered: expected 0, got %.2f", regular.Uncovered)
	}
	if got := denomination.TotalFaceValue(regular.Remaining); got != 2 {
		t.Errorf("regular remaining: expected $2, got %.2f", got)
	}

	wantUsed := map[float64]int{10: 6, 5: 12, 2: 14}
	for face, want := range wantUsed {
		c := testutil.FindConsumption(regular.UnitsConsumed, face)
		if c == nil {
			t.Errorf("$%v vouchers never used", face)
			continue
		}
		if c.QuantityUsed != want {
			t.Errorf("$%v vouchers used: expected %d, got %d", face, want, c.QuantityUsed)
		}
	}

	if !testutil.AlmostEqual(out.Wallets.TotalLoss, 23) {
		t.Errorf("total wallet loss: expected 23, got %.2f", out.Wallets.TotalLoss)
	}
}

// TestCSVOutputFormat checks the CSV report is well formed and carries the fixture values.
func TestCSVOutputFormat(t *testing.T) {
	out := evaluateFixture(t)

	var buf bytes.Buffer
	if err := output.CsvFormat(&buf, output.NewReport(out.Result, out.Wallets)); err != nil {
		t.Fatalf("CsvFormat() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("CSV output is invalid: %v", err)
	}

	values := make(map[string]string)
	for i, record := range records {
		if len(record) != 2 {
			t.Fatalf("row %d: expected 2 columns, got %d", i, len(record))
		}
		values[record[0]] = record[1]
	}

	want := map[string]string{
		"min_value":                    "425.00",
		"max_value":                    "500.00",
		"efficiency_score_percent":     "93.3",
		"regular_wallet_loss":          "23.00",
		"supermarket_wallet_uncovered": "330.00",
	}
	for metric, v := range want {
		if values[metric] != v {
			t.Errorf("%s: expected %s, got %s", metric, v, values[metric])
		}
	}
}

// TestPrettyOutputFormat checks the human-readable report layout.
func TestPrettyOutputFormat(t *testing.T) {
	out := evaluateFixture(t)

	var buf bytes.Buffer
	if err := output.PrettyFormat(&buf, output.NewReport(out.Result, out.Wallets)); err != nil {
		t.Fatalf("PrettyFormat() error = %v", err)
	}
	text := buf.String()

	for _, want := range []string{
		"--- Voucher valuation ---",
		"Your $500.00 vouchers are worth between $425.00 and $500.00 based on your usage profile.",
		"--- Wallet simulation (supermarket) ---",
		"--- Wallet simulation (regular) ---",
		"Remaining: $2.00",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("pretty output missing %q", want)
		}
	}
}

// TestConfigurationExamples makes sure the shipped example files load cleanly.
func TestConfigurationExamples(t *testing.T) {
	conf, err := config.LoadConfiguration("../../config.yaml.example")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if warnings := conf.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("example configuration has warnings: %v", warnings)
	}
	if conf.DefaultInput() != profile.Defaults() {
		t.Errorf("example defaults differ from built-in defaults: %+v", conf.DefaultInput())
	}

	srvCfg, err := server.LoadConfig("../../server-config.yaml.example")
	if err != nil {
		t.Fatalf("server.LoadConfig() error = %v", err)
	}
	if srvCfg.UploadSizeBytes() != 256*1024 {
		t.Errorf("expected 256K upload limit, got %d", srvCfg.UploadSizeBytes())
	}
}

// TestEndToEndSavedProfile saves a profile over HTTP, loads it back and values
// it through its share link.
func TestEndToEndSavedProfile(t *testing.T) {
	store, err := profilestore.New(":memory:")
	if err != nil {
		t.Fatalf("profilestore.New() error = %v", err)
	}
	defer func() { _ = store.Close() }()

	ts := httptest.NewServer(server.NewHandler(server.Options{
		Logger: zap.NewNop(),
		Store:  store,
		Wallets: &session.Wallets{
			Regular:     denomination.CDCRegular(),
			Supermarket: denomination.CDCSupermarket(),
		},
	}))
	defer ts.Close()

	body, _ := json.Marshal(profile.Input{VoucherAmount: "450", HeartlandSpend: "7"})
	resp, err := http.Post(ts.URL+"/api/profiles", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("save request failed: %v", err)
	}
	var saved struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		t.Fatalf("decode save response: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/profiles/" + saved.ID)
	if err != nil {
		t.Fatalf("load request failed: %v", err)
	}
	var loaded struct {
		Input profile.Input `json:"input"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loaded); err != nil {
		t.Fatalf("decode load response: %v", err)
	}
	_ = resp.Body.Close()

	query := profile.EncodeQuery(loaded.Input).Encode()
	resp, err = http.Get(ts.URL + "/api/valuate?" + query)
	if err != nil {
		t.Fatalf("valuate request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valuate: expected 200, got %d", resp.StatusCode)
	}

	var valued struct {
		Result valuation.Result `json:"result"`
		Share  string           `json:"share"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&valued); err != nil {
		t.Fatalf("decode valuate response: %v", err)
	}

	// 450 total, 80x4 + 7x6 = 362 projected; $7 spends forfeit $3 each.
	if !testutil.AlmostEqual(valued.Result.IncrementalValue, 362) {
		t.Errorf("incremental: expected 362, got %.2f", valued.Result.IncrementalValue)
	}
	if !testutil.AlmostEqual(valued.Result.LossBreakdown.CategoryBLoss, 18) {
		t.Errorf("heartland loss: expected 18, got %.2f", valued.Result.LossBreakdown.CategoryBLoss)
	}
	if valued.Share != query {
		t.Errorf("share link should round-trip: got %q, want %q", valued.Share, query)
	}
}
