package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/josz5930/CDC-Value-For-You/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const testConfig = "../../test/test_config.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LoggingConfig
		override  string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{name: "Defaults", wantLevel: zapcore.InfoLevel},
		{name: "Config level", cfg: config.LoggingConfig{Level: "debug", Format: "console"}, wantLevel: zapcore.DebugLevel},
		{name: "Override wins", cfg: config.LoggingConfig{Level: "debug"}, override: "error", wantLevel: zapcore.ErrorLevel},
		{name: "Warning alias", cfg: config.LoggingConfig{Level: "warning"}, wantLevel: zapcore.WarnLevel},
		{name: "Invalid level", cfg: config.LoggingConfig{Level: "loud"}, wantErr: true},
		{name: "Invalid format", cfg: config.LoggingConfig{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := initializeLogger(tt.cfg, tt.override)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("initializeLogger() error = %v", err)
			}
			if !logger.Core().Enabled(tt.wantLevel) {
				t.Errorf("level %v should be enabled", tt.wantLevel)
			}
			if tt.wantLevel > zapcore.DebugLevel && logger.Core().Enabled(tt.wantLevel-1) {
				t.Errorf("level %v should be disabled", tt.wantLevel-1)
			}
		})
	}
}

func TestInitializeLoggerOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "voucher.log")

	logger, err := initializeLogger(config.LoggingConfig{OutputFile: path}, "")
	if err != nil {
		t.Fatalf("initializeLogger() error = %v", err)
	}
	logger.Info("hello")
	_ = logger.Sync()
}

func TestValuateCommand(t *testing.T) {
	out, err := execute(t, "--config", testConfig, "--output-format", "csv", "valuate",
		"--amount", "300", "--denomination", "10",
		"--super-spend", "80", "--super-visits", "4",
		"--heart-spend", "30", "--heart-visits", "6",
		"--wtp", "70",
	)
	if err != nil {
		t.Fatalf("valuate error = %v", err)
	}

	for _, want := range []string{"min_value,210.00", "max_value,300.00", "efficiency_score_percent,90.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValuateCommandShareQuery(t *testing.T) {
	out, err := execute(t, "--config", testConfig, "--output-format", "csv", "valuate",
		"--share", "?amount=300&denomination=10&super_spend=80&super_visits=4&heart_spend=30&heart_visits=6&wtp=70",
		"--wtp", "50",
		"--no-wallets",
	)
	if err != nil {
		t.Fatalf("valuate error = %v", err)
	}
	if !strings.Contains(out, "wtp_value,150.00") {
		t.Errorf("explicit flag should override share query:\n%s", out)
	}
	if strings.Contains(out, "wallet_loss") {
		t.Errorf("wallet rows should be omitted:\n%s", out)
	}
}

func TestValuateCommandInvalidInput(t *testing.T) {
	_, err := execute(t, "--config", testConfig, "valuate", "--amount", "5000")
	if err == nil || !strings.Contains(err.Error(), "Must not exceed $2000") {
		t.Fatalf("expected amount limit error, got %v", err)
	}
}

func TestSpendCommand(t *testing.T) {
	out, err := execute(t, "--config", testConfig, "--output-format", "csv", "spend", "23", "--unit", "10x5", "--unit", "1x10")
	if err != nil {
		t.Fatalf("spend error = %v", err)
	}
	if !strings.Contains(out, "total,,25.00,2.00") {
		t.Errorf("unexpected spend output:\n%s", out)
	}
}

func TestParseAmounts(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []float64
		wantErr bool
	}{
		{name: "Plain", args: []string{"7", "12.5"}, want: []float64{7, 12.5}},
		{name: "Exponent", args: []string{"1e3"}, want: []float64{1000}},
		{name: "Padded", args: []string{" 18 "}, want: []float64{18}},
		{name: "Currency sign", args: []string{"$5"}, wantErr: true},
		{name: "Markup", args: []string{"<b>5</b>"}, wantErr: true},
		{name: "Infinity", args: []string{"Inf"}, wantErr: true},
		{name: "NaN", args: []string{"NaN"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmounts(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAmounts() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseAmounts() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("amount %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSpendCommandExponentAmount(t *testing.T) {
	out, err := execute(t, "--config", testConfig, "--output-format", "json", "spend", "1e3", "--unit", "1x10")
	if err != nil {
		t.Fatalf("spend error = %v", err)
	}

	var got struct {
		PurchaseAmount float64 `json:"purchaseAmount"`
		Uncovered      float64 `json:"uncovered"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid json output: %v\n%s", err, out)
	}
	if got.PurchaseAmount != 1000 || got.Uncovered != 990 {
		t.Errorf("1e3 should be spent as 1000, got %+v", got)
	}
}

func TestSpendCommandUnknownWallet(t *testing.T) {
	_, err := execute(t, "--config", testConfig, "spend", "10", "--wallet", "gold")
	if err == nil || !strings.Contains(err.Error(), "unknown wallet") {
		t.Fatalf("expected unknown wallet error, got %v", err)
	}
}

func TestSimulateCommand(t *testing.T) {
	out, err := execute(t, "--config", testConfig, "--output-format", "csv", "simulate", "7", "18", "30",
		"--unit", "3x10", "--unit", "6x5")
	if err != nil {
		t.Fatalf("simulate error = %v", err)
	}
	if !strings.Contains(out, "total,,60.00,5.00,0.00") {
		t.Errorf("unexpected simulation output:\n%s", out)
	}
}

func TestLossCommand(t *testing.T) {
	out, err := execute(t, "--config", testConfig, "--output-format", "pretty", "loss", "7", "10")
	if err != nil {
		t.Fatalf("loss error = %v", err)
	}
	if out != "Paying $7.00 with $10.00 vouchers forfeits $3.00\n" {
		t.Errorf("unexpected loss output %q", out)
	}

	if _, err := execute(t, "--config", testConfig, "loss", "abc", "10"); err == nil {
		t.Error("expected error for non-numeric amount")
	}
}

func TestMissingExplicitConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "loss", "7", "10")
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := execute(t, "--config", testConfig, "--output-format", "xml", "loss", "7", "10")
	if err == nil {
		t.Fatal("expected error for invalid output format")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version = %q, want %q", out, version)
	}
}

type countingPurger struct {
	calls atomic.Int32
}

func (c *countingPurger) PurgeExpired(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	return 2, nil
}

func TestPurgeLoopRunsOnceAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	purger := &countingPurger{}
	purgeLoop(ctx, purger, zap.NewNop())

	if got := purger.calls.Load(); got != 1 {
		t.Fatalf("PurgeExpired called %d times, want 1", got)
	}
}
