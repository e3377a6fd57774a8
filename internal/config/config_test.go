package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"disputebot/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disputebot.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FileWithDefaults(t *testing.T) {
	path := writeConfig(t, `
portal:
  account_number: "202744967"
worker:
  state_dir: /tmp/disputebot-state
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Portal.AccountNumber != "202744967" {
		t.Errorf("account = %q", cfg.Portal.AccountNumber)
	}
	if cfg.Worker.StateDir != "/tmp/disputebot-state" {
		t.Errorf("state dir = %q", cfg.Worker.StateDir)
	}
	if cfg.Worker.PollIntervalMs != defaultPollMs {
		t.Errorf("poll interval = %d, want default %d", cfg.Worker.PollIntervalMs, defaultPollMs)
	}
	if cfg.Dashboard.Listen != defaultListen {
		t.Errorf("listen = %q, want default %q", cfg.Dashboard.Listen, defaultListen)
	}
	if cfg.Portal.DisputeComment == "" {
		t.Error("dispute comment default missing")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("DISPUTEBOT_ACCOUNT_NUMBER", "999888777")
	t.Setenv("DISPUTEBOT_AUTO_ADVANCE", "true")

	path := writeConfig(t, `
portal:
  account_number: "202744967"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Portal.AccountNumber != "999888777" {
		t.Errorf("env override lost: %q", cfg.Portal.AccountNumber)
	}
	if !cfg.Worker.AutoAdvance {
		t.Error("auto_advance env override lost")
	}
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("DISPUTEBOT_ACCOUNT_NUMBER", "123123123")
	cfg, err := Load(filepath.Join(t.TempDir(), "no-such.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Portal.AccountNumber != "123123123" {
		t.Errorf("account = %q", cfg.Portal.AccountNumber)
	}
}

func TestLoad_MissingAccountRejected(t *testing.T) {
	path := writeConfig(t, "worker:\n  state_dir: x\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error without account number")
	}
}

func TestValidate(t *testing.T) {
	base := model.Config{}
	ApplyDefaults(&base)
	base.Portal.AccountNumber = "202744967"

	if err := Validate(base); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tooFast := base
	tooFast.Worker.PollIntervalMs = 10
	if err := Validate(tooFast); err == nil {
		t.Error("sub-100ms poll interval accepted")
	}

	badFormat := base
	badFormat.Logging.Format = "xml"
	if err := Validate(badFormat); err == nil {
		t.Error("unknown logging format accepted")
	}
}

func TestInvoiceDetailURL(t *testing.T) {
	cfg := model.Config{}
	ApplyDefaults(&cfg)
	cfg.Portal.AccountNumber = "202744967"

	// Display dashes must not reach the query parameter.
	got := InvoiceDetailURL(cfg, "1-234-56789")
	want := defaultInvoicesURL + "/invoice-details?accountNo=202744967&countryCode=CA&invoiceNumber=123456789"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}

	if got := InvoiceDetailURL(cfg, "987654321"); !strings.Contains(got, "invoiceNumber=987654321") {
		t.Errorf("undashed number mangled: %q", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nexport DISPUTEBOT_TEST_KEY=\"quoted\"\nDISPUTEBOT_TEST_KEEP=new\nbroken line\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DISPUTEBOT_TEST_KEEP", "original")
	t.Setenv("DISPUTEBOT_TEST_KEY", "")
	os.Unsetenv("DISPUTEBOT_TEST_KEY")

	LoadDotEnv(path)
	t.Cleanup(func() { os.Unsetenv("DISPUTEBOT_TEST_KEY") })

	if got := os.Getenv("DISPUTEBOT_TEST_KEY"); got != "quoted" {
		t.Errorf("DISPUTEBOT_TEST_KEY = %q", got)
	}
	if got := os.Getenv("DISPUTEBOT_TEST_KEEP"); got != "original" {
		t.Errorf("existing env var overwritten: %q", got)
	}
}
