// Package config loads the disputebot configuration: a YAML file, overridden
// by the environment, with defaults for every zero value.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"disputebot/internal/model"
)

const (
	defaultPortalURL   = "https://www.fedex.com/online/billing"
	defaultInvoicesURL = "https://www.fedex.com/online/billing/cbs/invoices"
	defaultCountryCode = "CA"
	defaultComment     = "Duty/Tax charge disputed"

	defaultStateDir      = "state"
	defaultHistoryDB     = "state/history.db"
	defaultPollMs        = 500
	defaultElementWait   = 5
	defaultTableWait     = 30
	defaultNavigation    = 15
	defaultPreviewWidth  = 960
	defaultMaxLogEntries = 5000

	defaultListen   = ":8420"
	defaultLogLevel = "info"
)

// Load reads path (missing file is fine, defaults apply), folds in the
// environment, applies defaults, and validates.
func Load(path string) (model.Config, error) {
	LoadDotEnv(".env")

	var cfg model.Config
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(&cfg)
	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *model.Config) {
	setString(&cfg.Portal.URL, "DISPUTEBOT_PORTAL_URL")
	setString(&cfg.Portal.InvoicesURL, "DISPUTEBOT_INVOICES_URL")
	setString(&cfg.Portal.AccountNumber, "DISPUTEBOT_ACCOUNT_NUMBER")
	setString(&cfg.Portal.CountryCode, "DISPUTEBOT_COUNTRY_CODE")
	setString(&cfg.Portal.DisputeComment, "DISPUTEBOT_DISPUTE_COMMENT")
	setString(&cfg.Browser.UserDataDir, "DISPUTEBOT_USER_DATA_DIR")
	setBool(&cfg.Browser.Headless, "DISPUTEBOT_HEADLESS")
	setString(&cfg.Worker.StateDir, "DISPUTEBOT_STATE_DIR")
	setBool(&cfg.Worker.AutoAdvance, "DISPUTEBOT_AUTO_ADVANCE")
	setString(&cfg.Worker.HistoryDBPath, "DISPUTEBOT_HISTORY_DB")
	setString(&cfg.Dashboard.Listen, "DISPUTEBOT_LISTEN")
	setString(&cfg.Logging.Level, "DISPUTEBOT_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// ApplyDefaults fills every zero-valued field.
func ApplyDefaults(cfg *model.Config) {
	if cfg.Portal.URL == "" {
		cfg.Portal.URL = defaultPortalURL
	}
	if cfg.Portal.InvoicesURL == "" {
		cfg.Portal.InvoicesURL = defaultInvoicesURL
	}
	if cfg.Portal.CountryCode == "" {
		cfg.Portal.CountryCode = defaultCountryCode
	}
	if cfg.Portal.DisputeComment == "" {
		cfg.Portal.DisputeComment = defaultComment
	}
	if cfg.Worker.StateDir == "" {
		cfg.Worker.StateDir = defaultStateDir
	}
	if cfg.Worker.HistoryDBPath == "" {
		cfg.Worker.HistoryDBPath = defaultHistoryDB
	}
	if cfg.Worker.PollIntervalMs <= 0 {
		cfg.Worker.PollIntervalMs = defaultPollMs
	}
	if cfg.Worker.ElementWaitSec <= 0 {
		cfg.Worker.ElementWaitSec = defaultElementWait
	}
	if cfg.Worker.TableWaitSec <= 0 {
		cfg.Worker.TableWaitSec = defaultTableWait
	}
	if cfg.Worker.NavigationSec <= 0 {
		cfg.Worker.NavigationSec = defaultNavigation
	}
	if cfg.Worker.PreviewWidth <= 0 {
		cfg.Worker.PreviewWidth = defaultPreviewWidth
	}
	if cfg.Worker.MaxLogEntries <= 0 {
		cfg.Worker.MaxLogEntries = defaultMaxLogEntries
	}
	if cfg.Dashboard.Listen == "" {
		cfg.Dashboard.Listen = defaultListen
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate rejects configurations no component could run with.
func Validate(cfg model.Config) error {
	if cfg.Portal.AccountNumber == "" {
		return fmt.Errorf("config: portal.account_number is required")
	}
	if cfg.Worker.PollIntervalMs < 100 {
		return fmt.Errorf("config: worker.poll_interval_ms %d below 100ms floor", cfg.Worker.PollIntervalMs)
	}
	if cfg.Worker.PreviewWidth > 4096 {
		return fmt.Errorf("config: worker.preview_width %d unreasonably large", cfg.Worker.PreviewWidth)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: logging.format %q not text or json", cfg.Logging.Format)
	}
	return nil
}

// InvoiceDetailURL builds the direct link to one invoice's detail page.
// The portal takes the invoice number without its display dashes.
func InvoiceDetailURL(cfg model.Config, invoiceNumber string) string {
	return fmt.Sprintf("%s/invoice-details?accountNo=%s&countryCode=%s&invoiceNumber=%s",
		cfg.Portal.InvoicesURL, cfg.Portal.AccountNumber, cfg.Portal.CountryCode,
		strings.ReplaceAll(invoiceNumber, "-", ""))
}
