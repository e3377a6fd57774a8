package model

type Config struct {
	Portal    PortalConfig    `yaml:"portal"`
	Browser   BrowserConfig   `yaml:"browser"`
	Worker    WorkerConfig    `yaml:"worker"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type PortalConfig struct {
	URL            string `yaml:"url"`
	InvoicesURL    string `yaml:"invoices_url"`
	AccountNumber  string `yaml:"account_number"`
	CountryCode    string `yaml:"country_code"`
	DisputeComment string `yaml:"dispute_comment"`
}

type BrowserConfig struct {
	UserDataDir string `yaml:"user_data_dir"`
	Headless    bool   `yaml:"headless"`
}

type WorkerConfig struct {
	StateDir string `yaml:"state_dir"`

	// AutoAdvance enables the one-click variant: analysis starts as soon as
	// the signed-in heuristic fires, and processing follows analysis without
	// a separate start command.
	AutoAdvance bool `yaml:"auto_advance"`

	PollIntervalMs int    `yaml:"poll_interval_ms"`
	ElementWaitSec int    `yaml:"element_wait_sec"`
	TableWaitSec   int    `yaml:"table_wait_sec"`
	NavigationSec  int    `yaml:"navigation_sec"`
	PreviewWidth   int    `yaml:"preview_width"`
	MaxLogEntries  int    `yaml:"max_log_entries"`
	HistoryDBPath  string `yaml:"history_db_path"`
}

type DashboardConfig struct {
	Listen string `yaml:"listen"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
