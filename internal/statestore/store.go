package statestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	yamlv3 "gopkg.in/yaml.v3"

	"disputebot/internal/lock"
	"disputebot/internal/model"
)

const (
	runStateFile   = "run.yaml"
	sessionFile    = "session.yaml"
	persistentFile = "persistent.yaml"
	previewFile    = "preview.png"
	clicksFile     = "clicks.jsonl"

	// DefaultMaxLogEntries caps the session log; the oldest entries fall off.
	DefaultMaxLogEntries = 5000
)

// Store reads and writes the shared documents under a state directory. Reads
// of a missing or corrupt document return the documented default, never an
// error; corrupt files are quarantined so the next write starts clean.
type Store struct {
	dir           string
	locks         *lock.KeyedMutex
	maxLogEntries int
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{
		dir:           dir,
		locks:         lock.NewKeyedMutex(),
		maxLogEntries: DefaultMaxLogEntries,
	}, nil
}

// SetMaxLogEntries overrides the session log cap. Values below 1 keep the
// default.
func (s *Store) SetMaxLogEntries(n int) {
	if n > 0 {
		s.maxLogEntries = n
	}
}

func (s *Store) Dir() string { return s.dir }

// PreviewPath is where the worker publishes its latest screenshot preview.
func (s *Store) PreviewPath() string { return filepath.Join(s.dir, previewFile) }

// readDocument unmarshals path into out. Returns false when the document is
// missing or unreadable; a corrupt file is additionally moved aside.
func (s *Store) readDocument(path string, out any) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := yamlv3.Unmarshal(content, out); err != nil {
		s.quarantine(path)
		return false
	}
	return true
}

func (s *Store) quarantine(path string) {
	stamp := time.Now().Format("20060102T150405")
	aside := fmt.Sprintf("%s.%s.corrupt", path, stamp)
	_ = os.Rename(path, aside)
}

// ReadRunState never fails; a missing or corrupt document reads as idle.
func (s *Store) ReadRunState() model.RunState {
	state := model.DefaultRunState()
	s.readDocument(filepath.Join(s.dir, runStateFile), &state)
	return state
}

func (s *Store) WriteRunState(state model.RunState) error {
	state.Updated = time.Now().Format(time.RFC3339)
	return atomicWrite(filepath.Join(s.dir, runStateFile), state)
}

// SetCommand updates only the command field; the controller's half of the
// run document.
func (s *Store) SetCommand(cmd model.Command) error {
	s.locks.Lock(runStateFile)
	defer s.locks.Unlock(runStateFile)

	state := s.ReadRunState()
	state.Command = cmd
	return s.WriteRunState(state)
}

// SetStatus updates only the status field; the worker's half of the run
// document.
func (s *Store) SetStatus(status model.RunStatus) error {
	s.locks.Lock(runStateFile)
	defer s.locks.Unlock(runStateFile)

	state := s.ReadRunState()
	state.Status = status
	return s.WriteRunState(state)
}

// ResetRun replaces the run document with a fresh idle state carrying a new
// run ID. The explicit reset is the only way out of a terminal status.
func (s *Store) ResetRun() (model.RunState, error) {
	s.locks.Lock(runStateFile)
	defer s.locks.Unlock(runStateFile)

	state := model.RunState{
		Command: model.CommandIdle,
		Status:  model.StatusIdle,
		RunID:   uuid.NewString(),
		Started: time.Now().Format(time.RFC3339),
	}
	return state, s.WriteRunState(state)
}

func (s *Store) ReadSession() model.Session {
	session := model.DefaultSession()
	s.readDocument(filepath.Join(s.dir, sessionFile), &session)
	return session
}

func (s *Store) WriteSession(session model.Session) error {
	return atomicWrite(filepath.Join(s.dir, sessionFile), session)
}

// ResetSession overwrites the combined log/stats/invoices document wholesale;
// persistent counters are re-mirrored so the dashboard never shows zeros for
// the all-time figures.
func (s *Store) ResetSession() error {
	s.locks.Lock(sessionFile)
	defer s.locks.Unlock(sessionFile)

	session := model.DefaultSession()
	persistent := s.ReadPersistentStats()
	session.Stats.TotalAllTime = persistent.TotalDisputes
	session.Stats.TotalMonth = persistent.MonthlyDisputes[currentMonth()]
	return s.WriteSession(session)
}

// AppendEvent adds one structured entry to the session log, trimming to the
// configured cap.
func (s *Store) AppendEvent(event model.LogEvent) error {
	s.locks.Lock(sessionFile)
	defer s.locks.Unlock(sessionFile)

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().Format("15:04:05")
	}

	session := s.ReadSession()
	session.Logs = append(session.Logs, event)
	if len(session.Logs) > s.maxLogEntries {
		session.Logs = session.Logs[len(session.Logs)-s.maxLogEntries:]
	}
	return s.WriteSession(session)
}

// UpdateStats applies fn to the session stats under the document lock.
func (s *Store) UpdateStats(fn func(*model.Stats)) error {
	s.locks.Lock(sessionFile)
	defer s.locks.Unlock(sessionFile)

	session := s.ReadSession()
	fn(&session.Stats)
	return s.WriteSession(session)
}

// SaveInvoices publishes the discovered invoice list for dashboard display.
func (s *Store) SaveInvoices(invoices []model.Invoice) error {
	s.locks.Lock(sessionFile)
	defer s.locks.Unlock(sessionFile)

	session := s.ReadSession()
	session.Invoices = invoices
	return s.WriteSession(session)
}

func (s *Store) ReadPersistentStats() model.PersistentStats {
	stats := model.DefaultPersistentStats()
	s.readDocument(filepath.Join(s.dir, persistentFile), &stats)
	if stats.MonthlyDisputes == nil {
		stats.MonthlyDisputes = map[string]int{}
	}
	return stats
}

func (s *Store) WritePersistentStats(stats model.PersistentStats) error {
	return atomicWrite(filepath.Join(s.dir, persistentFile), stats)
}

// RecordDispute bumps the all-time and current-month counters and mirrors
// both into the session stats for the dashboard.
func (s *Store) RecordDispute() error {
	s.locks.Lock(persistentFile)
	stats := s.ReadPersistentStats()
	stats.TotalDisputes++
	month := currentMonth()
	stats.MonthlyDisputes[month]++
	err := s.WritePersistentStats(stats)
	s.locks.Unlock(persistentFile)
	if err != nil {
		return err
	}

	return s.UpdateStats(func(st *model.Stats) {
		st.TotalAllTime = stats.TotalDisputes
		st.TotalMonth = stats.MonthlyDisputes[month]
	})
}

// WritePreview publishes the latest screenshot bytes for the dashboard's
// observability side channel. No backup is kept; the next frame replaces it.
func (s *Store) WritePreview(png []byte) error {
	return writeBinary(s.PreviewPath(), png)
}

// AppendClick queues one dashboard click for the worker. The queue is a
// plain JSON-lines file; the worker drains it during the login phase.
func (s *Store) AppendClick(click model.ClickRequest) error {
	s.locks.Lock(clicksFile)
	defer s.locks.Unlock(clicksFile)

	if click.Timestamp == "" {
		click.Timestamp = time.Now().Format(time.RFC3339)
	}
	line, err := json.Marshal(click)
	if err != nil {
		return fmt.Errorf("marshal click: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(s.dir, clicksFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open clicks queue: %w", err)
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}

// DrainClicks returns and clears all queued clicks. Unparseable lines are
// dropped silently.
func (s *Store) DrainClicks() []model.ClickRequest {
	s.locks.Lock(clicksFile)
	defer s.locks.Unlock(clicksFile)

	path := filepath.Join(s.dir, clicksFile)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	_ = os.Remove(path)

	var clicks []model.ClickRequest
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var click model.ClickRequest
		if err := json.Unmarshal([]byte(line), &click); err != nil {
			continue
		}
		clicks = append(clicks, click)
	}
	return clicks
}

func writeBinary(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".disputebot-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

func currentMonth() string {
	return time.Now().Format("2006-01")
}
