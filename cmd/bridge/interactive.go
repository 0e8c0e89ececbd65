package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	lib "modernc.org/sqlite/lib"

	"github.com/wippyai/sqlite-bridge/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2B6CB0")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D6BCFA"))

	metricStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F6E05E"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const eventLogSize = 8

// eventRecorder collects hook events during statement execution so the
// UI can show them. It is only touched from the goroutine running the
// statement; take hands the batch over to the UI loop.
type eventRecorder struct {
	events []string
}

func (r *eventRecorder) OnUpdate(op int32, db, table string, rowid int64) error {
	r.events = append(r.events, fmt.Sprintf("%s %s.%s rowid=%d", opName(op), db, table, rowid))
	return nil
}

func (r *eventRecorder) OnCommit() (int32, error) {
	r.events = append(r.events, "commit")
	return 0, nil
}

func (r *eventRecorder) OnRollback() error {
	r.events = append(r.events, "rollback")
	return nil
}

func (r *eventRecorder) take() []string {
	out := r.events
	r.events = nil
	return out
}

func opName(op int32) string {
	switch op {
	case lib.SQLITE_INSERT:
		return "insert"
	case lib.SQLITE_UPDATE:
		return "update"
	case lib.SQLITE_DELETE:
		return "delete"
	default:
		return fmt.Sprintf("op%d", op)
	}
}

type bridgeModel struct {
	cfg     *Config
	verbose bool

	rt       *runtime.Runtime
	db       *runtime.DB
	recorder *eventRecorder

	input  textinput.Model
	cols   []string
	rows   [][]string
	events []string
	status string
	err    error
}

type openedMsg struct {
	err      error
	rt       *runtime.Runtime
	db       *runtime.DB
	recorder *eventRecorder
}

type execDoneMsg struct {
	err    error
	cols   []string
	rows   [][]string
	events []string
	status string
}

func newBridgeModel(cfg *Config, verbose bool) *bridgeModel {
	ti := textinput.New()
	ti.Placeholder = "SELECT ..."
	ti.Prompt = "sql> "
	ti.Width = 70
	ti.Focus()
	return &bridgeModel{cfg: cfg, verbose: verbose, input: ti}
}

func (m *bridgeModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.openDatabase)
}

func (m *bridgeModel) openDatabase() tea.Msg {
	logger, err := m.cfg.buildLogger(m.verbose)
	if err != nil {
		return openedMsg{err: err}
	}

	rt, err := runtime.New(&runtime.Config{Logger: logger})
	if err != nil {
		return openedMsg{err: err}
	}
	defer rt.ReleaseThread()

	db, err := openConfigured(rt, m.cfg)
	if err != nil {
		rt.Shutdown()
		return openedMsg{err: err}
	}

	recorder := &eventRecorder{}
	if _, err := db.SetUpdateHook(recorder); err != nil {
		db.Close()
		rt.Shutdown()
		return openedMsg{err: err}
	}
	if _, err := db.SetCommitHook(recorder); err != nil {
		db.Close()
		rt.Shutdown()
		return openedMsg{err: err}
	}
	if _, err := db.SetRollbackHook(recorder); err != nil {
		db.Close()
		rt.Shutdown()
		return openedMsg{err: err}
	}

	return openedMsg{rt: rt, db: db, recorder: recorder}
}

func (m *bridgeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.db != nil {
				m.db.Close()
			}
			if m.rt != nil {
				m.rt.Shutdown()
			}
			return m, tea.Quit

		case "enter":
			sql := strings.TrimSpace(m.input.Value())
			if sql == "" || m.db == nil {
				return m, nil
			}
			m.input.SetValue("")
			return m, m.executeSQL(sql)
		}

	case openedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt = msg.rt
		m.db = msg.db
		m.recorder = msg.recorder
		m.status = "connected"

	case execDoneMsg:
		m.err = msg.err
		m.cols = msg.cols
		m.rows = msg.rows
		m.status = msg.status
		m.events = append(m.events, msg.events...)
		if n := len(m.events) - eventLogSize; n > 0 {
			m.events = m.events[n:]
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *bridgeModel) executeSQL(sql string) tea.Cmd {
	return func() tea.Msg {
		// Every command runs on its own goroutine; park its thread
		// context row for the next one instead of leaking it.
		defer m.rt.ReleaseThread()

		cols, rows, err := queryAll(m.db, sql)
		status := fmt.Sprintf("%d row(s)", len(rows))
		if err != nil {
			status = ""
		}
		return execDoneMsg{
			cols:   cols,
			rows:   rows,
			events: m.recorder.take(),
			status: status,
			err:    err,
		}
	}
}

// queryAll runs every statement in sql and returns the rows of the last
// one that produced any.
func queryAll(db *runtime.DB, sql string) ([]string, [][]string, error) {
	var cols []string
	var rows [][]string

	remaining := sql
	for strings.TrimSpace(remaining) != "" {
		st, tail, err := db.Prepare(remaining)
		if err != nil {
			return nil, nil, err
		}
		remaining = tail
		if st == nil {
			continue
		}

		var stCols []string
		var stRows [][]string
		for {
			more, err := st.Step()
			if err != nil {
				st.Finalize()
				return nil, nil, err
			}
			if !more {
				break
			}
			if stCols == nil {
				stCols = make([]string, st.ColumnCount())
				for i := range stCols {
					stCols[i] = st.ColumnName(int32(i))
				}
			}
			row := make([]string, st.ColumnCount())
			for i := range row {
				if st.ColumnType(int32(i)) == runtime.TypeNull {
					row[i] = "NULL"
				} else {
					row[i] = st.ColumnText(int32(i))
				}
			}
			stRows = append(stRows, row)
		}
		if err := st.Finalize(); err != nil {
			return nil, nil, err
		}
		if stCols != nil {
			cols, rows = stCols, stRows
		}
	}
	return cols, rows, nil
}

func (m *bridgeModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("SQLite Bridge"))
	b.WriteString(" ")
	b.WriteString(m.cfg.Database.Path)
	b.WriteString("\n\n")

	if m.db == nil && m.err == nil {
		b.WriteString("Opening database...\n")
		return b.String()
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	} else if len(m.cols) > 0 {
		b.WriteString(headerStyle.Render(strings.Join(m.cols, " | ")))
		b.WriteString("\n")
		for _, row := range m.rows {
			b.WriteString(resultStyle.Render(strings.Join(row, " | ")))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n\n")
	}

	if len(m.events) > 0 {
		b.WriteString("Events:\n")
		for _, e := range m.events {
			b.WriteString(eventStyle.Render("  " + e))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.rt != nil {
		mt := m.rt.Metrics()
		b.WriteString(metricStyle.Render(fmt.Sprintf(
			"conns %d • env hits %d • wrappers %d • fn calls %d • mem %dB",
			mt.OpenConnections, mt.EnvHits,
			mt.WrapDB+mt.WrapStmt+mt.WrapValue+mt.WrapContext,
			mt.FuncCalls, m.rt.MemoryUsed())))
		b.WriteString("\n\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter run • ctrl+c quit"))
	b.WriteString("\n")
	return b.String()
}

func runInteractive(cfg *Config, verbose bool) error {
	p := tea.NewProgram(newBridgeModel(cfg, verbose), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
