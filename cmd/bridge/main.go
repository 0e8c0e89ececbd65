package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	lib "modernc.org/sqlite/lib"

	"github.com/wippyai/sqlite-bridge/runtime"
)

func main() {
	var (
		dbPath      = flag.String("db", "", "Path to SQLite database (overrides config, default in-memory)")
		configPath  = flag.String("config", "", "Path to bridge.toml configuration")
		sqlText     = flag.String("sql", "", "SQL to execute (semicolon-separated; - reads stdin)")
		traceFlag   = flag.Bool("trace", false, "Report statement and row events on stderr")
		metricsFlag = flag.Bool("metrics", false, "Print bridge metrics after execution")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *sqlText == "" {
		fmt.Fprintln(os.Stderr, "Usage: bridge -db <file> -sql <statements>")
		fmt.Fprintln(os.Stderr, "       bridge -config bridge.toml -sql -  (read SQL from stdin)")
		fmt.Fprintln(os.Stderr, "       bridge -db <file> -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(cfg, *sqlText, *traceFlag, *metricsFlag, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// stderrTracer reports engine trace events in -trace mode.
type stderrTracer struct{}

func (stderrTracer) OnTrace(event uint32, obj, extra any) (int32, error) {
	switch event {
	case runtime.TraceStmt:
		fmt.Fprintf(os.Stderr, "trace: stmt %v\n", extra)
	case runtime.TraceRow:
		fmt.Fprintln(os.Stderr, "trace: row")
	case runtime.TraceProfile:
		if ns, ok := extra.(int64); ok {
			fmt.Fprintf(os.Stderr, "trace: done in %dns\n", ns)
		}
	case runtime.TraceClose:
		fmt.Fprintln(os.Stderr, "trace: connection closed")
	}
	return 0, nil
}

func run(cfg *Config, sqlText string, trace, metrics, verbose bool) error {
	if sqlText == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		sqlText = string(data)
	}

	logger, err := cfg.buildLogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	rt, err := runtime.New(&runtime.Config{Logger: logger})
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Shutdown()

	fmt.Printf("Engine: SQLite %s\n", rt.Version())
	fmt.Printf("Database: %s\n", cfg.Database.Path)

	db, err := openConfigured(rt, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if trace {
		mask := runtime.TraceStmt | runtime.TraceProfile | runtime.TraceRow | runtime.TraceClose
		if err := db.SetTrace(mask, stderrTracer{}); err != nil {
			return fmt.Errorf("set trace: %w", err)
		}
	}

	if err := execAndPrint(db, sqlText); err != nil {
		return err
	}

	if metrics {
		printMetrics(rt)
	}
	return nil
}

// openConfigured opens the configured database and applies the
// connection options from the [database] section.
func openConfigured(rt *runtime.Runtime, cfg *Config) (*runtime.DB, error) {
	db, err := rt.OpenV2(cfg.Database.Path, cfg.openFlags(), "")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Database.Path, err)
	}

	if cfg.Database.BusyTimeoutMS > 0 {
		if err := db.SetBusyTimeout(cfg.Database.BusyTimeoutMS); err != nil {
			db.Close()
			return nil, fmt.Errorf("busy timeout: %w", err)
		}
	}
	if cfg.Database.ForeignKeys {
		if _, err := db.ConfigFlag(lib.SQLITE_DBCONFIG_ENABLE_FKEY, 1); err != nil {
			db.Close()
			return nil, fmt.Errorf("foreign keys: %w", err)
		}
	}
	return db, nil
}

// execAndPrint runs every statement in sqlText, printing result rows
// as they arrive.
func execAndPrint(db *runtime.DB, sqlText string) error {
	remaining := sqlText
	for strings.TrimSpace(remaining) != "" {
		st, tail, err := db.Prepare(remaining)
		if err != nil {
			return err
		}
		remaining = tail
		if st == nil {
			continue
		}

		header := false
		for {
			more, err := st.Step()
			if err != nil {
				st.Finalize()
				return err
			}
			if !more {
				break
			}
			if !header {
				printHeader(st)
				header = true
			}
			printRow(st)
		}
		if err := st.Finalize(); err != nil {
			return err
		}
	}
	return nil
}

func printHeader(st *runtime.Stmt) {
	names := make([]string, st.ColumnCount())
	for i := range names {
		names[i] = st.ColumnName(int32(i))
	}
	fmt.Println(strings.Join(names, " | "))
	fmt.Println(strings.Repeat("-", len(strings.Join(names, " | "))))
}

func printRow(st *runtime.Stmt) {
	vals := make([]string, st.ColumnCount())
	for i := range vals {
		if st.ColumnType(int32(i)) == runtime.TypeNull {
			vals[i] = "NULL"
		} else {
			vals[i] = st.ColumnText(int32(i))
		}
	}
	fmt.Println(strings.Join(vals, " | "))
}

func printMetrics(rt *runtime.Runtime) {
	fmt.Printf("\nBridge metrics:\n%s", rt.Metrics())
	fmt.Printf("memory: %d bytes in use, %d high water\n",
		rt.MemoryUsed(), rt.MemoryHighwater(false))
}
