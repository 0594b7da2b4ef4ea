package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/PodJamz/8gent-sub005/config"
	"github.com/PodJamz/8gent-sub005/ingest"
	rlmlogger "github.com/PodJamz/8gent-sub005/logger"
	"github.com/PodJamz/8gent-sub005/mcp"
	"github.com/PodJamz/8gent-sub005/memory"
	"github.com/PodJamz/8gent-sub005/runtime"
)

type rootOptions struct {
	configPath string
	logFile    string
	pretty     bool
	userID     string

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "rlm",
		Short:         "Recursive memory layer: long-term episodic and semantic memory for assistants",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return opts.init()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.GetConfigPath(), "Path to config file")
	flags.StringVar(&opts.logFile, "logfile", "", "Path to log file. If not set, logs to stderr")
	flags.BoolVar(&opts.pretty, "pretty", false, "Use pretty console output (only valid when logfile is not set)")
	flags.StringVar(&opts.userID, "user", "", "User ID (overrides config)")
	rootCmd.MarkFlagsMutuallyExclusive("logfile", "pretty")

	rootCmd.AddCommand(
		newIngestCmd(opts),
		newContextCmd(opts),
		newRecentCmd(opts),
		newStatsCmd(opts),
		newFactsCmd(opts),
		newForgetCmd(opts),
		newWatchCmd(opts),
		newMCPCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

func (o *rootOptions) init() error {
	logger, err := rlmlogger.InitWithOptions(o.logFile, o.pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.logger = logger

	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.userID != "" {
		cfg.UserID = o.userID
	}
	if cfg.UserID == "" {
		return errors.New("user id is empty: set user_id in the config or pass --user")
	}
	o.cfg = cfg
	return nil
}

// withApp opens the store for the duration of fn.
func (o *rootOptions) withApp(fn func(a *app) error) error {
	a, err := newApp(o.cfg, o.logger)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // No remedy for store close errors
	return fn(a)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var (
		heuristic bool
		label     string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "ingest <file>... | ingest -",
		Short: "Extract memories from files (.txt .md .json .csv .zip) or from stdin",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				importer, err := a.newImporter(heuristic)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, arg := range args {
					var (
						r   *ingest.ImportReport
						err error
					)
					if arg == "-" {
						data, readErr := io.ReadAll(cmd.InOrStdin())
						if readErr != nil {
							return fmt.Errorf("read stdin: %w", readErr)
						}
						r, err = importer.IngestText(cmd.Context(), opts.cfg.UserID, label, string(data))
					} else {
						r, err = importer.ImportFile(cmd.Context(), opts.cfg.UserID, arg)
					}
					if err != nil {
						return fmt.Errorf("%s: %w", arg, err)
					}
					if err := printReport(out, r, asJSON); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&heuristic, "heuristic", false, "Use keyword heuristics instead of model extraction")
	cmd.Flags().StringVar(&label, "label", "stdin", "Source label for text read from stdin")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full import report as JSON")
	return cmd
}

func printReport(w io.Writer, r *ingest.ImportReport, asJSON bool) error {
	if asJSON {
		return printJSON(w, r)
	}
	fmt.Fprintf(w, "%s [%s]\n", r.Summary, r.ProcessingMode)
	fmt.Fprintf(w, "  stored: %d episodic, %d semantic\n", r.Stored.Episodic, r.Stored.Semantic)
	if r.Failed.Episodic+r.Failed.Semantic > 0 {
		fmt.Fprintf(w, "  failed: %d episodic, %d semantic\n", r.Failed.Episodic, r.Failed.Semantic)
	}
	for _, note := range r.ProcessingNotes {
		fmt.Fprintf(w, "  note: %s\n", note)
	}
	return nil
}

func newContextCmd(opts *rootOptions) *cobra.Command {
	var (
		limit     int
		projectID string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Show the memory context an assistant would receive for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				res, err := a.manager.LoadRelevantMemories(cmd.Context(), opts.cfg.UserID, strings.Join(args, " "), memory.SearchOptions{
					Limit:     limit,
					ProjectID: projectID,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), res)
				}
				if res.ContextSummary == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No relevant memories.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.ContextSummary)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum episodic memories")
	cmd.Flags().StringVar(&projectID, "project", "", "Restrict episodic search to a project")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print memories as JSON")
	return cmd
}

func newRecentCmd(opts *rootOptions) *cobra.Command {
	var (
		limit     int
		projectID string
	)
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the newest episodic memories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(func(a *app) error {
				mems, err := a.manager.GetRecentMemories(cmd.Context(), opts.cfg.UserID, projectID, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, m := range mems {
					fmt.Fprintf(out, "%s  %-11s %.2f  %s  %s\n",
						m.CreatedAt.Format("2006-01-02 15:04"), m.MemoryType, m.Importance, m.ID, m.Content)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum memories")
	cmd.Flags().StringVar(&projectID, "project", "", "Restrict to a project")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(func(a *app) error {
				stats, err := a.manager.GetStats(cmd.Context(), opts.cfg.UserID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return printJSON(out, stats)
				}
				fmt.Fprintf(out, "Episodic memories: %d\n", stats.EpisodicCount)
				printCounts(out, stats.EpisodicByType)
				fmt.Fprintf(out, "Semantic memories: %d\n", stats.SemanticCount)
				printCounts(out, stats.SemanticByCategory)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print stats as JSON")
	return cmd
}

func printCounts(w io.Writer, counts map[string]int) {
	keys := lo.Keys(counts)
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-12s %d\n", k, counts[k])
	}
}

func newFactsCmd(opts *rootOptions) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "List semantic facts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(func(a *app) error {
				facts, err := a.manager.GetAllSemanticMemories(cmd.Context(), opts.cfg.UserID)
				if err != nil {
					return err
				}
				if category != "" {
					c := memory.ParseSemanticCategory(category)
					facts = lo.Filter(facts, func(f memory.SemanticMemory, _ int) bool { return f.Category == c })
				}
				out := cmd.OutOrStdout()
				for _, f := range facts {
					fmt.Fprintf(out, "%-10s %s = %s (%.2f) [%s]\n", f.Category, f.Key, f.Value, f.Confidence, f.ID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only show one category (preference, skill, pattern, fact)")
	return cmd
}

func newForgetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "forget <episodic|semantic> <memory-id>",
		Short:     "Delete a memory",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"episodic", "semantic"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, id := args[0], args[1]
			return opts.withApp(func(a *app) error {
				var err error
				switch kind {
				case "episodic":
					err = a.manager.DeleteEpisodicMemory(cmd.Context(), id, opts.cfg.UserID)
				case "semantic":
					err = a.manager.DeleteSemanticMemory(cmd.Context(), id, opts.cfg.UserID)
				default:
					return fmt.Errorf("unknown memory kind %q (want episodic or semantic)", kind)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s memory %s\n", kind, id)
				return nil
			})
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the built-in defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.ExpandPath(opts.configPath)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}
			// Defaults only: secrets picked up from the environment stay out of the file.
			cfg := config.Defaults()
			cfg.UserID = opts.cfg.UserID
			if err := config.SaveConfig(&cfg, path); err != nil {
				return err
			}
			opts.logger.Info().Str("path", path).Msg("Wrote config file")
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return err
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	cmd.AddCommand(initCmd)
	return cmd
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		dir       string
		schedule  string
		heuristic bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Import files dropped into the inbox directory on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = opts.cfg.Watch.Dir
			}
			if schedule == "" {
				schedule = opts.cfg.Watch.Schedule
			}
			return opts.withApp(func(a *app) error {
				importer, err := a.newImporter(heuristic)
				if err != nil {
					return err
				}
				var notifier runtime.Notifier
				if opts.cfg.Watch.Notify {
					notifier = runtime.NewDesktopNotifier(a.logger)
				}
				watcher, err := runtime.NewInboxWatcher(importer, opts.cfg.UserID, config.ExpandPath(dir), schedule, notifier, a.logger)
				if err != nil {
					return err
				}
				watcher.Start(cmd.Context())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Inbox directory (default from config)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Scan schedule: Go duration or cron expression (default from config)")
	cmd.Flags().BoolVar(&heuristic, "heuristic", false, "Use keyword heuristics instead of model extraction")
	return cmd
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	var heuristic bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve memory tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(func(a *app) error {
				importer, err := a.newImporter(heuristic)
				if err != nil {
					a.logger.Warn().Err(err).Msg("Ingestion disabled: no usable extraction provider")
					importer = nil
				}
				srv, err := mcp.NewServer(a.manager, importer, opts.cfg.UserID, version, a.logger)
				if err != nil {
					return err
				}
				return srv.ServeStdio()
			})
		},
	}
	cmd.Flags().BoolVar(&heuristic, "heuristic", false, "Use keyword heuristics for memory_ingest")
	return cmd
}
