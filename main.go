package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"library-desk/config"
	"library-desk/library"
	"library-desk/report"
)

// app carries what every subcommand needs once the root command has run.
type app struct {
	cfg *config.Config
	log *zap.SugaredLogger
	mgr *library.LibraryManager
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	var (
		envFile  string
		dbPath   string
		logLevel string
	)

	root := &cobra.Command{
		Use:          "library-desk",
		Short:        "Loan and fine desk for a small institutional library",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg

			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			a.log = logger.Sugar()

			a.mgr, err = library.NewLibraryManager(cfg.DBPath,
				library.WithLogger(logger),
				library.WithFinePerDay(cfg.FinePerDay),
				library.WithUnpaidFineLimit(cfg.UnpaidFineLimit),
				library.WithBcryptCost(cfg.BcryptCost),
				library.WithAdminAccount(library.AdminAccount{
					Username: cfg.AdminUsername,
					Password: cfg.AdminPassword,
					Email:    cfg.AdminEmail,
				}),
			)
			if err != nil {
				a.log.Errorw("database initialization error", "path", cfg.DBPath, "error", err)
				return errors.Join(err, a.close())
			}
			if res := a.mgr.EnsureAdmin(cmd.Context()); !res.Success {
				a.log.Errorw("admin bootstrap failed", "error", res.Err)
				return errors.Join(res.Err, a.close())
			}
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "optional dotenv file with LIBRARY_* settings")
	flags.StringVar(&dbPath, "db", "", "SQLite database path (overrides LIBRARY_DB_PATH)")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LIBRARY_LOG_LEVEL)")

	root.AddCommand(
		newShellCmd(a),
		newRegisterCmd(a),
		newStatsCmd(a),
		newExportCmd(a),
	)
	return root
}

// close releases the database and flushes the logger. It is safe to call
// more than once.
func (a *app) close() error {
	if a.log != nil {
		defer a.log.Sync()
	}
	if a.mgr == nil {
		return nil
	}
	mgr := a.mgr
	a.mgr = nil
	return mgr.Close()
}

// newLogger writes JSON lines to stderr so the terminal UI on stdout stays
// readable. Debug switches to the development encoder.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// login asks for the password of username and starts a session.
func (a *app) login(ctx context.Context, username string) (*library.Session, error) {
	password, err := stdin.readPassword(fmt.Sprintf("Password for %s: ", username))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	res := a.mgr.Login(ctx, username, password)
	if !res.Success {
		return nil, res.Err
	}
	return res.Value, nil
}

func newRegisterCmd(a *app) *cobra.Command {
	var reg library.Registration
	var kind string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a member record and a login account for it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := library.ParseMemberKind(kind)
			if err != nil {
				return err
			}
			reg.Kind = k
			if reg.Password, err = stdin.readPassword("Password: "); err != nil {
				return err
			}
			if reg.ConfirmPassword, err = stdin.readPassword("Confirm password: "); err != nil {
				return err
			}

			res := a.mgr.Register(cmd.Context(), reg)
			if !res.Success {
				return res.Err
			}
			fmt.Println(res.Message)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&reg.Username, "username", "", "login name")
	f.StringVar(&reg.Email, "email", "", "email address")
	f.StringVar(&kind, "kind", "student", "student or faculty")
	f.StringVar(&reg.FirstName, "first-name", "", "first name (defaults to the username)")
	f.StringVar(&reg.LastName, "last-name", "", "last name")
	f.StringVar(&reg.Department, "department", "", "department")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var (
		username string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the library statistics snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.login(cmd.Context(), username)
			if err != nil {
				return err
			}
			defer a.mgr.Logout(sess)

			st, err := a.mgr.Statistics(cmd.Context(), sess).Unwrap()
			if err != nil {
				return err
			}
			if asJSON {
				out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}
			printStatistics(st)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "admin", "account to log in as")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var username, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write statistics, loans and fines to an Excel workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.login(cmd.Context(), username)
			if err != nil {
				return err
			}
			defer a.mgr.Logout(sess)

			if err := report.ExportWorkbook(cmd.Context(), a.mgr, sess, out); err != nil {
				a.log.Errorw("export failed", "path", out, "error", err)
				return err
			}
			a.log.Infow("report exported", "path", out, "user", sess.Username)
			fmt.Printf("Report written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "admin", "account to log in as")
	cmd.Flags().StringVarP(&out, "out", "o", "library-report.xlsx", "output workbook path")
	return cmd
}

func printStatistics(st *library.Statistics) {
	fmt.Printf("%-20s %s\n", "Generated at", st.GeneratedAt.Local().Format("2006-01-02 15:04"))
	fmt.Printf("%-20s %d (%d available)\n", "Books", st.TotalBooks, st.AvailableBooks)
	fmt.Printf("%-20s %d (%d students, %d faculty)\n", "Members", st.TotalMembers, st.TotalStudents, st.TotalFaculty)
	fmt.Printf("%-20s %d (%d overdue)\n", "Active loans", st.ActiveIssues, st.OverdueIssues)
	fmt.Printf("%-20s %s\n", "Pending fines", st.PendingFines.StringFixed(2))
	fmt.Printf("%-20s %s\n", "Fines collected", st.FinesCollected.StringFixed(2))
}
