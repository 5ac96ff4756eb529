// Command import_catalog bulk-loads book copies from an Excel sheet.
//
// The first sheet must carry a header row with at least isbn, title and
// author columns. Optional columns are publisher, year, category, shelf,
// price and copies.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"library-desk/config"
	"library-desk/library"
	"library-desk/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var envFile string
	cmd := &cobra.Command{
		Use:          "import_catalog <workbook.xlsx>",
		Short:        "Add book copies listed in an Excel workbook",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), envFile, args[0])
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "optional dotenv file with LIBRARY_* settings")

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, envFile, path string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	log := logger.Sugar()
	defer log.Sync()

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close()

	rows, rowErrs, err := report.ReadCatalog(file)
	if err != nil {
		log.Errorw("catalog rejected", "path", path, "error", err)
		return err
	}
	for _, e := range rowErrs {
		log.Warnw("skipping line", "error", e)
	}

	manager, err := library.NewLibraryManager(cfg.DBPath,
		library.WithLogger(logger),
		library.WithBcryptCost(cfg.BcryptCost),
		library.WithAdminAccount(library.AdminAccount{
			Username: cfg.AdminUsername,
			Password: cfg.AdminPassword,
			Email:    cfg.AdminEmail,
		}),
	)
	if err != nil {
		log.Errorw("database initialization error", "path", cfg.DBPath, "error", err)
		return err
	}
	defer manager.Close()

	if res := manager.EnsureAdmin(ctx); !res.Success {
		return res.Err
	}
	sess, err := manager.Login(ctx, cfg.AdminUsername, cfg.AdminPassword).Unwrap()
	if err != nil {
		return fmt.Errorf("admin login: %w", err)
	}
	defer manager.Logout(sess)

	fmt.Printf("Importing %d titles from %s...\n", len(rows), path)
	var added []*library.Book
	failed := len(rowErrs)
	for _, row := range rows {
		for i := 0; i < row.Copies; i++ {
			book, err := manager.AddBook(ctx, sess, row.Book).Unwrap()
			if err != nil {
				log.Warnw("add book failed", "line", row.Line, "isbn", row.Book.ISBN, "error", err)
				failed++
				break
			}
			added = append(added, book)
		}
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Copies added: %d\n", len(added))
	fmt.Printf("Errors: %d\n", failed)

	if len(added) > 0 {
		fmt.Printf("\n%-15s %-45s %-30s\n", "Code", "Title", "Author")
		fmt.Println(strings.Repeat("-", 92))
		for _, b := range added {
			fmt.Printf("%-15s %-45s %-30s\n", b.Code, truncateString(b.Title, 45), truncateString(b.Author, 30))
		}
	}
	log.Infow("catalog imported", "path", path, "copies", len(added), "errors", failed)
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
