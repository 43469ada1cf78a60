package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"library-desk/config"
	"library-desk/library"

	"github.com/spf13/cobra"
)

// Column order of the import file. language is optional.
var columns = []string{"title", "author", "isbn", "genre", "year", "publisher", "copies", "language"}

const requiredColumns = 7

type row struct {
	line int
	book library.Book
}

type rowError struct {
	line int
	err  error
}

func (e rowError) Error() string { return fmt.Sprintf("line %d: %v", e.line, e.err) }

func main() {
	var configPath, envFile, dataDir, store string
	cmd := &cobra.Command{
		Use:          "import_books FILE.csv",
		Short:        "Register the books listed in a CSV file",
		Long:         "Columns: " + strings.Join(columns, ",") + ". A header row is skipped when its first cell is \"title\".",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, envFile)
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if store != "" {
				cfg.Store = store
			}
			return run(cfg, args[0])
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "library.yaml", "YAML configuration file")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file with LIBRARY_* overrides")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory for snapshots")
	cmd.Flags().StringVar(&store, "store", "", "snapshot store: json or sqlite")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, rowErrs := parseRows(f)

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	st, opts, err := library.OpenStore(cfg.Store, cfg.DataDir, cfg.DatabasePath())
	if err != nil {
		return err
	}
	manager, err := library.NewLibraryManager(st, append(opts, library.WithLogger(logger))...)
	if err != nil {
		st.Close()
		return err
	}
	defer manager.Close()

	birth, _ := cfg.AdminBirthDate()
	if _, _, err := manager.EnsureDefaultAdmin(library.Person{
		Name:      cfg.Admin.Name,
		Identity:  cfg.Admin.Identity,
		Email:     cfg.Admin.Email,
		Phone:     cfg.Admin.Phone,
		BirthDate: birth,
		Address:   cfg.Admin.Address,
	}); err != nil {
		return err
	}
	admin, err := manager.EmployeeByIdentity(cfg.Admin.Identity)
	if err != nil {
		return fmt.Errorf("configured administrator: %w", err)
	}

	fmt.Printf("Importing %d book(s) from %s...\n", len(rows), path)
	successCount := 0
	errorCount := len(rowErrs)
	for _, e := range rowErrs {
		fmt.Printf("ERROR - %v\n", e)
	}

	for _, r := range rows {
		fmt.Printf("Importing: %s by %s... ", truncateString(r.book.Title, 40), r.book.Author)
		b, err := manager.RegisterBook(admin, r.book)
		if err != nil {
			fmt.Printf("ERROR (line %d) - %v\n", r.line, err)
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ISBN: %s)\n", b.ISBN)
		successCount++
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)
	if errorCount > 0 {
		return fmt.Errorf("%d row(s) not imported", errorCount)
	}
	return nil
}

// parseRows reads every record it can. Rows with the wrong shape or
// non-numeric fields are reported and left out.
func parseRows(r io.Reader) ([]row, []rowError) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []row
	var errs []rowError
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs = append(errs, rowError{line, err})
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "title") {
			continue
		}
		if len(record) < requiredColumns || len(record) > len(columns) {
			errs = append(errs, rowError{line, fmt.Errorf("want %d or %d columns, got %d", requiredColumns, len(columns), len(record))})
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(record[4]))
		if err != nil {
			errs = append(errs, rowError{line, fmt.Errorf("year: %w", err)})
			continue
		}
		copies, err := strconv.Atoi(strings.TrimSpace(record[6]))
		if err != nil {
			errs = append(errs, rowError{line, fmt.Errorf("copies: %w", err)})
			continue
		}
		b := library.Book{
			Title:       record[0],
			Author:      record[1],
			ISBN:        record[2],
			Genre:       record[3],
			Year:        year,
			Publisher:   record[5],
			TotalCopies: copies,
		}
		if len(record) == len(columns) {
			b.Language = record[7]
		}
		rows = append(rows, row{line: line, book: b})
	}
	return rows, errs
}

func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
