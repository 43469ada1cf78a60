package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"library-desk/library"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

// actorFlags select the employee a non-interactive command acts as. Without
// --as the configured administrator is used.
type actorFlags struct {
	number   int
	identity string
}

func (f *actorFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.number, "as", 0, "employee number to act as")
	cmd.Flags().StringVar(&f.identity, "identity", "", "identity of the employee given with --as")
}

func (f *actorFlags) resolve(a *app) (*library.Employee, error) {
	if f.number == 0 {
		admin, err := a.mgr.EmployeeByIdentity(a.cfg.Admin.Identity)
		if err != nil {
			return nil, err
		}
		return a.mgr.Login(admin.Number, admin.Identity)
	}
	return a.mgr.Login(f.number, f.identity)
}

// withApp opens the library, resolves the acting employee and runs fn.
func withApp(flags *rootFlags, actor *actorFlags, fn func(a *app, by *library.Employee) error) error {
	a, err := openApp(flags)
	if err != nil {
		return err
	}
	defer a.Close()
	by, err := actor.resolve(a)
	if err != nil {
		return err
	}
	return fn(a, by)
}

func newReportCmd(flags *rootFlags) *cobra.Command {
	actor := &actorFlags{}
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the library statistics report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(withApp(flags, actor, func(a *app, by *library.Employee) error {
				r, err := a.mgr.Report(by)
				if err != nil {
					return err
				}
				if asJSON {
					out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(r, "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(out))
					return nil
				}
				printReport(r)
				return nil
			}))
		},
	}
	actor.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	actor := &actorFlags{}
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search the catalog by title, author, genre or ISBN",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(withApp(flags, actor, func(a *app, by *library.Employee) error {
				books, err := a.mgr.SearchBooks(by, strings.Join(args, " "))
				if err != nil {
					return err
				}
				printBooks(books)
				return nil
			}))
		},
	}
	actor.register(cmd)
	return cmd
}

func newLoansCmd(flags *rootFlags) *cobra.Command {
	actor := &actorFlags{}
	var dueSoon int
	var overdueOnly bool
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List loans, optionally only overdue ones or those due soon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(withApp(flags, actor, func(a *app, by *library.Employee) error {
				var loans []*library.Loan
				var err error
				if cmd.Flags().Changed("due-soon") {
					loans, err = a.mgr.DueSoon(by, dueSoon)
				} else {
					loans, err = a.mgr.Loans(by)
				}
				if err != nil {
					return err
				}
				now := a.mgr.Now()
				if overdueOnly {
					var late []*library.Loan
					for _, l := range loans {
						if l.EffectiveStatus(now) == library.StatusOverdue {
							late = append(late, l)
						}
					}
					loans = late
				}
				printLoans(loans, now)
				return nil
			}))
		},
	}
	actor.register(cmd)
	cmd.Flags().IntVar(&dueSoon, "due-soon", library.DueSoonDays, "only loans due within this many days")
	cmd.Flags().BoolVar(&overdueOnly, "overdue", false, "only overdue loans")
	return cmd
}

// newValidateCmd checks every stored record and reports the ones that would
// be skipped on load.
func newValidateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every stored record and list the invalid ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return report(err)
			}
			logger, logFile, err := newLogger(cfg)
			if err != nil {
				return report(err)
			}
			defer logFile.Close()

			store, opts, err := openStore(cfg)
			if err != nil {
				return report(err)
			}
			mgr, err := library.NewLibraryManager(store, append(opts, library.WithLogger(logger))...)
			if err != nil {
				store.Close()
				return report(err)
			}
			defer mgr.Close()

			counts := mgr.Counts()
			for _, kind := range library.Kinds {
				fmt.Printf("%-10s %d valid\n", kind, counts[kind])
			}
			problems := mgr.LoadProblems()
			if len(problems) == 0 {
				fmt.Println("All records are valid.")
				return nil
			}
			sort.SliceStable(problems, func(i, j int) bool { return problems[i].Kind < problems[j].Kind })
			fmt.Printf("\n%d invalid record(s):\n", len(problems))
			for _, p := range problems {
				fmt.Fprintf(os.Stdout, "  %s\n", p)
			}
			return fmt.Errorf("%d invalid record(s)", len(problems))
		},
	}
}
