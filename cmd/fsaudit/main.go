package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"fsaudit/internal/app"
	"fsaudit/internal/audit"
	"fsaudit/internal/config"
	"fsaudit/internal/report"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Audit", "Duplicates").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts for a passphrase without echoing it.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pw), nil
}

var rootCmd = &cobra.Command{
	Use:   "fsaudit",
	Short: "File integrity auditor",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		storeID := uuid.New().String()
		cfg := config.NewConfig(storeID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Store ID: %s\n", storeID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Store ID: %s\n", cfg.StoreID)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage snapshot encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate an encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupKeys(passphrase); err != nil {
			a.MarkFailed()
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// audit command
var auditCmd = &cobra.Command{
	Use:   "audit [DIR]",
	Short: "Audit a directory tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force-rehash")

		a, err := newApp("Audit")
		if err != nil {
			return err
		}
		defer a.Close()

		target := "."
		if len(args) > 0 {
			target = args[0]
		}

		summary, err := a.RunAudit(target, force)
		if err != nil {
			a.MarkFailed()
			var invalid *audit.InvalidTargetError
			if errors.As(err, &invalid) {
				return fmt.Errorf("%v", invalid)
			}
			return fmt.Errorf("audit failed: %w", err)
		}

		if err := report.WriteSummary(os.Stdout, summary); err != nil {
			a.MarkFailed()
			return err
		}
		return nil
	},
}

// dupes command
var dupesCmd = &cobra.Command{
	Use:   "dupes [DIR]",
	Short: "Report duplicate content under a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		knownPath, _ := cmd.Flags().GetString("known")

		a, err := newApp("Duplicates")
		if err != nil {
			return err
		}
		defer a.Close()

		target := "."
		if len(args) > 0 {
			target = args[0]
		}

		rep, outPath, err := a.FindDuplicates(target, knownPath)
		if err != nil {
			a.MarkFailed()
			return fmt.Errorf("duplicate analysis failed: %w", err)
		}

		if err := report.WriteDuplicates(os.Stdout, rep); err != nil {
			return err
		}
		if err := report.WriteDuplicatesSummary(os.Stdout, rep); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", outPath)
		return nil
	},
}

// extensions command
var extensionsCmd = &cobra.Command{
	Use:   "extensions DIR",
	Short: "Count file extensions under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("output")

		a, err := newApp("Extensions")
		if err != nil {
			return err
		}
		defer a.Close()

		census, err := a.ExtensionCensus(args[0])
		if err != nil {
			a.MarkFailed()
			return fmt.Errorf("census failed: %w", err)
		}

		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()

		if err := report.WriteCensus(f, census); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}

		fmt.Printf("Scanned %d file(s). Report saved to %s\n", census.Total, outPath)
		fmt.Println("\nTop 15 most common extensions:")
		for _, row := range census.Top(15) {
			fmt.Printf("  %-15s : %d\n", row.Extension, row.Count)
		}
		return nil
	},
}

// reformat command
var reformatCmd = &cobra.Command{
	Use:   "reformat RMLINT_JSON",
	Short: "Reformat an rmlint report for manual review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		textOut, _ := cmd.Flags().GetString("text")
		csvOut, _ := cmd.Flags().GetString("csv")

		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening rmlint report: %w", err)
		}
		defer in.Close()

		groups, err := report.ParseRmlintReport(in)
		if err != nil {
			return err
		}

		tf, err := os.Create(textOut)
		if err != nil {
			return fmt.Errorf("creating text report: %w", err)
		}
		defer tf.Close()
		if err := report.WriteRmlintText(tf, groups); err != nil {
			return fmt.Errorf("writing text report: %w", err)
		}

		cf, err := os.Create(csvOut)
		if err != nil {
			return fmt.Errorf("creating CSV export: %w", err)
		}
		defer cf.Close()
		if err := report.WriteRmlintCSV(cf, groups); err != nil {
			return fmt.Errorf("writing CSV export: %w", err)
		}

		fmt.Printf("Found %d duplicate group(s). Wrote %s and %s\n", len(groups), textOut, csvOut)
		return nil
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage archived store snapshots",
}

var snapshotPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Archive a snapshot of the record store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SnapshotPush")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.PushSnapshot(); err != nil {
			a.MarkFailed()
			return fmt.Errorf("pushing snapshot: %w", err)
		}
		fmt.Println("Snapshot archived.")
		return nil
	},
}

var snapshotPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download the archived store snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("output")

		a, err := newApp("SnapshotPull")
		if err != nil {
			return err
		}
		defer a.Close()

		var passphrase string
		if a.EncryptionConfigured() {
			passphrase, err = readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}

		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()

		if err := a.PullSnapshot(f, passphrase); err != nil {
			a.MarkFailed()
			return fmt.Errorf("pulling snapshot: %w", err)
		}
		fmt.Printf("Snapshot written to %s\n", outPath)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View audit run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			a.MarkFailed()
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No audit runs recorded.")
			return nil
		}

		for _, run := range runs {
			duration := ""
			if run.FinishedAt.Valid {
				d := run.FinishedAt.Time.Sub(run.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-12s  %s  %-8s  %s  %s\n",
				run.ID,
				run.Operation,
				run.StartedAt.Format("2006-01-02 15:04:05"),
				run.Status,
				run.Root,
				duration,
			)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	keysCmd.AddCommand(keysInitCmd)

	snapshotCmd.AddCommand(snapshotPushCmd)
	snapshotCmd.AddCommand(snapshotPullCmd)
	snapshotPullCmd.Flags().StringP("output", "o", "fsaudit-snapshot.db", "Destination file")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().Bool("force-rehash", false, "Rehash every file even when size and mtime match")
	rootCmd.AddCommand(dupesCmd)
	dupesCmd.Flags().String("known", "", "JSON file of acknowledged duplicate groups")
	rootCmd.AddCommand(extensionsCmd)
	extensionsCmd.Flags().StringP("output", "o", "extension_report.log", "Report output file")
	rootCmd.AddCommand(reformatCmd)
	reformatCmd.Flags().String("text", "duplicates_report.txt", "Text report output file")
	reformatCmd.Flags().String("csv", "duplicates_export.csv", "CSV export output file")
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
}
