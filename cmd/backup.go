package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/frahmantamala/credify/internal/backup"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or restore the ledger as a JSON snapshot",
}

var backupOut string

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the ledger to a backup file",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, app *application, args []string) error {
		debts, err := app.Service.Export(ctx)
		if err != nil {
			return err
		}

		if backupOut == "-" {
			return backup.Export(os.Stdout, debts)
		}

		path := backupOut
		if path == "" {
			path = backup.FileName(app.Service.Today())
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create backup file: %w", err)
		}
		defer f.Close()

		if err := backup.Export(f, debts); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "exported %d debts to %s\n", len(debts), path)
		return nil
	}),
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the ledger with a backup file",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *application, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open backup file: %w", err)
		}
		defer f.Close()

		debts, err := backup.Import(io.LimitReader(f, backup.MaxBackupSize))
		if err != nil {
			return err
		}
		imported, err := app.Service.Import(ctx, debts)
		if err != nil {
			return err
		}
		fmt.Println("imported", imported)
		return nil
	}),
}

func init() {
	backupExportCmd.Flags().StringVarP(&backupOut, "out", "o", "", "output file, - for stdout (default credify_backup_<day>.json)")

	backupCmd.AddCommand(backupExportCmd, backupImportCmd)
	rootCmd.AddCommand(backupCmd)
}
