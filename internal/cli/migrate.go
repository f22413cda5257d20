package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "migrate [notes-file]",
		Short: "Import a legacy flat note file",
		Long:  "Import records from a delimited flat note file. Re-running is a no-op for already-migrated records.",
		Args:  cobra.ExactArgs(1),
		Run:   runMigrate,
	}

	RootCmd.AddCommand(cmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	n, err := e.Migrate(cmd.Context(), args[0])
	if err != nil {
		exitErr("migrate", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", n)
}
