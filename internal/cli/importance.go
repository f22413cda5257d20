package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "importance [id] [score]",
		Short: "Set a memory's importance score",
		Args:  cobra.ExactArgs(2),
		Run:   runImportance,
	}

	RootCmd.AddCommand(cmd)
}

func runImportance(cmd *cobra.Command, args []string) {
	score, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		exitErr("importance", fmt.Errorf("invalid score %q", args[1]))
	}

	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	if err := e.UpdateImportance(cmd.Context(), args[0], score); err != nil {
		exitErr("importance", err)
	}

	fmt.Printf(`{"ok":true,"id":%q,"importance":%g}`+"\n", args[0], score)
}
