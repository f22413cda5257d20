package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Regenerate missing or stale embeddings",
		Long:  "Recompute the embedding for every memory whose vector is missing or was produced by a different model version.",
		Run:   runRebuild,
	}

	RootCmd.AddCommand(cmd)
}

func runRebuild(cmd *cobra.Command, args []string) {
	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	n, err := e.RebuildEmbeddings(cmd.Context())
	if err != nil {
		exitErr("rebuild", err)
	}

	fmt.Printf(`{"ok":true,"regenerated":%d}`+"\n", n)
}
