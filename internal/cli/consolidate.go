package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Extract insights from session transcripts",
		Long:  "Run the extraction capability over session logs and store the results as memories linked to their transcript.",
		Run:   runConsolidate,
	}

	cmd.Flags().String("session", "", "Path to a single transcript file")
	cmd.Flags().String("all", "", "Directory of session_*.txt transcripts")

	RootCmd.AddCommand(cmd)
}

func runConsolidate(cmd *cobra.Command, args []string) {
	session, _ := cmd.Flags().GetString("session")
	dir, _ := cmd.Flags().GetString("all")

	if session == "" && dir == "" {
		exitErr("consolidate", fmt.Errorf("specify --session FILE or --all DIR"))
	}

	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	if session != "" {
		ids, err := e.ConsolidateSession(cmd.Context(), session)
		if err != nil {
			exitErr("consolidate", err)
		}
		b, _ := json.Marshal(map[string]interface{}{"ok": true, "created": ids})
		fmt.Println(string(b))
		return
	}

	sum, err := e.ConsolidateAll(cmd.Context(), dir)
	if err != nil {
		exitErr("consolidate", err)
	}
	b, _ := json.MarshalIndent(sum, "", "  ")
	fmt.Println(string(b))
}
