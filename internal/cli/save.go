package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jtao/recall/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "save [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin.",
		Run:   runSave,
	}

	cmd.Flags().StringP("title", "T", "", "Memory title")
	cmd.Flags().String("type", "note", "Type: note, insight, fact, preference")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().Float64("importance", 0, "Importance in [0,1] (default 0.5)")

	RootCmd.AddCommand(cmd)
}

func runSave(cmd *cobra.Command, args []string) {
	title, _ := cmd.Flags().GetString("title")
	memType, _ := cmd.Flags().GetString("type")
	tagsStr, _ := cmd.Flags().GetString("tags")
	importance, _ := cmd.Flags().GetFloat64("importance")

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	if strings.TrimSpace(content) == "" {
		exitErr("save", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	var meta map[string]string
	if tagsStr != "" {
		var tags []string
		for _, t := range strings.Split(tagsStr, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		if len(tags) > 0 {
			meta = map[string]string{"tags": strings.Join(tags, ",")}
		}
	}

	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	p := store.CreateParams{
		Type:       memType,
		Title:      title,
		Content:    strings.TrimSpace(content),
		Metadata:   meta,
		SourceType: "manual",
	}
	if cmd.Flags().Changed("importance") {
		p.Importance = &importance
	}

	mem, err := e.Save(cmd.Context(), p)
	if err != nil {
		exitErr("save", err)
	}

	b, _ := json.Marshal(mem)
	fmt.Println(string(b))
}
