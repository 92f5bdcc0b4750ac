package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/boarman/internal/plugin/boarman"
	"github.com/michaelbrown/boarman/internal/storage"
)

var analyzeJSON bool

var bareHandle = regexp.MustCompile(`^\w+$`)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <message or handle>",
	Short: "Analyze a Twitter profile once and print the assessment",
	Long: `Run the profile analysis action on a single message and exit.
A bare handle without @ is accepted.

Examples:
  boarman analyze @techie_person
  boarman analyze "Can you check out my Twitter? I'm @techie_person"
  boarman analyze techie_person --variant vc-score --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the response as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	text := strings.Join(args, " ")
	if bareHandle.MatchString(text) {
		text = "@" + text
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	action, ok := a.rt.Action(boarman.ActionName)
	if !ok {
		return fmt.Errorf("action %s is not registered", boarman.ActionName)
	}

	msg := &storage.Memory{
		ID:       "cli",
		RoomID:   "cli-analyze",
		UserID:   "cli",
		UserName: "cli",
		Content:  storage.Content{Text: text, Action: boarman.ActionName},
	}

	var out storage.Content
	err = action.Handle(ctx, a.rt, msg, nil, nil, func(ctx context.Context, c storage.Content) error {
		out = c
		return nil
	})
	if err != nil {
		return err
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println(out.Text)
	for _, k := range sortedKeys(out.Extra) {
		fmt.Printf("  %s: %v\n", k, out.Extra[k])
	}
	return nil
}
