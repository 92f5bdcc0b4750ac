package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/boarman/internal/storage"
)

var (
	statusFilter string
	handleFilter string
	limitFlag    int
	exportFormat string
	exportOutput string
)

var analysesCmd = &cobra.Command{
	Use:     "analyses",
	Aliases: []string{"analysis", "a"},
	Short:   "Inspect recorded profile analyses",
}

var analysesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded analyses",
	RunE:  runAnalysesList,
}

var analysesShowCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show one analysis with its profile snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalysesShow,
}

var analysesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export analyses as markdown or JSON",
	RunE:  runAnalysesExport,
}

func init() {
	rootCmd.AddCommand(analysesCmd)
	analysesCmd.AddCommand(analysesListCmd, analysesShowCmd, analysesExportCmd)

	for _, c := range []*cobra.Command{analysesListCmd, analysesExportCmd} {
		c.Flags().StringVar(&statusFilter, "status", "", "Filter by status (ok, failed)")
		c.Flags().StringVar(&handleFilter, "handle", "", "Filter by Twitter handle")
		c.Flags().IntVar(&limitFlag, "limit", 20, "Max analyses to include")
	}

	analysesExportCmd.Flags().StringVar(&exportFormat, "format", "md", "Export format: md or json")
	analysesExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}

func listOptions() storage.AnalysisListOptions {
	return storage.AnalysisListOptions{
		Handle: strings.TrimPrefix(handleFilter, "@"),
		Status: storage.AnalysisStatus(statusFilter),
		Limit:  limitFlag,
	}
}

func runAnalysesList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	analyses, err := store.ListAnalyses(context.Background(), listOptions())
	if err != nil {
		return err
	}

	if len(analyses) == 0 {
		fmt.Println("No analyses found.")
		return nil
	}

	// Header
	fmt.Printf("%-10s %-8s %-20s %-12s %-44s %s\n", "ID", "STATUS", "HANDLE", "VARIANT", "RESPONSE", "CREATED")
	fmt.Println(strings.Repeat("─", 110))

	for _, a := range analyses {
		handle := "@" + a.Handle
		if len(handle) > 19 {
			handle = handle[:18] + ".."
		}

		summary := a.Response
		if a.Status == storage.AnalysisFailed {
			summary = "(" + a.ErrorKind + ") " + a.Error
		}

		fmt.Printf("%-10s %-8s %-20s %-12s %-44s %s\n",
			a.ID[:8], a.Status, handle, a.Variant, truncate(summary, 42), timeAgo(a.CreatedAt))
	}

	return nil
}

func runAnalysesShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	a, err := store.GetAnalysis(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Analysis: %s\n", a.ID)
	fmt.Printf("Handle:   @%s\n", a.Handle)
	fmt.Printf("Variant:  %s\n", a.Variant)
	fmt.Printf("Status:   %s\n", a.Status)
	if a.RoomID != "" {
		fmt.Printf("Room:     %s\n", a.RoomID)
	}
	if a.ErrorKind != "" {
		fmt.Printf("Error:    %s: %s\n", a.ErrorKind, a.Error)
	}
	fmt.Printf("Created:  %s\n", a.CreatedAt.Format(time.RFC3339))

	for _, k := range sortedKeys(a.Scores) {
		fmt.Printf("  %-22s %v\n", k+":", a.Scores[k])
	}

	if a.Response != "" {
		fmt.Println(strings.Repeat("─", 60))
		fmt.Println(a.Response)
	}
	if len(a.Profile) > 0 {
		fmt.Println(strings.Repeat("─", 60))
		fmt.Printf("\033[90m%s\033[0m\n", a.Profile)
	}

	return nil
}

func runAnalysesExport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	analyses, err := store.ListAnalyses(context.Background(), listOptions())
	if err != nil {
		return err
	}

	var output string
	switch exportFormat {
	case "json":
		data, err := storage.ExportJSON(analyses)
		if err != nil {
			return err
		}
		output = string(data)
	default:
		output = storage.ExportMarkdown(analyses)
	}

	if exportOutput != "" {
		return os.WriteFile(exportOutput, []byte(output), 0o644)
	}

	fmt.Print(output)
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
