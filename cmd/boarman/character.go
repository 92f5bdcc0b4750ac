package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/michaelbrown/boarman/internal/config"
)

var promptFlag bool

var characterCmd = &cobra.Command{
	Use:   "character",
	Short: "Inspect the active character",
}

var characterShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active character as YAML",
	Long: `Print the active character as YAML, or the rendered system prompt with --prompt.

Examples:
  boarman character show
  boarman character show --character ./characters/custom.yaml --prompt`,
	RunE: runCharacterShow,
}

func init() {
	characterShowCmd.Flags().BoolVar(&promptFlag, "prompt", false, "Print the rendered chat and post prompts instead")
	characterCmd.AddCommand(characterShowCmd)
	rootCmd.AddCommand(characterCmd)
}

func runCharacterShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c, err := loadCharacter(cfg)
	if err != nil {
		return err
	}

	if promptFlag {
		fmt.Println(c.SystemPrompt())
		fmt.Println(strings.Repeat("─", 60))
		fmt.Println(c.PostPrompt())
		return nil
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(c)
}
