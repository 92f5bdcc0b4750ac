package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/boarman/internal/agent"
	"github.com/michaelbrown/boarman/internal/runtime"
	"github.com/michaelbrown/boarman/internal/storage"
)

var (
	roomFlag     string
	userNameFlag string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with Boris Boarman",
	Long: `Start an interactive conversation with the agent.
Mention a Twitter handle (for example @techie_person) to get a profile analysis.

Examples:
  boarman chat
  boarman chat --room demo --variant vc-score
  boarman chat --provider local --model llama3.2`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&roomFlag, "room", "cli", "Conversation room to join")
	chatCmd.Flags().StringVar(&userNameFlag, "name", "", "Your display name (default: $USER)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	userName := userNameFlag
	if userName == "" {
		userName = os.Getenv("USER")
	}
	if userName == "" {
		userName = "user"
	}

	char := a.rt.Character()
	fmt.Printf("Boarman - %s\n", char.Name)
	fmt.Printf("Provider: %s | Variant: %s | Room: %s\n", a.provider, a.variant.Name, roomFlag)
	fmt.Printf("Type /help for commands, /quit to exit\n\n")

	historyFile := filepath.Join(os.TempDir(), "boarman_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36myou>\033[0m ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	// Ctrl+C cancels the active request, not the whole app.
	var (
		cancelMu  sync.Mutex
		reqCancel context.CancelFunc
	)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			cancelMu.Lock()
			if reqCancel != nil {
				reqCancel()
			}
			cancelMu.Unlock()
		}
	}()

	agentName := strings.ToLower(strings.Fields(char.Name)[0])

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := handleCommand(ctx, input, a); quit {
				return nil
			}
			continue
		}

		reqCtx, cancel := context.WithCancel(ctx)
		cancelMu.Lock()
		reqCancel = cancel
		cancelMu.Unlock()

		msg := &storage.Memory{
			RoomID:   roomFlag,
			UserID:   userName,
			UserName: userName,
			Content:  storage.Content{Text: input},
		}
		streamed := false
		hooks := &runtime.ChatHooks{
			OnTextDelta: func(delta string) {
				if !streamed {
					fmt.Printf("\n\033[32m%s>\033[0m ", agentName)
					streamed = true
				}
				fmt.Print(delta)
			},
			OnToolCall: func(name string, args map[string]any) {
				fmt.Printf("\n  \033[33m⚡ Tool: %s\033[0m\n", agent.FormatToolCall(name, args))
			},
			OnToolResult: printToolResult,
		}
		err = a.rt.ProcessMessage(runtime.WithChatHooks(reqCtx, hooks), msg, nil, func(ctx context.Context, c storage.Content) error {
			if streamed {
				fmt.Print("\n\n")
				return nil
			}
			printResponse(agentName, c)
			return nil
		})
		wasInterrupted := reqCtx.Err() != nil

		cancelMu.Lock()
		cancel()
		reqCancel = nil
		cancelMu.Unlock()

		if err != nil {
			if wasInterrupted {
				fmt.Println("\n(interrupted)")
				continue
			}
			fmt.Printf("\n\033[31merror: %s\033[0m\n\n", err)
		}
	}
}

// printToolResult shows the first lines of a tool result.
func printToolResult(name, result string) {
	lines := strings.Split(strings.TrimSpace(result), "\n")
	preview := lines
	if len(preview) > 8 {
		preview = preview[:8]
	}
	for _, line := range preview {
		fmt.Printf("  \033[90m│ %s\033[0m\n", line)
	}
	if len(lines) > 8 {
		fmt.Printf("  \033[90m│ ... (%d more lines)\033[0m\n", len(lines)-8)
	}
}

func printResponse(agentName string, c storage.Content) {
	fmt.Printf("\n\033[32m%s>\033[0m %s\n", agentName, c.Text)
	if c.Action != "" {
		fmt.Printf("  \033[33m⚡ %s\033[0m\n", c.Action)
	}
	for _, k := range sortedKeys(c.Extra) {
		fmt.Printf("  \033[90m│ %s: %v\033[0m\n", k, c.Extra[k])
	}
	fmt.Println()
}

// handleCommand runs a slash command and reports whether the REPL should exit.
func handleCommand(ctx context.Context, input string, a *app) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit", "/q":
		fmt.Println("Goodbye!")
		return true
	case "/reset":
		if err := a.store.DeleteRoom(ctx, roomFlag); err != nil && !strings.Contains(err.Error(), "not found") {
			fmt.Printf("reset failed: %s\n\n", err)
			return false
		}
		fmt.Println("Conversation reset.")
		fmt.Println()
	case "/history":
		mems, err := a.store.RecentMemories(ctx, roomFlag, 50)
		if err != nil {
			fmt.Printf("history failed: %s\n\n", err)
			return false
		}
		for _, m := range mems {
			fmt.Printf("%s  %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), m.UserName, truncate(m.Content.Text, 200))
		}
		fmt.Println()
	case "/actions":
		for _, act := range a.rt.Actions() {
			fmt.Printf("  %s - %s\n", act.Name(), act.Description())
			fmt.Printf("    similes: %s\n", strings.Join(act.Similes(), ", "))
		}
		fmt.Println()
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /help     - Show this help")
		fmt.Println("  /actions  - List available actions")
		fmt.Println("  /reset    - Clear this room's conversation")
		fmt.Println("  /history  - Show recent messages in this room")
		fmt.Println("  /quit     - Exit")
		fmt.Println()
	default:
		fmt.Printf("Unknown command: %s (try /help)\n\n", input)
	}
	return false
}
