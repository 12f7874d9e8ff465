package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"docassist/internal/app"
	"docassist/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var demoFlag bool

// applyEnvOverrides lets the environment win over the config file, so the
// binary can be pointed at another API instance without editing config.
func applyEnvOverrides(cfg *app.Config) {
	if v := os.Getenv("DOCASSIST_API_URL"); v != "" {
		cfg.APIBaseURL = strings.TrimRight(v, "/")
	}
	if os.Getenv("DOCASSIST_DEMO") == "1" {
		cfg.DemoMode = true
	}
}

func loadConfig() (app.Config, error) {
	cfg, err := app.LoadConfig(app.DefaultConfigPath())
	if err != nil {
		return app.Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

// responderFor returns the chat/health backend the subcommands talk to:
// the real client, or the canned demo strategy.
func responderFor(cfg app.Config, demo bool) (app.Responder, app.HealthProber, *app.Client) {
	client := app.NewClient(cfg, app.NewLogger(io.Discard))
	if demo || cfg.DemoMode {
		d := app.NewDemoResponder()
		return d, d, client
	}
	return client, client, client
}

func generateCompletion(shell string) error {
	switch shell {
	case "bash":
		fmt.Println("# bash completion for docassist")
		fmt.Println("_docassist_completions() {")
		fmt.Println("    local cur")
		fmt.Println("    COMPREPLY=()")
		fmt.Println("    cur=\"${COMP_WORDS[COMP_CWORD]}\"")
		fmt.Println("    opts=\"ask upload clear status completion help --demo --version --help\"")
		fmt.Println("    if [[ $COMP_CWORD -eq 1 ]]; then")
		fmt.Println("        COMPREPLY=( $(compgen -W \"${opts}\" -- \"${cur}\") )")
		fmt.Println("    fi")
		fmt.Println("    return 0")
		fmt.Println("}")
		fmt.Println("complete -F _docassist_completions docassist")
	case "zsh":
		fmt.Println("# zsh completion for docassist")
		fmt.Println("compdef _docassist docassist")
		fmt.Println("_docassist() {")
		fmt.Println("    _arguments -C \\")
		fmt.Println("        '(-h --help)'{-h,--help}'[show help]' \\")
		fmt.Println("        '(-v --version)'{-v,--version}'[print version]' \\")
		fmt.Println("        '(-d --demo)'{-d,--demo}'[run against canned demo responses]' \\")
		fmt.Println("        '1:command:(ask upload clear status completion help)'")
		fmt.Println("}")
	case "fish":
		fmt.Println("# fish completion for docassist")
		fmt.Println("complete -c docassist -f -a 'ask upload clear status completion help'")
		fmt.Println("complete -c docassist -s h -l help -d 'Show help'")
		fmt.Println("complete -c docassist -s v -l version -d 'Print version'")
		fmt.Println("complete -c docassist -s d -l demo -d 'Use canned demo responses'")
	default:
		return fmt.Errorf("unsupported shell: %s", shell)
	}
	return nil
}

func main() {
	root := &cobra.Command{
		Use:     "docassist",
		Short:   "Chat with your PDF documents from the terminal",
		Long:    "docassist is a terminal client for a document-assistant API.\n\nUse without arguments for the interactive TUI, or with a subcommand for one-shot operations.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			demo := demoFlag || cfg.DemoMode

			application, err := app.NewApplication(cfg, demo)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			// The model registers its health callback; start monitoring after.
			model := tui.NewMainModel(application)
			application.Start(ctx)
			defer application.Shutdown()

			p := tea.NewProgram(model, tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
	root.PersistentFlags().BoolVarP(&demoFlag, "demo", "d", false, "Use canned demo responses instead of the API")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Check API connectivity and document count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			_, prober, client := responderFor(cfg, demoFlag)
			status, err := prober.Health(ctx)
			if err != nil {
				fmt.Printf("API:     %s\n", client.BaseURL())
				fmt.Printf("Status:  unreachable (%v)\n", err)
				os.Exit(1)
			}
			fmt.Printf("API:        %s\n", client.BaseURL())
			fmt.Printf("Status:     %s\n", status.Status)
			fmt.Printf("Documents:  %d\n", status.DocumentCount())
			for name, state := range status.Components {
				fmt.Printf("  %-10s%s\n", name+":", state)
			}
			return nil
		},
	}
	root.AddCommand(statusCmd)

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and print the answer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			question := ""
			if len(args) > 0 {
				question = args[0]
			} else {
				fmt.Println("Enter your question (Ctrl+D when done):")
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("error reading input: %w", err)
				}
				question = strings.TrimSpace(string(data))
			}
			if question == "" {
				return fmt.Errorf("no question provided")
			}

			responder, _, _ := responderFor(cfg, demoFlag)
			reply, _, err := responder.Chat(ctx, question, "")
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}
	root.AddCommand(askCmd)

	uploadCmd := &cobra.Command{
		Use:   "upload <files...>",
		Short: "Upload PDF documents for indexing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if demoFlag || cfg.DemoMode {
				return fmt.Errorf("uploads are disabled in demo mode")
			}
			ctx, cancel := signalContext()
			defer cancel()

			logger := app.NewLogger(io.Discard)
			client := app.NewClient(cfg, logger)

			fmt.Printf("Uploading %d file(s)...\n", len(args))
			result, err := client.Upload(ctx, args)
			if err != nil {
				return err
			}

			if result.JobID != "" {
				tracker := app.NewUploadTracker(client, result.JobID, cfg.PollInterval(), logger)
				done := make(chan app.JobSnapshot, 1)
				tracker.OnUpdate(func(snap app.JobSnapshot) {
					fmt.Printf("\rProcessing... %3.0f%%", snap.Overall.Percent)
				})
				tracker.OnComplete(func(snap app.JobSnapshot) { done <- snap })
				tracker.Start(ctx)

				select {
				case snap := <-done:
					fmt.Println()
					if snap.Status == app.JobFailed {
						if snap.Error != "" {
							return fmt.Errorf("ingestion failed: %s", snap.Error)
						}
						return fmt.Errorf("ingestion failed")
					}
				case <-ctx.Done():
					tracker.Stop()
					fmt.Println()
					return ctx.Err()
				}
			}

			if result.Message != "" {
				fmt.Println(result.Message)
			}
			fmt.Printf("Done. %d document(s) indexed.\n", result.TotalDocuments)
			return nil
		},
	}
	root.AddCommand(uploadCmd)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all documents from the remote collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if demoFlag || cfg.DemoMode {
				return fmt.Errorf("document management is disabled in demo mode")
			}
			ctx, cancel := signalContext()
			defer cancel()

			client := app.NewClient(cfg, app.NewLogger(io.Discard))
			if err := client.ClearDocuments(ctx); err != nil {
				return err
			}
			fmt.Println("All documents cleared.")
			return nil
		},
	}
	root.AddCommand(clearCmd)

	completionCmd := &cobra.Command{
		Use:   "completion [shell]",
		Short: "Generate shell completion",
		Long:  "Generate shell completion script for docassist.\n\nExamples:\n  - docassist completion bash >> ~/.bashrc\n  - docassist completion zsh > ~/.zsh/completion/_docassist\n  - docassist completion fish > ~/.config/fish/completions/docassist.fish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateCompletion(args[0])
		},
	}
	root.AddCommand(completionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
