package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/floatchat/floatchat/internal/widget"
)

var (
	baseURLFlag   string
	testFetchFlag bool
	userFlag      string
	greetingFlag  string
	verboseFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Terminal harness for the floatchat widget client",
	Long: `chat drives the widget send pipeline from the terminal.

With a positional message it performs a single exchange and prints the
conversation. Without one it starts an interactive session; type 'exit',
'quit', or press Ctrl+D to end it.

Examples:
  chat --test-fetch "hello"          Round-trip through the echo service
  chat --base-url http://localhost:8000
  chat --user alice "what's up?"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel(),
		}))

		client := widget.NewClient(widget.Options{
			BaseURL:   baseURLFlag,
			TestFetch: testFetchFlag,
			UserID:    userFlag,
			Greeting:  greetingFlag,
			Logger:    logger,
		})

		if len(args) > 0 {
			if _, err := client.Send(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to send message: %w", err)
			}
			printConversation(cmd, client)
			return nil
		}

		return runInteractive(cmd, client)
	},
}

func logLevel() slog.Level {
	if verboseFlag {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

func printConversation(cmd *cobra.Command, client *widget.Client) {
	for _, msg := range client.Messages() {
		cmd.Printf("%s: %s\n", msg.Role, msg.Content)
	}
}

func runInteractive(cmd *cobra.Command, client *widget.Client) error {
	printConversation(cmd, client)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	cmd.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}

		reply, err := client.Send(cmd.Context(), line)
		if err != nil {
			// Empty lines are not worth a round trip; everything else the
			// pipeline already converted into a conversation message.
			if err != widget.ErrEmptyMessage {
				return fmt.Errorf("failed to send message: %w", err)
			}
			cmd.Print("> ")
			continue
		}

		cmd.Printf("%s: %s\n", reply.Role, reply.Content)
		cmd.Print("> ")
	}
	return scanner.Err()
}

func init() {
	rootCmd.Flags().StringVar(&baseURLFlag, "base-url", "", "backend base URL (POSTs to <base-url>/api/message)")
	rootCmd.Flags().BoolVar(&testFetchFlag, "test-fetch", false, "round-trip through the public echo service instead of a backend")
	rootCmd.Flags().StringVar(&userFlag, "user", "", "user id sent with backend requests")
	rootCmd.Flags().StringVar(&greetingFlag, "greeting", "", "override the assistant greeting")
	rootCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "log the send pipeline at debug level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
