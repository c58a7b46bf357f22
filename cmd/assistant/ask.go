package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aescanero/dago-node-assistant/internal/assistant"
	"github.com/aescanero/dago-node-assistant/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	askJSON    bool
	askSession string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the command line",
	Long: `Answer one question, or read questions line by line from stdin when no
argument is given. Questions read from stdin share one conversation, so
follow-up questions see the earlier turns.

Examples:
  assistant ask "How many developers are in the team?"
  assistant ask --json "What is the WAF and what are the latest news about it?"
  printf 'Who works on WAF?\nAnd how many incidents are open?\n' | assistant ask`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full result as JSON")
	askCmd.Flags().StringVar(&askSession, "session", "", "Conversation id (default: a new one)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := buildApp(cfg, session.NewMemoryStore(cfg.SessionMaxTurns), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		_, err := ask(cmd, a.service, askSession, args[0], out)
		return err
	}

	sessionID := askSession
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		answer, err := ask(cmd, a.service, sessionID, line, out)
		if err != nil {
			logger.Warn("question failed", zap.Error(err))
			continue
		}
		sessionID = answer.SessionID
	}
	return scanner.Err()
}

func ask(cmd *cobra.Command, service *assistant.Service, sessionID, query string, out io.Writer) (*assistant.Answer, error) {
	answer, err := service.Ask(cmd.Context(), sessionID, query)
	if err != nil {
		return nil, err
	}

	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return answer, enc.Encode(answer)
	}

	fmt.Fprintln(out, answer.Result.FinalMessage)
	if len(answer.Result.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for _, s := range answer.Result.Sources {
			if s.Title != "" {
				fmt.Fprintf(out, "  - [%s] %s (%s)\n", s.Kind, s.Title, s.ID)
			} else {
				fmt.Fprintf(out, "  - [%s] %s\n", s.Kind, s.ID)
			}
		}
	}
	return answer, nil
}
