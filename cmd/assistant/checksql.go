package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aescanero/dago-node-assistant/internal/config"
	"github.com/aescanero/dago-node-assistant/internal/guardrail"
	"github.com/aescanero/dago-node-assistant/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var checkSQLExecute bool

// errDenied makes the command exit non-zero for rejected queries
var errDenied = errors.New("query denied")

var checkSQLCmd = &cobra.Command{
	Use:   "check-sql [query]",
	Short: "Validate a SQL query against the read-only guardrail",
	Long: `Run a query through the same guardrail the structured query capability
uses and print the verdict. The query is read from stdin when no argument
is given. With --execute an allowed query is also run against the team
database on its read-only connection.

Examples:
  assistant check-sql "SELECT COUNT(*) FROM team_members"
  assistant check-sql "DELETE FROM team_members"
  echo "SELECT name FROM products" | assistant check-sql --execute`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheckSQL,
}

func init() {
	checkSQLCmd.Flags().BoolVar(&checkSQLExecute, "execute", false, "Run the query when it is allowed")
}

func runCheckSQL(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	query, err := readQuery(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}
	verdict := guardrail.NewValidator(policy.Guardrail).Validate(query)

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	report := map[string]interface{}{"verdict": verdict}
	if !verdict.Allowed {
		report["token"] = verdict.Token
		if err := enc.Encode(report); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", errDenied, verdict.MatchedRule)
	}

	if checkSQLExecute {
		store, err := sqlite.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		rows, err := store.Query(cmd.Context(), verdict.NormalizedQuery, cfg.SQLMaxRows)
		if err != nil {
			return err
		}
		report["result"] = rows
	}
	return enc.Encode(report)
}

func readQuery(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read query: %w", err)
	}
	query := strings.TrimSpace(string(data))
	if query == "" {
		return "", fmt.Errorf("no query given")
	}
	return query, nil
}
