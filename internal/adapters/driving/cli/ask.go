package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
)

var (
	askContext []string
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Ask a question grounded in the indexed documents",
	Long: `Embeds the prompt, retrieves the most similar documents and
generates an answer grounded in them. The index is built on first use
if no persisted index exists.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringArrayVarP(&askContext, "context", "c", nil,
		"additional context as key=value (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if agentService == nil {
		return errNotConfigured
	}

	extra, err := parseContextPairs(askContext)
	if err != nil {
		return err
	}

	answer, err := agentService.Answer(cmd.Context(), args[0], extra)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	return outputAnswerText(cmd, answer)
}

// parseContextPairs converts --context key=value flags into a map.
func parseContextPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	extra := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid context pair %q, expected key=value", pair)
		}
		extra[key] = value
	}
	return extra, nil
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer *domain.Answer) error {
	cmd.Println(answer.Response)

	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, source := range answer.Sources {
			title, _ := source["title"].(string)
			if title == "" {
				title = "(untitled)"
			}
			cmd.Printf("  [%d] %s\n", i+1, title)
		}
	}
	return nil
}
