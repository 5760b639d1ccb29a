package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kalambet/huddle/internal/api"
	"github.com/kalambet/huddle/internal/config"
	"github.com/kalambet/huddle/internal/engine"
	"github.com/kalambet/huddle/internal/logging"
	"github.com/kalambet/huddle/internal/personal"
	"github.com/kalambet/huddle/internal/standup"
	"github.com/kalambet/huddle/internal/team"
)

// selectModel builds an invoker from the local configuration, for commands
// that run pipelines without a server.
var selectModel = func(provider string) (*engine.Invoker, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.Log.Level, os.Stderr)
	inv, err := engine.NewRegistry(cfg.Engine()).Select(provider)
	if err != nil {
		return nil, nil, err
	}
	return inv, logger, nil
}

func readBatch(path string) (standup.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return standup.Batch{}, fmt.Errorf("opening batch: %w", err)
	}
	defer f.Close()
	return standup.DecodeBatch(f)
}

// --- team ---

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Synthesize a team insight from a YAML batch of standups",
	Long: `Synthesize a team insight from a YAML batch of standups without a server.

Example:
  huddle team --file ./standups.yaml --provider ollama`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		provider, _ := cmd.Flags().GetString("provider")
		if file == "" {
			return fmt.Errorf("--file is required")
		}

		batch, err := readBatch(file)
		if err != nil {
			return err
		}
		if len(batch.Standups) == 0 {
			return printJSON(cmd.OutOrStdout(), standup.EmptyTeamInsight())
		}

		inv, logger, err := selectModel(provider)
		if err != nil {
			return err
		}
		return runTeam(cmd.Context(), team.NewSynthesizer(inv, logger), batch, cmd.OutOrStdout())
	},
}

type synthesizer interface {
	Synthesize(ctx context.Context, records []standup.Record) (standup.TeamInsight, error)
}

func runTeam(ctx context.Context, s synthesizer, batch standup.Batch, w io.Writer) error {
	printStep("Synthesizing %d standups", len(batch.Standups))
	insight, err := s.Synthesize(ctx, batch.Standups)
	if err != nil {
		return err
	}
	return printJSON(w, insight)
}

// --- personal ---

var personalCmd = &cobra.Command{
	Use:   "personal",
	Short: "Coach each standup in a YAML batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		provider, _ := cmd.Flags().GetString("provider")
		if file == "" {
			return fmt.Errorf("--file is required")
		}

		batch, err := readBatch(file)
		if err != nil {
			return err
		}
		inv, logger, err := selectModel(provider)
		if err != nil {
			return err
		}
		return runPersonal(cmd.Context(), personal.NewAnalyzer(inv, logger), batch, cmd.OutOrStdout())
	},
}

type analyzer interface {
	Analyze(ctx context.Context, r standup.Record) (standup.PersonalInsight, error)
}

type authoredInsight struct {
	Author  string                  `json:"author"`
	Insight standup.PersonalInsight `json:"insight"`
}

func runPersonal(ctx context.Context, a analyzer, batch standup.Batch, w io.Writer) error {
	out := make([]authoredInsight, 0, len(batch.Standups))
	for _, rec := range batch.Standups {
		insight, err := a.Analyze(ctx, rec)
		if err != nil {
			return fmt.Errorf("%s: %w", rec.Author, err)
		}
		out = append(out, authoredInsight{Author: rec.Author, Insight: insight})
	}
	return printJSON(w, out)
}

func init() {
	for _, c := range []*cobra.Command{teamCmd, personalCmd} {
		c.Flags().String("file", "", "YAML batch of standups")
		c.Flags().String("provider", "", "model provider: groq, gemini or ollama (default from config)")
	}
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Post a YAML batch of standups to the running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		teamID, _ := cmd.Flags().GetString("team")
		if file == "" {
			return fmt.Errorf("--file is required")
		}

		batch, err := readBatch(file)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		n, err := importBatch(cmd.Context(), client, batch, teamID)
		if err != nil {
			return err
		}
		printSuccess("Imported %d standups", n)
		return nil
	},
}

func init() {
	importCmd.Flags().String("file", "", "YAML batch of standups")
	importCmd.Flags().String("team", "", "team ID for records without one")
}

// importBatch posts every record and reports how many were stored. A record
// that fails is reported and skipped.
func importBatch(ctx context.Context, client *apiClient, batch standup.Batch, teamID string) (int, error) {
	imported := 0
	for _, rec := range batch.Standups {
		if rec.TeamID == "" {
			rec.TeamID = teamID
		}
		if rec.TeamID == "" {
			return imported, fmt.Errorf("%s: no team; set team in the batch or pass --team", rec.Author)
		}

		resp, err := client.post(ctx, "/v1/standups", api.StandupRequest{
			TeamID:    rec.TeamID,
			UserID:    rec.UserID,
			Author:    rec.Author,
			Date:      rec.Date,
			Yesterday: rec.Yesterday,
			Today:     rec.Today,
			Blockers:  rec.Blockers,
		})
		if err != nil {
			return imported, err
		}
		var saved standup.Record
		if err := decodeJSON(resp, &saved); err != nil {
			printWarning("%s: %v", rec.Author, err)
			continue
		}
		imported++
	}
	return imported, nil
}

// --- insight ---

var insightCmd = &cobra.Command{
	Use:   "insight",
	Short: "Query insights from the running server",
}

var insightTeamCmd = &cobra.Command{
	Use:   "team <team-id>",
	Short: "Show the team insight for a day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{"teamId": {args[0]}}
		addFlagParams(cmd, q, "date", "provider")
		if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
			q.Set("refresh", "true")
		}
		var out standup.TeamInsight
		return fetchAndPrint(cmd, "/v1/insights/team?"+q.Encode(), &out)
	},
}

var insightPersonalCmd = &cobra.Command{
	Use:   "personal <standup-id>",
	Short: "Show coaching feedback for one standup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		addFlagParams(cmd, q, "provider")
		if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
			q.Set("refresh", "true")
		}
		var out standup.PersonalInsight
		return fetchAndPrint(cmd, "/v1/insights/personal/"+url.PathEscape(args[0])+"?"+q.Encode(), &out)
	},
}

var insightStreakCmd = &cobra.Command{
	Use:   "streak <team-id> <user-id>",
	Short: "Show a member's consecutive standup days",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		q := url.Values{"teamId": {args[0]}, "userId": {args[1]}}
		resp, err := client.get(cmd.Context(), "/v1/insights/streak?"+q.Encode())
		if err != nil {
			return err
		}
		var out struct {
			Streak int `json:"streak"`
		}
		if err := decodeJSON(resp, &out); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strconv.Itoa(out.Streak))
		return nil
	},
}

var insightTrendsCmd = &cobra.Command{
	Use:   "trends <team-id>",
	Short: "Show standup counts and blocker keywords over a date range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{"teamId": {args[0]}}
		addFlagParams(cmd, q, "from", "to")
		var out any
		return fetchAndPrint(cmd, "/v1/insights/trends?"+q.Encode(), &out)
	},
}

func addFlagParams(cmd *cobra.Command, q url.Values, names ...string) {
	for _, name := range names {
		if v, _ := cmd.Flags().GetString(name); v != "" {
			q.Set(name, v)
		}
	}
}

func fetchAndPrint(cmd *cobra.Command, path string, out any) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	resp, err := client.get(cmd.Context(), path)
	if err != nil {
		return err
	}
	if err := decodeJSON(resp, out); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func init() {
	insightTeamCmd.Flags().String("date", "", "day to summarize, YYYY-MM-DD (default today)")
	for _, c := range []*cobra.Command{insightTeamCmd, insightPersonalCmd} {
		c.Flags().String("provider", "", "model provider override")
		c.Flags().Bool("refresh", false, "recompute instead of serving the cached result")
	}
	insightTrendsCmd.Flags().String("from", "", "first day, YYYY-MM-DD")
	insightTrendsCmd.Flags().String("to", "", "last day, YYYY-MM-DD")
	insightTrendsCmd.MarkFlagRequired("from")
	insightTrendsCmd.MarkFlagRequired("to")

	insightCmd.AddCommand(insightTeamCmd, insightPersonalCmd, insightStreakCmd, insightTrendsCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
