package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cosmoos/cosmo-go/pkg/core"
	"github.com/cosmoos/cosmo-go/pkg/health"
	"github.com/cosmoos/cosmo-go/pkg/models"
	"github.com/cosmoos/cosmo-go/pkg/server"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <dimension>",
	Short: "Print a dimension snapshot as JSON",
	Long:  `Refresh one of cognitive, physiological or reflection and print the snapshot.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	dim, err := core.ParseDimension(args[0])
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	snapshot, err := client.Refresh(cmd.Context(), dim)
	if err != nil {
		return err
	}
	return printJSON(cmd, snapshot)
}

var moodCmd = &cobra.Command{
	Use:   "mood <1-5> [label]",
	Short: "Log a mood check-in",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runMood,
}

func runMood(cmd *cobra.Command, args []string) error {
	valence, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("valence must be a number between 1 and 5: %w", err)
	}
	mood := models.MoodCheckIn{Valence: valence}
	if len(args) > 1 {
		mood.Label = args[1]
	}
	mood.Note, _ = cmd.Flags().GetString("note")

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	saved, err := client.Reflection().LogMood(cmd.Context(), mood)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged mood %d (%s)\n", saved.Valence, saved.ID)
	return nil
}

var journalCmd = &cobra.Command{
	Use:   "journal <text>",
	Short: "Add a journal entry",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runJournal,
}

func runJournal(cmd *cobra.Command, args []string) error {
	entry := models.JournalEntry{Text: strings.Join(args, " ")}
	entry.Prompt, _ = cmd.Flags().GetString("prompt")
	entry.Tags, _ = cmd.Flags().GetStringSlice("tag")

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	saved, err := client.Reflection().AddJournalEntry(cmd.Context(), entry)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved journal entry %s\n", saved.ID)
	return nil
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Recompute correlation insights",
	Args:  cobra.NoArgs,
	RunE:  runInsights,
}

func runInsights(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	correlations, err := client.ComputeInsights(cmd.Context())
	if err != nil {
		return err
	}
	if len(correlations) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Not enough data yet to compute correlations.")
		return nil
	}
	for _, c := range correlations {
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-16s %+.2f  %s\n", c.MetricA, c.MetricB, c.Coefficient, c.Strength)
	}
	return nil
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Manage imported health data",
}

var healthImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import exported health samples, sleep and workouts",
	Args:  cobra.ExactArgs(1),
	RunE:  runHealthImport,
}

func runHealthImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	export, err := health.DecodeExport(f)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.ImportHealth(cmd.Context(), export)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d samples, %d sleep sessions, %d workouts\n",
		result.Samples, result.Sleep, result.Workouts)
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API and the daily insight job",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = client.Config().Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := client.NewInsightScheduler(nil)
	if err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer func() {
		if err := scheduler.Stop(); err != nil {
			client.Logger().WithError(err).Warn("scheduler shutdown failed")
		}
	}()

	return server.New(client).Run(ctx, addr)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	moodCmd.Flags().String("note", "", "Optional note")
	journalCmd.Flags().String("prompt", "", "Prompt the entry answers")
	journalCmd.Flags().StringSlice("tag", nil, "Tag (repeatable)")
	serveCmd.Flags().String("addr", "", "Listen address (default from SERVER_ADDR)")
	healthCmd.AddCommand(healthImportCmd)
}
