package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"procwatch/internal/domain"
)

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Run every detector, replace flags, and recompute risk scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.analyzer.Run(cmd.Context())
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			if err := table.Append([]string{"Detector", "Flags"}); err != nil {
				return err
			}
			names := make([]string, 0, len(report.DetectorCounts))
			for name := range report.DetectorCounts {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if err := table.Append([]string{name, strconv.Itoa(report.DetectorCounts[name])}); err != nil {
					return err
				}
			}
			if err := table.Render(); err != nil {
				return err
			}

			fmt.Printf("run %s: %d flags across %d tenders in %s\n",
				report.RunID, report.FlagCount, report.TendersScored, report.Duration.Round(time.Millisecond))
			if len(report.FailedDetectors) > 0 {
				a.log.Warn("some detectors failed", zap.Strings("detectors", report.FailedDetectors))
			}
			return nil
		},
	}
}

func newTenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tender <id>",
		Short: "Show the risk score and flags for one tender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			score, err := a.analyzer.TenderRisk(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("tender %s: CRI %d (%s), %d flags\n",
				score.TenderID, score.CRI, score.Level, score.FlagCount)

			table := tablewriter.NewWriter(os.Stdout)
			if err := table.Append([]string{"Type", "Severity", "Score", "Description"}); err != nil {
				return err
			}
			for _, f := range score.Flags {
				row := []string{string(f.Type), string(f.Severity),
					strconv.FormatFloat(f.Score, 'f', 0, 64), f.Description}
				if err := table.Append(row); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
}

func newFlaggedCmd() *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "flagged [min_score]",
		Short: "List tenders scoring at or above a threshold",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minScore := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 0 || n > 100 {
					return fmt.Errorf("min_score must be an integer in [0,100]")
				}
				minScore = n
			}

			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			scores, err := a.analyzer.Flagged(cmd.Context(), minScore, domain.RiskLevel(level))
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			if err := table.Append([]string{"Tender", "CRI", "Level", "Flags"}); err != nil {
				return err
			}
			for _, s := range scores {
				row := []string{s.TenderID, strconv.Itoa(s.CRI), string(s.Level), strconv.Itoa(s.FlagCount)}
				if err := table.Append(row); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "filter by risk level (minimal|low|medium|high|critical)")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate flag and score counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.analyzer.Stats(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("%d flags across %d scored tenders\n", stats.TotalFlags, stats.TotalTenders)

			table := tablewriter.NewWriter(os.Stdout)
			if err := table.Append([]string{"Flag Type", "Count"}); err != nil {
				return err
			}
			for _, t := range domain.FlagTypes {
				if n := stats.ByType[t]; n > 0 {
					if err := table.Append([]string{string(t), strconv.Itoa(n)}); err != nil {
						return err
					}
				}
			}
			if err := table.Render(); err != nil {
				return err
			}

			sevTable := tablewriter.NewWriter(os.Stdout)
			if err := sevTable.Append([]string{"Severity", "Count"}); err != nil {
				return err
			}
			for _, sev := range []domain.Severity{domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow} {
				if err := sevTable.Append([]string{string(sev), strconv.Itoa(stats.BySeverity[sev])}); err != nil {
					return err
				}
			}
			return sevTable.Render()
		},
	}
}
