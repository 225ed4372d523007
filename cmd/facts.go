package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abhisek/geoquiz/internal/knowledge"
)

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Fetch and print raw facts and decoy labels from the endpoint",
	RunE:  runFacts,
}

func init() {
	factsCmd.Flags().Int("count", 16, "Facts to request")
	factsCmd.Flags().Int("decoys", 0, "Decoy labels to request (0 skips the decoy query)")
}

func runFacts(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	decoys, _ := cmd.Flags().GetInt("decoys")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closer, err := setupLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	client := knowledge.New(cfg.Knowledge, knowledge.WithLogger(log))

	facts, err := client.FetchFacts(ctx, count)
	if err != nil {
		return fmt.Errorf("fetch facts: %w", err)
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNTRY\tCAPITAL\tPOPULATION\tURI")
	for _, f := range facts {
		pop := "-"
		if f.Population != nil {
			pop = humanize.Comma(*f.Population)
		}
		capital := f.RelatedLabel
		if capital == "" {
			capital = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.SubjectLabel, capital, pop, f.SubjectURI)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d facts\n", len(facts))

	if decoys <= 0 {
		return nil
	}
	labels, err := client.FetchDecoyLabels(ctx, decoys)
	if err != nil {
		return fmt.Errorf("fetch decoy labels: %w", err)
	}
	fmt.Fprintf(out, "\n%d decoy labels:\n", len(labels))
	for _, l := range labels {
		fmt.Fprintf(out, "  %s\n", l)
	}
	return nil
}
