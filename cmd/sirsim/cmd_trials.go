package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/netsir/internal/job"
)

func newTrialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trials",
		Short: "Run independent trials and print each final outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			trials, _ := cmd.Flags().GetInt("trials")
			workers, _ := cmd.Flags().GetInt("workers")
			jsonOut, _ := cmd.Flags().GetBool("json")
			if trials < 1 {
				return fmt.Errorf("--trials must be at least 1")
			}
			if workers < 1 {
				workers = runtime.NumCPU()
			}

			cfg, err := experimentConfig(cmd, trials, workers)
			if err != nil {
				return err
			}
			eng, stop, err := startEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer stop()

			submitted, err := eng.SubmitBatch(cmd.Context(), cliExperiment)
			if err != nil {
				return err
			}

			ticker := time.NewTicker(20 * time.Millisecond)
			defer ticker.Stop()
			var j *job.Job
			for {
				j, err = eng.Job(cmd.Context(), submitted.ID)
				if err != nil {
					return err
				}
				if j.Status == job.StatusDone || j.Status == job.StatusFailed {
					break
				}
				select {
				case <-ticker.C:
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(j)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TRIAL\tOUTCOME\tFINAL_R\tEND_TIME\tINFECTIONS\tERROR")
			for _, t := range j.Results {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%.4g\t%d\t%s\n", t.Trial, t.Outcome, t.R, t.EndTime, t.Infections, t.Error)
			}
			return tw.Flush()
		},
	}
	addExperimentFlags(cmd)
	cmd.Flags().Int("trials", 100, "Number of independent trials")
	cmd.Flags().Int("workers", 0, "Concurrent workers (default: number of CPUs)")
	return cmd
}
