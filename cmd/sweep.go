package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fleetworks/dispatchd/app"
	"github.com/fleetworks/dispatchd/config"
)

var (
	sweepTenant string
	sweepStage  string
	sweepLimit  int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one engine stage once and print its counters",
	RunE:  sweepOnce,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepTenant, "tenant", "", "tenant to process")
	sweepCmd.Flags().StringVar(&sweepStage, "stage", "", "stage: acceptance, assignment, arrival or eta")
	sweepCmd.Flags().IntVar(&sweepLimit, "limit", 100, "maximum orders to process")
	_ = sweepCmd.MarkFlagRequired("tenant")
	_ = sweepCmd.MarkFlagRequired("stage")
	rootCmd.AddCommand(sweepCmd)
}

func sweepOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	var result any
	switch sweepStage {
	case "acceptance":
		result, err = svc.Engine.RunAcceptance(ctx, sweepTenant, sweepLimit)
	case "assignment":
		result, err = svc.Engine.RunAssignment(ctx, sweepTenant, sweepLimit)
	case "arrival":
		result, err = svc.Engine.RunArrivalDetection(ctx, sweepTenant, sweepLimit)
	case "eta":
		result, err = svc.Engine.RunETARecalc(ctx, sweepTenant, sweepLimit)
	default:
		return fmt.Errorf("unknown stage %q", sweepStage)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
