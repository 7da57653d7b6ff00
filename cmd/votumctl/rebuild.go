package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"votum/internal/endresult/models"
	id "votum/pkg/domain"
)

var flagParallel int

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute and store end results from the event store",
	RunE:  runRebuild,
}

func init() {
	rebuildCmd.Flags().StringVar(&flagBusiness, "business", "",
		"political business id; every business when empty")
	rebuildCmd.Flags().IntVar(&flagParallel, "parallel", 4,
		"political businesses rebuilt at the same time")
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	d, err := connect(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	var businessIDs []id.PoliticalBusinessID
	if flagBusiness != "" {
		businessID, err := id.ParsePoliticalBusinessID(flagBusiness)
		if err != nil {
			return err
		}
		businessIDs = append(businessIDs, businessID)
	} else {
		businesses, err := d.contests.ListBusinesses(ctx)
		if err != nil {
			return err
		}
		for _, b := range businesses {
			businessIDs = append(businessIDs, b.ID)
		}
	}

	outcomes := rebuild(ctx, d.endResults.Recompute, businessIDs, flagParallel)
	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			d.logger.ErrorContext(ctx, "rebuild failed", "political_business_id", o.businessID, "error", o.err)
			continue
		}
		printOutcome(cmd.OutOrStdout(), o)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d end results failed to rebuild", failed, len(businessIDs))
	}
	return nil
}

type outcome struct {
	businessID id.PoliticalBusinessID
	endResult  *models.EndResult
	err        error
}

type recomputeFunc func(ctx context.Context, businessID id.PoliticalBusinessID) (*models.EndResult, error)

// rebuild recomputes every business with at most parallel recomputes in
// flight. One failure does not stop the others; outcomes keep input order.
func rebuild(ctx context.Context, recompute recomputeFunc, businessIDs []id.PoliticalBusinessID, parallel int) []outcome {
	outcomes := make([]outcome, len(businessIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for i, businessID := range businessIDs {
		g.Go(func() error {
			er, err := recompute(gctx, businessID)
			outcomes[i] = outcome{businessID: businessID, endResult: er, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func printOutcome(w io.Writer, o outcome) {
	er := o.endResult
	fmt.Fprintf(w, "%s\t%d/%d done\topen lot decisions: %d\tfinalized: %t\n",
		o.businessID, er.CountOfDoneCountingCircles, er.TotalCountOfCountingCircles,
		er.OpenLotDecisions(), er.Finalized)
}
