package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"votum/internal/endresult/lotdecision"
	id "votum/pkg/domain"
)

var flagHistory bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <political-business-id>",
	Short: "Print the stored end result and its open lot decisions",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&flagHistory, "history", false,
		"also print the lot decision and finalization events")
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	businessID, err := id.ParsePoliticalBusinessID(args[0])
	if err != nil {
		return err
	}
	d, err := connect(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	er, err := d.endResults.Get(ctx, businessID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(er); err != nil {
		return err
	}
	if available, err := lotdecision.AvailableDecisions(er); err != nil {
		fmt.Fprintf(out, "lot decisions: %v\n", err)
	} else if err := enc.Encode(available); err != nil {
		return err
	}

	if !flagHistory {
		return nil
	}
	envs, err := d.endResults.History(ctx, businessID)
	if err != nil {
		return err
	}
	for _, env := range envs {
		fmt.Fprintf(out, "%d\t%s\t%s\ttenant=%s\t%s\n",
			env.Version, env.OccurredAt.Format(time.RFC3339), env.Type, env.Metadata.TenantID, env.Payload)
	}
	return nil
}
