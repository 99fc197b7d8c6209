package main

import (
	"encoding/json"

	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/spf13/cobra"
)

func planCMD() *cobra.Command {
	var in hub.InputDescriptor
	cmd := &cobra.Command{
		Use:   "plan [idea]",
		Short: "Print the keywords and fetch plan for an idea without calling providers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return err
			}
			if len(args) == 1 {
				in.Idea = args[0]
			}
			var opts []hub.PlanOption
			if cfg.Engine.DirectReddit {
				opts = append(opts, hub.WithDirectReddit())
			}
			keywords := hub.NormalizeKeywords(in)
			plan, err := hub.BuildFetchPlan(in, keywords, opts...)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"keywords": keywords, "plan": plan})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Idea, "idea", "", "idea text")
	f.StringSliceVar(&in.TargetMarkets, "market", nil, "target market (repeatable)")
	f.StringSliceVar(&in.AudienceProfiles, "audience", nil, "audience profile (repeatable)")
	f.StringSliceVar(&in.Geos, "geo", nil, "geography (repeatable)")
	f.StringVar(&in.TimeHorizon, "horizon", "", "time horizon")
	f.StringSliceVar(&in.CompetitorHints, "competitor", nil, "known competitor (repeatable)")
	return cmd
}
