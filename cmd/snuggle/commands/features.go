package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/snuggle-app/snuggle-core/config"
)

func featuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Show feature flags as they apply to the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			type row struct {
				Name           string `json:"name"`
				Description    string `json:"description"`
				RolloutPercent int    `json:"rollout_percent"`
				Enabled        bool   `json:"enabled"`
			}
			features := appCtx.Config.Features.GetAllFeatures()
			rows := make([]row, 0, len(features))
			for _, f := range features {
				rows = append(rows, row{
					Name:           f.Name,
					Description:    f.Description,
					RolloutPercent: f.RolloutPercent,
					Enabled:        appCtx.Config.Features.IsEnabled(f.Name, config.ForUser(user.String())),
				})
			}
			return emit(cmd, rows, func(w io.Writer) {
				for _, r := range rows {
					state := "off"
					if r.Enabled {
						state = "on"
					}
					fmt.Fprintf(w, "%-26s %-3s %3d%%  %s\n", r.Name, state, r.RolloutPercent, r.Description)
				}
			})
		},
	}
}
