package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snuggle-app/snuggle-core/internal/application/query"
	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// percentile <kind> <value>: place one value on the reference bands.
func percentileCmd() *cobra.Command {
	var (
		ageMonths int
		gender    string
		strict    bool
	)
	cmd := &cobra.Command{
		Use:   "percentile <weight|height|head> <value>",
		Short: "Compute the growth percentile of a single measurement",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := growth.ParseMeasurementKind(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("value %q is not a number", args[1])
			}
			g, err := growth.ParseGender(gender)
			if err != nil {
				return err
			}

			if !strict && !appCtx.Config.Growth.Strict {
				p := appCtx.Engine.ComputePercentile(value, ageMonths, g, kind)
				return emit(cmd, map[string]any{"kind": kind, "age_months": ageMonths, "percentile": p}, func(w io.Writer) {
					fmt.Fprintf(w, "%s %.2f %s at %d months: P%.1f\n", kind, value, kind.Unit(), ageMonths, p)
				})
			}

			ev, err := appCtx.Engine.Evaluate(value, ageMonths, g, kind)
			if err != nil {
				return err
			}
			return emit(cmd, ev, func(w io.Writer) {
				fmt.Fprintf(w, "%s %.2f %s at %d months: P%.1f (%s)", kind, value, kind.Unit(), ageMonths, ev.Percentile, ev.Position)
				if ev.Fallback {
					fmt.Fprint(w, " using the male reference")
				}
				fmt.Fprintln(w)
			})
		},
	}
	cmd.Flags().IntVar(&ageMonths, "age", 0, "age in whole months")
	cmd.Flags().StringVar(&gender, "gender", "male", "male or female")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail instead of answering the median")
	return cmd
}

// curves <kind>: print the reference lines behind a chart.
func curvesCmd() *cobra.Command {
	var gender string
	cmd := &cobra.Command{
		Use:   "curves <weight|height|head>",
		Short: "Print the reference percentile curves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			kind, err := growth.ParseMeasurementKind(args[0])
			if err != nil {
				return err
			}
			g, err := growth.ParseGender(gender)
			if err != nil {
				return err
			}
			dto, err := appCtx.Growth(user).ReferenceCurves(query.GetReferenceCurvesQuery{Kind: kind, Gender: g})
			if err != nil {
				return err
			}
			return emit(cmd, dto, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s, %s)", dto.Kind, dto.Gender, dto.Unit)
				if dto.Fallback {
					fmt.Fprint(w, " from the male reference")
				}
				fmt.Fprintln(w)
				for _, c := range dto.Curves {
					points := make([]string, 0, len(c.Points))
					for _, p := range c.Points {
						points = append(points, fmt.Sprintf("%dm=%.1f", p.AgeMonths, p.Value))
					}
					fmt.Fprintf(w, "  P%-3d %s\n", c.Percentile, strings.Join(points, " "))
				}
			})
		},
	}
	cmd.Flags().StringVar(&gender, "gender", "male", "male or female")
	return cmd
}

// history <child-id>: the percentile series of a child.
func historyCmd() *cobra.Command {
	var kindName string
	cmd := &cobra.Command{
		Use:   "history <child-id>",
		Short: "Show a child's percentile history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			childID, err := shared.ParseChildID(args[0])
			if err != nil {
				return err
			}
			kind, err := growth.ParseMeasurementKind(kindName)
			if err != nil {
				return err
			}
			dto, err := appCtx.Growth(user).PercentileHistory(cmd.Context(), query.GetPercentileHistoryQuery{
				OwnerID: user,
				ChildID: childID,
				Kind:    kind,
			})
			if err != nil {
				return err
			}
			return emit(cmd, dto, func(w io.Writer) {
				if len(dto.Points) == 0 {
					fmt.Fprintf(w, "no %s measurements\n", dto.Kind)
					return
				}
				for _, p := range dto.Points {
					fmt.Fprintf(w, "%s  %2dm  %6.2f %s  P%.1f", p.Date.Format("2006-01-02"), p.AgeMonths, p.Value, dto.Unit, p.Percentile)
					if p.Note != "" {
						fmt.Fprintf(w, "  (%s)", p.Note)
					}
					fmt.Fprintln(w)
				}
			})
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "weight", "weight, height or head")
	return cmd
}
