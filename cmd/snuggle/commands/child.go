package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/snuggle-app/snuggle-core/internal/application/command"
	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

func childCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "child",
		Short: "Manage child profiles and measurements",
	}
	cmd.AddCommand(childAddCmd(), childListCmd(), childMeasureCmd())
	return cmd
}

func childAddCmd() *cobra.Command {
	var name, dob, gender string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a child",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			born, err := appCtx.Config.Calendar().ParseDate(dob)
			if err != nil {
				return fmt.Errorf("--dob must be YYYY-MM-DD: %w", err)
			}
			var g growth.Gender
			if gender != "" {
				if g, err = growth.ParseGender(gender); err != nil {
					return err
				}
			}

			child, err := appCtx.ChildService.RegisterChild(cmd.Context(), command.RegisterChildCommand{
				OwnerID:           user,
				Name:              name,
				DateOfBirth:       born,
				Gender:            g,
				ScheduleReminders: appCtx.ScheduleReminders(user),
			})
			if err != nil {
				return err
			}
			return emit(cmd, child, func(w io.Writer) {
				fmt.Fprintf(w, "registered %s (%s)\n", child.Name, child.ID)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "child's name")
	cmd.Flags().StringVar(&dob, "dob", "", "date of birth, YYYY-MM-DD")
	cmd.Flags().StringVar(&gender, "gender", "", "male or female (optional)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("dob")
	return cmd
}

func childListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your children",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			children, err := appCtx.Children.ListByOwner(cmd.Context(), user)
			if err != nil {
				return err
			}
			now := time.Now()
			return emit(cmd, children, func(w io.Writer) {
				for _, c := range children {
					gender := string(c.Gender)
					if gender == "" {
						gender = "-"
					}
					fmt.Fprintf(w, "%s  %-12s %-6s %2d months  %d measurements\n",
						c.ID, c.Name, gender, c.AgeInMonths(now), len(c.Measurements))
				}
			})
		},
	}
}

func childMeasureCmd() *cobra.Command {
	var (
		date                 string
		weight, height, head float64
	)
	cmd := &cobra.Command{
		Use:   "measure <child-id>",
		Short: "Record a weight, height or head circumference measurement",
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
			c := command.AddMeasurementCommand{OwnerID: user, ChildID: childID}
			if date != "" {
				if c.Date, err = appCtx.Config.Calendar().ParseDate(date); err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
			}
			flags := cmd.Flags()
			if flags.Changed("weight") {
				c.Weight = growth.Float(weight)
			}
			if flags.Changed("height") {
				c.Height = growth.Float(height)
			}
			if flags.Changed("head") {
				c.HeadCircumference = growth.Float(head)
			}

			res, err := appCtx.ChildService.AddMeasurement(cmd.Context(), c)
			if err != nil {
				return err
			}
			return emit(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "recorded at %d months\n", res.AgeMonths)
				for _, kind := range growth.MeasurementKinds {
					if p, ok := res.Percentiles[kind]; ok {
						fmt.Fprintf(w, "  %-18s P%.1f\n", kind, p)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "measurement date, YYYY-MM-DD (default today)")
	cmd.Flags().Float64Var(&weight, "weight", 0, "weight in kg")
	cmd.Flags().Float64Var(&height, "height", 0, "height in cm")
	cmd.Flags().Float64Var(&head, "head", 0, "head circumference in cm")
	return cmd
}
