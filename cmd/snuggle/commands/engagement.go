package commands

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/snuggle-app/snuggle-core/internal/application/command"
	"github.com/snuggle-app/snuggle-core/internal/application/eventhandler"
	"github.com/snuggle-app/snuggle-core/internal/domain/engagement"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// engagementView is the JSON shape of an engagement command.
type engagementView struct {
	StreakDays   int                       `json:"streak_days"`
	Level        engagement.Level          `json:"level"`
	Points       int                       `json:"points"`
	TotalPoints  int                       `json:"total_points"`
	Unlocked     []engagement.Achievement  `json:"unlocked,omitempty"`
	Content      *engagement.DailyContent  `json:"content,omitempty"`
	Celebrations []eventhandler.Celebration `json:"celebrations,omitempty"`
}

func newEngagementView(res *command.EngagementResult, celebrations []eventhandler.Celebration) engagementView {
	v := engagementView{
		StreakDays:   res.State.StreakDays,
		Level:        res.Level,
		Points:       res.State.Points,
		TotalPoints:  res.State.TotalPoints,
		Unlocked:     res.Unlocked,
		Celebrations: celebrations,
	}
	if res.AppOpen != nil {
		v.Content = res.AppOpen.Content
	}
	return v
}

// parseAt reads an RFC3339 --at flag. Empty means now.
func parseAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at must be RFC3339: %w", err)
	}
	return t, nil
}

func writeStatus(w io.Writer, res *command.EngagementResult) {
	fmt.Fprintf(w, "streak %d day(s), level %d %s, %d/%d points\n",
		res.State.StreakDays, res.Level.Number, res.Level.Title,
		res.State.Points, res.Level.PointsRequiredForNext)
}

func openCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Record an app open and update the daily streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			ts, err := parseAt(at)
			if err != nil {
				return err
			}
			res, err := appCtx.EngagementService.RecordAppOpen(cmd.Context(), command.RecordAppOpenCommand{
				UserID:    user,
				Timestamp: ts,
			})
			if err != nil {
				return err
			}
			celebrations := drainCelebrations(user)
			return emit(cmd, newEngagementView(res, celebrations), func(w io.Writer) {
				if o := res.AppOpen; o != nil && o.StreakBroken {
					fmt.Fprintf(w, "streak of %d ended after %d missed day(s)\n", o.PreviousStreak, o.MissedDays)
				}
				writeStatus(w, res)
				if res.AppOpen != nil && res.AppOpen.Content != nil {
					for _, tip := range res.AppOpen.Content.Tips {
						fmt.Fprintf(w, "tip: %s\n", tip.Content)
					}
					for _, c := range res.AppOpen.Content.Challenges {
						fmt.Fprintf(w, "challenge: %s (%d/%d)\n", c.Title, c.Progress, c.Target)
					}
				}
				writeCelebrations(w, celebrations)
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "open time, RFC3339 (default now)")
	return cmd
}

func momentCmd() *cobra.Command {
	var childID, notes, at string
	cmd := &cobra.Command{
		Use:   "moment <type>",
		Short: "Record a special moment such as first_smile",
		Long:  "Record a special moment. Known types: first_smile, first_laugh, first_word, first_step, first_tooth, first_haircut, first_food.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			kind, err := engagement.ParseMomentType(args[0])
			if err != nil {
				return err
			}
			c := command.RecordSpecialMomentCommand{UserID: user, Type: kind, Notes: notes}
			if childID != "" {
				if c.ChildID, err = shared.ParseChildID(childID); err != nil {
					return err
				}
			}
			if c.Timestamp, err = parseAt(at); err != nil {
				return err
			}

			res, err := appCtx.EngagementService.RecordSpecialMoment(cmd.Context(), c)
			if err != nil {
				return err
			}
			celebrations := drainCelebrations(user)
			return emit(cmd, newEngagementView(res, celebrations), func(w io.Writer) {
				fmt.Fprintf(w, "recorded %s, %d moment(s) so far\n", kind, res.State.MomentsRecorded)
				writeStatus(w, res)
				writeCelebrations(w, celebrations)
			})
		},
	}
	cmd.Flags().StringVar(&childID, "child", "", "child ID")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&at, "at", "", "moment time, RFC3339 (default now)")
	return cmd
}

func awardCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "award <points>",
		Short: "Grant points outside of achievements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			points, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("points %q is not a whole number", args[0])
			}
			res, err := appCtx.EngagementService.AwardPoints(cmd.Context(), command.AwardPointsCommand{
				UserID: user,
				Points: points,
				Reason: reason,
			})
			if err != nil {
				return err
			}
			celebrations := drainCelebrations(user)
			return emit(cmd, newEngagementView(res, celebrations), func(w io.Writer) {
				if a := res.Award; a != nil && a.LeveledUp {
					fmt.Fprintf(w, "level %d -> %d\n", a.From.Number, a.To.Number)
				}
				writeStatus(w, res)
				writeCelebrations(w, celebrations)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual", "why the points were granted")
	return cmd
}

func photoCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "photo <child-id>",
		Short: "Record this month's photo of a child",
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
			ts, err := parseAt(at)
			if err != nil {
				return err
			}
			res, err := appCtx.EngagementService.RecordMonthlyPhoto(cmd.Context(), command.RecordMonthlyPhotoCommand{
				UserID:    user,
				ChildID:   childID,
				Timestamp: ts,
			})
			if err != nil {
				return err
			}
			celebrations := drainCelebrations(user)
			return emit(cmd, newEngagementView(res, celebrations), func(w io.Writer) {
				if p := res.Photo; p != nil {
					switch {
					case p.Unlocked != nil:
						fmt.Fprintf(w, "month %d photo saved\n", p.AgeMonths)
					default:
						fmt.Fprintf(w, "photo saved at %d months, no badge\n", p.AgeMonths)
					}
					if p.Reminder != nil {
						fmt.Fprintf(w, "next reminder on %s\n", p.Reminder.TargetDate.Format("2006-01-02"))
					}
				}
				writeStatus(w, res)
				writeCelebrations(w, celebrations)
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "photo time, RFC3339 (default now)")
	return cmd
}

func summaryCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show streak, level and achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			dto, err := appCtx.Summary.Handle(cmd.Context(), user)
			if err != nil {
				return err
			}
			return emit(cmd, dto, func(w io.Writer) {
				fmt.Fprintf(w, "streak %d day(s), best %d", dto.StreakDays, dto.BestStreak)
				if dto.StreakDays > 0 {
					fmt.Fprintf(w, ", open within %d day(s) to keep it", dto.DaysUntilStreakBreaks)
				}
				fmt.Fprintln(w)
				fmt.Fprintf(w, "level %d %s, %d/%d points (%.0f%%), %d total\n",
					dto.Level.Number, dto.Level.Title, dto.Points, dto.Level.PointsRequiredForNext,
					dto.LevelProgress*100, dto.TotalPoints)
				fmt.Fprintf(w, "%d achievement(s) unlocked, %d moment(s) recorded\n", dto.UnlockedCount, dto.MomentsRecorded)
				for _, a := range dto.Achievements {
					if !a.IsUnlocked && !all {
						continue
					}
					mark := " "
					if a.IsUnlocked {
						mark = "x"
					}
					fmt.Fprintf(w, "  [%s] %s %s\n", mark, a.Icon, a.Title)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list locked achievements too")
	return cmd
}
