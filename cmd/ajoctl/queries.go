package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <group-id>",
		Short: "Show a group record",
		Args:  oneGroupArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGroupID(args[0])
			if err != nil {
				return err
			}
			g, err := a.engine.GetGroup(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(g, func(w io.Writer) {
				fmt.Fprintf(w, "Group %d\n", g.ID)
				fmt.Fprintf(w, "  Creator:      %s\n", g.Creator)
				fmt.Fprintf(w, "  Contribution: %d every %ds\n", g.ContributionAmount, g.CycleDuration)
				fmt.Fprintf(w, "  Members:      %d/%d\n", g.MemberCount(), g.MaxMembers)
				fmt.Fprintf(w, "  Cycle:        %d\n", g.CurrentCycle)
				fmt.Fprintf(w, "  Complete:     %t\n", g.IsComplete)
			})
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			groups, err := a.engine.ListGroups(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(groups, func(w io.Writer) {
				if len(groups) == 0 {
					fmt.Fprintln(w, "No groups")
					return
				}
				for _, g := range groups {
					state := "open"
					if g.IsComplete {
						state = "complete"
					}
					fmt.Fprintf(w, "%d\t%d/%d members\tcycle %d\t%s\n", g.ID, g.MemberCount(), g.MaxMembers, g.CurrentCycle, state)
				}
			})
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <group-id>",
		Short: "Show the current cycle",
		Args:  oneGroupArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGroupID(args[0])
			if err != nil {
				return err
			}
			s, err := a.engine.GetGroupStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(s, func(w io.Writer) {
				fmt.Fprintf(w, "Group %d, cycle %d\n", s.GroupID, s.CurrentCycle)
				if s.IsComplete {
					fmt.Fprintln(w, "  Complete")
					return
				}
				fmt.Fprintf(w, "  Next recipient: %s\n", s.NextRecipient)
				fmt.Fprintf(w, "  Contributions:  %d/%d\n", s.ContributionsReceived, s.TotalMembers)
				if len(s.PendingContributors) > 0 {
					fmt.Fprintf(w, "  Waiting on:     %s\n", strings.Join(s.PendingContributors, ", "))
				}
				fmt.Fprintf(w, "  Window:         %d to %d (active: %t)\n", s.CycleStartTime, s.CycleEndTime, s.IsCycleActive)
			})
		},
	}
}

func (a *app) membersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members <group-id>",
		Short: "List members in payout order",
		Args:  oneGroupArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGroupID(args[0])
			if err != nil {
				return err
			}
			members, err := a.engine.ListMembers(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(members, func(w io.Writer) {
				for i, m := range members {
					fmt.Fprintf(w, "%d\t%s\n", i+1, m)
				}
			})
		},
	}
}

func (a *app) contributionsCmd() *cobra.Command {
	var cycle uint32
	cmd := &cobra.Command{
		Use:   "contributions <group-id>",
		Short: "Show who has paid in a cycle",
		Args:  oneGroupArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGroupID(args[0])
			if err != nil {
				return err
			}
			if cycle == 0 {
				g, err := a.engine.GetGroup(cmd.Context(), id)
				if err != nil {
					return err
				}
				cycle = g.CurrentCycle
			}
			paid, err := a.engine.GetContributionStatus(cmd.Context(), id, cycle)
			if err != nil {
				return err
			}
			return a.print(paid, func(w io.Writer) {
				for _, c := range paid {
					mark := " "
					if c.Paid {
						mark = "x"
					}
					fmt.Fprintf(w, "[%s] %s\n", mark, c.Member)
				}
			})
		},
	}
	cmd.Flags().Uint32Var(&cycle, "cycle", 0, "cycle to inspect (default: current)")
	return cmd
}

func (a *app) eligibleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eligible <group-id> [member]",
		Short: "Check whether a member may withdraw now",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return usagef("expected a group id and an optional member")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGroupID(args[0])
			if err != nil {
				return err
			}
			member := a.as
			if len(args) == 2 {
				member = args[1]
			}
			if member == "" {
				return usagef("give a member or --as")
			}
			ok, err := a.engine.EligibleForWithdrawal(cmd.Context(), id, member)
			if err != nil {
				return err
			}
			return a.print(map[string]any{"group_id": id, "member": member, "eligible": ok}, func(w io.Writer) {
				fmt.Fprintf(w, "%s eligible to withdraw from group %d: %t\n", member, id, ok)
			})
		},
	}
}
