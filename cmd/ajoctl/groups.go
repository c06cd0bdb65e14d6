package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmynk/ajo/internal/models"
)

func oneGroupArg(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return usagef("expected exactly one group id, got %d arguments", len(args))
	}
	return nil
}

func (a *app) createCmd() *cobra.Command {
	var (
		amount     int64
		duration   uint64
		maxMembers uint32
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a group with the --as identity as creator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			me, err := a.identity()
			if err != nil {
				return err
			}
			id, err := a.engine.CreateGroup(cmd.Context(), me, amount, duration, maxMembers)
			if err != nil {
				return err
			}
			g, err := a.engine.GetGroup(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(g, func(w io.Writer) {
				fmt.Fprintf(w, "Created group %d\n", id)
			})
		},
	}
	cmd.Flags().Int64Var(&amount, "amount", 0, "contribution per member per cycle, in minor units")
	cmd.Flags().Uint64Var(&duration, "duration", 0, "cycle length in seconds")
	cmd.Flags().Uint32Var(&maxMembers, "max", 0, "maximum number of members")
	return cmd
}

func (a *app) joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <group-id>",
		Short: "Join a group",
		Args:  oneGroupArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			me, id, err := a.identityAndGroup(args)
			if err != nil {
				return err
			}
			if err := a.engine.JoinGroup(cmd.Context(), me, id); err != nil {
				return err
			}
			g, err := a.engine.GetGroup(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(g, func(w io.Writer) {
				fmt.Fprintf(w, "Joined group %d at position %d of %d\n", id, g.MemberCount(), g.MaxMembers)
			})
		},
	}
}

func (a *app) contributeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contribute <group-id>",
		Short: "Contribute to the current cycle",
		Args:  oneGroupArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			me, id, err := a.identityAndGroup(args)
			if err != nil {
				return err
			}
			if err := a.engine.Contribute(cmd.Context(), me, id); err != nil {
				return err
			}
			s, err := a.engine.GetGroupStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(s, func(w io.Writer) {
				fmt.Fprintf(w, "Contributed to cycle %d (%d/%d received)\n", s.CurrentCycle, s.ContributionsReceived, s.TotalMembers)
			})
		},
	}
}

func (a *app) payoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payout <group-id>",
		Short: "Pay the next recipient once every member has contributed",
		Args:  oneGroupArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGroupID(args[0])
			if err != nil {
				return err
			}
			p, err := a.engine.ExecutePayout(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(p, func(w io.Writer) {
				fmt.Fprintf(w, "Paid %d to %s for cycle %d\n", p.Amount, p.Recipient, p.Cycle)
				if p.Completed {
					fmt.Fprintf(w, "Group %d is complete\n", id)
				}
			})
		},
	}
}

func (a *app) cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <group-id>",
		Short: "Cancel a group (creator only)",
		Args:  oneGroupArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			me, id, err := a.identityAndGroup(args)
			if err != nil {
				return err
			}
			if err := a.engine.CancelGroup(cmd.Context(), me, id); err != nil {
				return err
			}
			return a.print(map[string]any{"group_id": id, "canceled": true}, func(w io.Writer) {
				fmt.Fprintf(w, "Canceled group %d\n", id)
			})
		},
	}
}

func (a *app) withdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <group-id>",
		Short: "Leave a stalled group with a penalized refund",
		Args:  oneGroupArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			me, id, err := a.identityAndGroup(args)
			if err != nil {
				return err
			}
			wd, err := a.engine.EmergencyWithdraw(cmd.Context(), me, id)
			if err != nil {
				return err
			}
			return a.print(wd, func(w io.Writer) {
				fmt.Fprintf(w, "Withdrew from group %d: refund %d, penalty %d over %d cycles\n", id, wd.Refund, wd.Penalty, wd.Cycles)
			})
		},
	}
}

func (a *app) metaCmd() *cobra.Command {
	var name, description, rules string
	cmd := &cobra.Command{
		Use:   "meta <group-id>",
		Short: "Show or replace group metadata",
		Long: `With no flags, prints the group's metadata. With any of --name,
--description or --rules, replaces the whole record; fields not given are
cleared. Only the creator may replace metadata.`,
		Args: oneGroupArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGroupID(args[0])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("name") || flags.Changed("description") || flags.Changed("rules") {
				me, err := a.identity()
				if err != nil {
					return err
				}
				var md models.GroupMetadata
				if flags.Changed("name") {
					md.Name = &name
				}
				if flags.Changed("description") {
					md.Description = &description
				}
				if flags.Changed("rules") {
					md.Rules = &rules
				}
				if err := a.engine.SetGroupMetadata(cmd.Context(), me, id, md); err != nil {
					return err
				}
			}

			md, err := a.engine.GetGroupMetadata(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(md, func(w io.Writer) {
				if md == nil {
					fmt.Fprintln(w, "No metadata")
					return
				}
				printOptional(w, "Name", md.Name)
				printOptional(w, "Description", md.Description)
				printOptional(w, "Rules", md.Rules)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "group name")
	cmd.Flags().StringVar(&description, "description", "", "group description")
	cmd.Flags().StringVar(&rules, "rules", "", "group rules")
	return cmd
}

func (a *app) identityAndGroup(args []string) (string, uint64, error) {
	me, err := a.identity()
	if err != nil {
		return "", 0, err
	}
	id, err := parseGroupID(args[0])
	if err != nil {
		return "", 0, err
	}
	return me, id, nil
}
