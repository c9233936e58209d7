package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/d60-Lab/moments/internal/model"
)

func (a *app) followCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow <user-id>",
		Short: "Follow a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// 关注状态以本地列表为准，先加载
			if err := a.svc.Reload(cmd.Context()); err != nil {
				return err
			}
			if err := a.svc.Follow(cmd.Context(), model.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "following %s\n", args[0])
			return nil
		},
	}
}

func (a *app) unfollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unfollow <user-id>",
		Short: "Stop following a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Reload(cmd.Context()); err != nil {
				return err
			}
			if err := a.svc.Unfollow(cmd.Context(), model.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unfollowed %s\n", args[0])
			return nil
		},
	}
}
