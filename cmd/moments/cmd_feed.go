package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/d60-Lab/moments/internal/model"
)

const timeLayout = "2006-01-02 15:04"

func (a *app) feedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Moments from the people you follow, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Reload(cmd.Context()); err != nil {
				return err
			}
			items := a.svc.Feed()
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "nothing here yet; follow someone with `moments follow <user-id>`")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tAUTHOR\tWHEN\tIMAGES\tLIKES\tCAPTION")
			for _, it := range items {
				e := a.svc.Engagement(it.Moment.ID)
				heart := ""
				if e.Liked {
					heart = "*"
				}
				fmt.Fprintf(w, "%s\t@%s\t%s\t%d\t%d%s\t%s\n",
					it.Moment.ID, it.Author.Username, it.Moment.CreatedAt.Local().Format(timeLayout),
					len(it.Images), e.LikeCount, heart, it.Moment.Caption)
			}
			return w.Flush()
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Find other users by username or email",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Reload(cmd.Context()); err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tFOLLOWING")
			for _, p := range a.svc.Search(query) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", p.ID, p.Username, p.Email, a.svc.IsFollowing(p.ID))
			}
			return w.Flush()
		},
	}
}

func (a *app) albumCmd() *cobra.Command {
	var momentID string
	cmd := &cobra.Command{
		Use:   "album <user-id>",
		Short: "All moments of one author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Reload(cmd.Context()); err != nil {
				return err
			}
			album := a.svc.Album(model.ID(args[0]), model.ID(momentID))
			out := cmd.OutOrStdout()
			if album.Author != nil {
				fmt.Fprintf(out, "@%s: %d moments\n", album.Author.Username, len(album.Moments))
			}
			for i, m := range album.Moments {
				marker := " "
				if i == album.Index {
					marker = ">"
				}
				fmt.Fprintf(out, "%s %s  %s  %s\n", marker, m.ID, m.CreatedAt.Local().Format(timeLayout), m.Caption)
				printImages(out, album.Images[i])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&momentID, "moment", "", "moment to focus")
	return cmd
}

func (a *app) profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Your profile: moments, following and followers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Reload(cmd.Context()); err != nil {
				return err
			}
			s := a.svc.Summary()
			out := cmd.OutOrStdout()
			name := "(no profile)"
			if s.Profile != nil {
				name = "@" + s.Profile.Username
			}
			fmt.Fprintf(out, "%s  %s\n", name, s.Email)
			fmt.Fprintf(out, "moments: %d  following: %d  followers: %d\n", len(s.Moments), s.Following, s.Followers)
			for _, m := range s.Moments {
				fmt.Fprintf(out, "  %s  %s  %s\n", m.ID, m.Cover(), m.Caption)
			}
			return nil
		},
	}
}

func printImages(w io.Writer, urls model.ImageURLs) {
	if len(urls) == 0 {
		return
	}
	fmt.Fprintf(w, "    %s\n", strings.Join(urls, "\n    "))
}
