package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/internal/service"
)

func (a *app) likeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <moment-id>",
		Short: "Like a moment, or remove your like",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Reload(cmd.Context()); err != nil {
				return err
			}
			id := model.ID(args[0])
			liked, err := a.svc.ToggleLike(cmd.Context(), id)
			if err != nil {
				return err
			}
			verb := "unliked"
			if liked {
				verb = "liked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d likes)\n", verb, id, a.svc.Engagement(id).LikeCount)
			return nil
		},
	}
}

func (a *app) postCmd() *cobra.Command {
	var caption string
	var files []string
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Upload images and publish a moment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			images := make([]service.Image, 0, len(files))
			for _, name := range files {
				f, err := os.Open(name)
				if err != nil {
					return err
				}
				defer f.Close()
				ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
				images = append(images, service.Image{Name: filepath.Base(name), ContentType: ct, Body: f})
			}
			m, err := a.svc.PostMoment(cmd.Context(), caption, images)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "posted %s with %d images\n", m.ID, len(m.Images()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&caption, "caption", "m", "", "caption")
	cmd.Flags().StringArrayVarP(&files, "image", "i", nil, "image file, repeatable")
	return cmd
}

func (a *app) commentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <moment-id> <text>...",
		Short: "Comment on a moment",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// 加载 profiles，评论列表才能显示作者名
			if err := a.svc.Reload(cmd.Context()); err != nil {
				return err
			}
			id := model.ID(args[0])
			if _, err := a.svc.AddComment(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			a.printComments(cmd, id)
			return nil
		},
	}
}

func (a *app) commentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comments <moment-id>",
		Short: "Show the comments on a moment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Reload(cmd.Context()); err != nil {
				return err
			}
			id := model.ID(args[0])
			a.svc.LoadComments(cmd.Context(), id)
			a.printComments(cmd, id)
			return nil
		},
	}
}

func (a *app) printComments(cmd *cobra.Command, id model.ID) {
	out := cmd.OutOrStdout()
	loaded, list := a.svc.Comments()
	if loaded != id {
		fmt.Fprintln(out, "comments unavailable")
		return
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "no comments yet")
		return
	}
	for _, c := range list {
		name := c.Username
		if name == "" {
			name = c.UserID.String()
		}
		fmt.Fprintf(out, "%s  @%s: %s\n", c.CreatedAt.Local().Format(timeLayout), name, c.Text)
	}
}
