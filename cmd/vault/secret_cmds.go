package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/and161185/localvault/internal/client"
	"github.com/and161185/localvault/internal/model"
	"github.com/and161185/localvault/internal/ui"
)

// secretView is the JSON shape of list output.
type secretView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	FilePath  string    `json:"file_path,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toView(s model.Secret, _ int) secretView {
	return secretView{
		ID:        s.ID,
		Name:      s.Name,
		Category:  string(s.Category),
		FilePath:  lo.FromPtr(s.FilePath),
		Notes:     lo.FromPtr(s.Notes),
		Active:    s.IsActive,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List secrets (content is never shown)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				secrets, err := c.List(ctx)
				if err != nil {
					return err
				}
				views := lo.Map(secrets, toView)
				if asJSON {
					enc := json.NewEncoder(a.out)
					enc.SetIndent("", "  ")
					return enc.Encode(views)
				}
				if len(views) == 0 {
					a.printf("No secrets\n")
					return nil
				}
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				_, _ = tw.Write([]byte("ID\tNAME\tCATEGORY\tSTATE\tPATH\n"))
				for _, v := range views {
					state := "inactive"
					if v.Active {
						state = "active"
					}
					_, _ = tw.Write([]byte(strings.Join([]string{v.ID, v.Name, v.Category, state, v.FilePath}, "\t") + "\n"))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// secretFlags are shared by add and update.
type secretFlags struct {
	name, category, from, path, notes string
}

func (f *secretFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&f.category, "category", "t", "", "one of: "+categoryList())
	cmd.Flags().StringVarP(&f.from, "from", "f", "", `read content from file ("-" for stdin)`)
	cmd.Flags().StringVarP(&f.path, "path", "p", "", "file the secret is written to on activate, ~/ allowed")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
}

func categoryList() string {
	return strings.Join(lo.Map(model.Categories, func(c model.Category, _ int) string { return string(c) }), ", ")
}

func newAddCmd(a *app) *cobra.Command {
	var f secretFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := readAll(f.from, a.in)
			if err != nil {
				return err
			}
			in := model.NewSecret{
				Name:     f.name,
				Category: f.category,
				Content:  content,
				FilePath: lo.EmptyableToPtr(f.path),
				Notes:    lo.EmptyableToPtr(f.notes),
			}
			return a.withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				id, err := c.Add(ctx, in)
				if err != nil {
					return err
				}
				a.printf("%s Added %s %s\n", ui.OK(), ui.Highlight.Sprint(f.name), ui.Muted.Sprint(id))
				return nil
			})
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var f secretFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a secret; an empty --path or --notes clears it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd model.SecretUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				upd.Name = &f.name
			}
			if flags.Changed("category") {
				upd.Category = &f.category
			}
			if flags.Changed("path") {
				upd.FilePath = &f.path
			}
			if flags.Changed("notes") {
				upd.Notes = &f.notes
			}
			if flags.Changed("from") {
				content, err := readAll(f.from, a.in)
				if err != nil {
					return err
				}
				upd.Content = content
			}
			if upd.Empty() {
				return errors.New("nothing to update")
			}
			return a.withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				if err := c.Update(ctx, args[0], upd); err != nil {
					return err
				}
				a.printf("%s Updated %s\n", ui.OK(), ui.Muted.Sprint(args[0]))
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

// idCmd builds a command that applies call to a single secret id.
func idCmd(a *app, use, short, done string, call func(*client.Client, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				if err := call(c, ctx, args[0]); err != nil {
					return err
				}
				a.printf("%s %s %s\n", ui.OK(), done, ui.Muted.Sprint(args[0]))
				return nil
			})
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	cmd := idCmd(a, "rm", "Delete a secret, erasing its file if active", "Deleted", (*client.Client).Delete)
	cmd.Aliases = []string{"delete"}
	return cmd
}

func newActivateCmd(a *app) *cobra.Command {
	return idCmd(a, "activate", "Write a secret to its file path", "Activated", (*client.Client).Activate)
}

func newDeactivateCmd(a *app) *cobra.Command {
	return idCmd(a, "deactivate", "Erase the file of an activated secret", "Deactivated", (*client.Client).Deactivate)
}

func newDeactivateAllCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate-all",
		Short: "Erase the files of every activated secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				n, err := c.DeactivateAll(ctx)
				if err != nil {
					return err
				}
				a.printf("%s Deactivated %d secret(s)\n", ui.OK(), n)
				return nil
			})
		},
	}
}
