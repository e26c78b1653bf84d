package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/and161185/localvault/internal/client"
	"github.com/and161185/localvault/internal/model"
	"github.com/and161185/localvault/internal/ui"
)

var errRejected = errors.New("access denied")

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the vault exists and is unlocked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				st, err := c.Status(ctx)
				if err != nil {
					return err
				}
				switch {
				case !st.Exists:
					a.printf("vault: %s %s\n", ui.Warning.Sprint("not initialized"), ui.Muted.Sprint("run vault init"))
				case st.Unlocked:
					a.printf("vault: %s\n", ui.Success.Sprint("unlocked"))
				default:
					a.printf("vault: %s\n", ui.Info.Sprint("locked"))
				}
				return nil
			})
		},
	}
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new vault protected by a master password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := newPrompter(a.in, a.errOut).newSecret("Master password: ", "Repeat password: ")
			if err != nil {
				return err
			}
			return a.withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				var res model.UnlockResult
				err := a.progress("Creating vault...", func() error {
					var err error
					res, err = c.Create(ctx, pwd)
					return err
				})
				if err != nil {
					return err
				}
				if err := saveToken(res.Token, res.ExpiresAt); err != nil {
					return err
				}
				a.printf("%s Vault created\n\n", ui.OK())
				a.printf("Recovery phrase:\n\n    %s\n\n", ui.Secret.Sprint(res.RecoveryPhrase))
				a.printf("%s Store it offline. It is shown only once and is the only way in without the master password.\n", ui.Warn())
				return nil
			})
		},
	}
}

func newUnlockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Unlock the vault with the master password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := newPrompter(a.in, a.errOut).secret("Master password: ")
			if err != nil {
				return err
			}
			return a.unlockWith(cmd.Context(), "Unlocking...", func(ctx context.Context, c *client.Client) (model.UnlockResult, error) {
				return c.Login(ctx, pwd)
			})
		},
	}
}

func newRecoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Unlock the vault with the recovery phrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			phrase, err := newPrompter(a.in, a.errOut).secret("Recovery phrase: ")
			if err != nil {
				return err
			}
			return a.unlockWith(cmd.Context(), "Recovering...", func(ctx context.Context, c *client.Client) (model.UnlockResult, error) {
				return c.Recover(ctx, phrase)
			})
		},
	}
}

func (a *app) unlockWith(ctx context.Context, msg string, call func(context.Context, *client.Client) (model.UnlockResult, error)) error {
	return a.withClient(ctx, func(ctx context.Context, c *client.Client) error {
		var res model.UnlockResult
		err := a.progress(msg, func() error {
			var err error
			res, err = call(ctx, c)
			return err
		})
		if err != nil {
			return err
		}
		if !res.OK {
			return errRejected
		}
		if err := saveToken(res.Token, res.ExpiresAt); err != nil {
			return err
		}
		a.printf("%s Vault unlocked %s\n", ui.OK(), ui.Muted.Sprintf("session until %s", res.ExpiresAt.Local().Format("15:04:05")))
		return nil
	})
}

func newLockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Lock the vault and erase every activated file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				return c.Lock(ctx)
			})
			if err != nil {
				return err
			}
			if err := clearToken(); err != nil {
				return err
			}
			a.printf("%s Vault locked\n", ui.OK())
			return nil
		},
	}
}

func newDestroyCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Permanently delete the vault and all its secrets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				ok, err := newPrompter(a.in, a.errOut).confirm("Delete the vault and every secret in it?")
				if err != nil {
					return err
				}
				if !ok {
					a.printf("Aborted\n")
					return nil
				}
			}
			err := a.withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				return c.Destroy(ctx)
			})
			if err != nil {
				return err
			}
			if err := clearToken(); err != nil {
				return err
			}
			a.printf("%s Vault destroyed\n", ui.OK())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
