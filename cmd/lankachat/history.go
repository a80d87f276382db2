package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ent0n29/lankachat/internal/config"
	"github.com/ent0n29/lankachat/internal/memory"
	"github.com/ent0n29/lankachat/internal/policy"
)

const historyLongDesc string = `Print the most recent turns of one user, oldest first,
from the store named by DATABASE_URL.

Examples:
  lankachat history --uid 94771234567
  lankachat history --uid 94771234567 --limit 30`

type historyCommander struct {
	uid    string
	limit  int
	redact bool
}

func newHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a user's recent conversation turns",
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.uid, "uid", "", "User id whose turns are printed")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", memory.DefaultRecentLimit, "Maximum number of turns")
	cmd.Flags().BoolVar(&cmder.redact, "redact", false, "Mask emails, phone numbers, card numbers and keys in printed text")
	_ = cmd.MarkFlagRequired("uid")

	return cmd
}

func (c *historyCommander) run(ctx context.Context, cmd *cobra.Command) error {
	uid := strings.TrimSpace(c.uid)
	if uid == "" {
		return errors.New("--uid must not be empty")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if memory.BackendOf(cfg.DatabaseURL) == memory.BackendInMemory {
		return errors.New("DATABASE_URL is not set; there is no persisted history to read")
	}

	store, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("could not open turn store: %w", err)
	}
	defer store.Close()

	turns, err := store.Recent(ctx, uid, c.limit)
	if err != nil {
		return fmt.Errorf("could not read turns of %s: %w", uid, err)
	}

	out := cmd.OutOrStdout()
	if len(turns) == 0 {
		fmt.Fprintf(out, "no turns stored for %s\n", uid)
		return nil
	}
	for _, t := range turns {
		text := t.Text
		if c.redact {
			text = policy.ForLog(text)
		}
		fmt.Fprintf(out, "%d\t%s\t%s: %s\n", t.Seq, t.CreatedAt.Format("2006-01-02 15:04:05"), t.Role, text)
	}
	return nil
}
