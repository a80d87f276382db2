package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ent0n29/lankachat/internal/config"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Show the resolved provider chain in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tNAME\tKIND\tMODEL\tENDPOINT\tTIMEOUT\tSERIALIZED\tKEY")
			for i, p := range cfg.Providers {
				serialized := "no"
				if p.Serialize {
					serialized = fmt.Sprintf("yes (cooldown %s)", p.Cooldown.Duration)
				}
				key := config.MaskKey(p.APIKey)
				if key == "" {
					key = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					i+1, p.Name, p.Kind, p.Model, p.Endpoint, p.Timeout.Duration, serialized, key)
			}
			fmt.Fprintf(w, "\nfallback reply: %s\n", cfg.FallbackReply)
			return w.Flush()
		},
	}
}
