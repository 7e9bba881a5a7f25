package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	airelay "github.com/ferro-labs/ai-relay"
	"github.com/ferro-labs/ai-relay/internal/security"
	"github.com/ferro-labs/ai-relay/internal/version"
)

// newProvidersCmd lists the routing table. Secrets are never printed.
func newProvidersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers and whether a credential is set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnv(opts.envFile); err != nil {
				return err
			}
			registry, err := loadRegistry()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tAUTH\tAVAILABLE\tENDPOINT")
			for _, name := range registry.List() {
				p, _ := registry.Get(name)
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", p.Name, p.Auth, p.Available(), p.Endpoint)
			}
			return tw.Flush()
		},
	}
}

// newCSPCmd prints the Content-Security-Policy template the server would
// send, with the nonce placeholder in place.
func newCSPCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "csp",
		Short: "Print the Content-Security-Policy template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnv(opts.envFile); err != nil {
				return err
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			registry, err := loadRegistry()
			if err != nil {
				return err
			}
			policy := security.BuildPolicy(security.PolicyOptions{
				CDNOrigins:     cfg.Security.CDNOrigins,
				ConnectOrigins: append(registry.Origins(), cfg.Security.ConnectOrigins...),
			})
			_, err = fmt.Fprintln(cmd.OutOrStdout(), policy)
			return err
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a relay configuration file (JSON/YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := airelay.LoadConfig(args[0])
			if err != nil {
				return err
			}
			if err := airelay.ValidateConfig(airelay.WithDefaults(*cfg)); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config %s is valid.\n", args[0])
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
