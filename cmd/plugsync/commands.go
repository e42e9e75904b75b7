package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/plugsync/internal/bridge"
	"github.com/nerrad567/plugsync/internal/infrastructure/config"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "plugsync",
		Short:         "Bridge smart plugs to an MQTT broker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath(cfgFile))
		},
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file (default: $PLUGSYNC_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the bridge until interrupted (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), getConfigPath(cfgFile))
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Validate the configuration and print the topic table",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return check(cmd, getConfigPath(cfgFile))
			},
		},
		newMigrateCmd(&cfgFile),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "plugsync %s (commit %s, built %s)\n", version, commit, date)
			},
		},
	)

	return root
}

// check loads the config and builds everything a session needs without
// touching the broker.
func check(cmd *cobra.Command, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	sup, err := bridge.NewSupervisor(bridge.SupervisorConfig{Config: cfg})
	if err != nil {
		return fmt.Errorf("checking config: %w", err)
	}

	topics := sup.Routes().DeviceTopics()
	names := make([]string, 0, len(topics))
	for name := range topics {
		names = append(names, name)
	}
	sort.Strings(names)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config %s is valid\n\n", path)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCATION\tTOPIC\tPOLL\tEMETER\tKEEP-ALIVE")
	for _, name := range names {
		ka := "-"
		if k, ok := cfg.KeepAlives[name]; ok {
			ka = fmt.Sprintf("%s (%ds/%ds)", k.SubscribeTopic, k.Interval, k.Timeout)
		}
		emeter := "-"
		if d := cfg.EmeterPollInterval(name); d > 0 {
			emeter = d.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name, topics[name], cfg.PollInterval(name), emeter, ka)
	}
	return tw.Flush()
}
