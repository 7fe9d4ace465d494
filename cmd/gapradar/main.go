package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gapradar",
		Short: "Score market niches for unmet demand across app, content, and ad signals",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(collectCmd())
	root.AddCommand(scoreCmd())
	root.AddCommand(opportunitiesCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func collectCmd() *cobra.Command {
	var sources []string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run signal collectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(sources)
		},
	}

	cmd.Flags().StringSliceVar(&sources, "source", nil, "specific sources to collect (e.g., appstore,youtube,rss)")
	return cmd
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score all configured niches from collected signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore()
		},
	}
	return cmd
}

func opportunitiesCmd() *cobra.Command {
	var (
		jsonOutput bool
		minScore   int
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "opportunities",
		Short: "Show scored niche opportunities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpportunities(jsonOutput, minScore, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&minScore, "min-score", -1, "minimum overall score (default: from config)")
	cmd.Flags().IntVar(&limit, "limit", 20, "max opportunities to show")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
