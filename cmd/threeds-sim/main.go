// Command threeds-sim drives a 3-D Secure session against scripted gateway
// and SDK doubles.
//
// It needs no network access: the gateway is a threedstest.FakeTransport,
// the challenge SDK a threedstest.FakeSDK, and Redis (for handoffs) is
// miniredis unless --redis-addr or REDIS_ADDR names a server.
//
//	threeds-sim verify --scenario challenge --events
//	threeds-sim loadtest --concurrency 64 --ops 20000 --handoff
//	threeds-sim lint --config threeds.yaml --strict
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

type globalFlags struct {
	configPath string
	dotEnv     bool
	logLevel   string
	redisAddr  string
}

func main() {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "threeds-sim",
		Short:         "Simulate 3-D Secure verifications against scripted doubles",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&flags.dotEnv, "dotenv", false, "load THREEDS_* variables from .env before reading the environment")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")

	rootCmd.AddCommand(verifyCmd(flags))
	rootCmd.AddCommand(loadtestCmd(flags))
	rootCmd.AddCommand(lintCmd(flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
