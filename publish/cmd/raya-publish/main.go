// raya-publish deploys the Raya Apes NFTCollection contract and prints its
// address.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ryzncodes/nft-collection-page/publish"
)

// Version is set at build time.
var Version = "dev"

// dialFunc builds the contract toolkit for a configuration. The returned
// close func releases the underlying connection.
type dialFunc func(cfg config, log *logrus.Entry) (publish.Toolkit, func() error, error)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr, dialChain))
}

func execute(args []string, stdout, stderr io.Writer, dial dialFunc) int {
	cmd := newRootCmd(dial)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		exitErr(stderr, err)
		return 1
	}
	return 0
}

func exitErr(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}

func newRootCmd(dial dialFunc) *cobra.Command {
	v := viper.New()
	logger := logrus.New()
	log := logger.WithField("process", "publish")

	var envFile string

	root := &cobra.Command{
		Use:   "raya-publish",
		Short: "Deploy the Raya Apes NFTCollection contract",
		Long: `raya-publish deploys the NFTCollection contract with the configured
metadata URL and whitelist contract address, then prints the new address.

Configuration (in order of priority):
  1. Command-line flags
  2. Environment variables (WHITELIST_CONTRACT_ADDRESS, METADATA_URL, RPC_URL,
     CHAIN_ID, PRIVATE_KEY, ...)
  3. The env file (--env-file, default .env)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

			if err := loadEnvFile(envFile); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					return &publish.DeploymentFailure{Stage: "config", Err: err}
				}
				log.WithField("path", envFile).Debug("env file not found, using process environment")
			}

			level, err := logrus.ParseLevel(v.GetString(keyLogLevel))
			if err != nil {
				return &publish.DeploymentFailure{Stage: "config", Err: err}
			}
			logger.SetLevel(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeploy(cmd, loadConfig(v), dial, log)
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file loaded before reading configuration")
	if err := bindFlags(root, v); err != nil {
		panic(err)
	}

	root.AddCommand(newConstructorArgsCmd(v), newVersionCmd())
	return root
}

func runDeploy(cmd *cobra.Command, cfg config, dial dialFunc, log *logrus.Entry) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	toolkit, closeFn, err := dial(cfg, log)
	if err != nil {
		return &publish.DeploymentFailure{Stage: "config", Err: err}
	}
	defer func() {
		if err := closeFn(); err != nil {
			log.WithError(err).Warn("close rpc client")
		}
	}()

	d := publish.NewDeployer(toolkit, cfg.deployerConfig(), cmd.OutOrStdout(), log)
	_, err = d.Run(ctx)
	return err
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	return godotenv.Load(path)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "raya-publish version %s\n", Version)
		},
	}
}
