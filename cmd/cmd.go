package cmd

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/jmorganca/modalfusion/envconfig"
	"github.com/jmorganca/modalfusion/logutil"
	"github.com/jmorganca/modalfusion/ml/nn"
	"github.com/jmorganca/modalfusion/params"
)

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modalfusion",
		Short: "Multimodal embedding fusion",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), envconfig.LogLevel()))
		},
	}

	rootCmd.PersistentFlags().String("params", "", "Params file (default $MODALFUSION_PARAMS)")
	rootCmd.PersistentFlags().Int("embed-dim", 8, "Width of the token embedding table")
	rootCmd.PersistentFlags().Int("vocab", 32, "Rows of the token embedding table")

	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(
		NewLayoutCmd(),
		NewFuseCmd(),
		NewEnvCmd(),
	)

	return rootCmd
}

func NewEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Show environment settings",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, v := range envconfig.AsMap() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%v\t%s\n", v.Name, v.Value, v.Description)
			}
		},
	}
}

func loadParams(cmd *cobra.Command) (*params.Params, error) {
	path, err := cmd.Flags().GetString("params")
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = envconfig.ParamsPath
	}

	if path == "" {
		return nil, fmt.Errorf("no params file: pass --params or set MODALFUSION_PARAMS")
	}

	return params.Load(path)
}

// tokenTable builds a randomly initialized token embedding table sized by
// the --vocab and --embed-dim flags.
func tokenTable(cmd *cobra.Command, seed uint64) (*nn.Embedding, error) {
	vocab, err := cmd.Flags().GetInt("vocab")
	if err != nil {
		return nil, err
	}

	dim, err := cmd.Flags().GetInt("embed-dim")
	if err != nil {
		return nil, err
	}

	if vocab < 1 || dim < 1 {
		return nil, fmt.Errorf("--vocab and --embed-dim must be positive")
	}

	if seed == 0 {
		seed = rand.Uint64()
	}

	w, err := nn.Uniform(rand.New(rand.NewPCG(seed, ^seed)), 0.05, vocab, dim)
	if err != nil {
		return nil, err
	}

	return &nn.Embedding{Weight: w}, nil
}
