package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/coolport/thesis/agent"
	"github.com/coolport/thesis/config"
	"github.com/coolport/thesis/environment/sumo"
	"github.com/coolport/thesis/experiment"
	"github.com/coolport/thesis/experiment/tracker"
)

// flags holds the command line flags shared by the subcommands
type flags struct {
	configPath string
	agentType  string
	episodes   int
	gui        bool
	progress   bool

	// train
	output string

	// evaluate
	modelPath  string
	outputFile string
	xlsxFile   string
}

func main() {
	var f flags

	rootCmd := &cobra.Command{
		Use:           "thesis",
		Short:         "Train and evaluate adaptive traffic signal controllers on a SUMO intersection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&f.configPath, "config", "",
		"YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&f.agentType, "agent",
		string(agent.Tabular), "agent type: "+typeNames())
	rootCmd.PersistentFlags().IntVar(&f.episodes, "episodes", 0,
		"number of episodes")
	rootCmd.PersistentFlags().BoolVar(&f.gui, "gui", false,
		"run the simulator with its graphical interface")
	rootCmd.PersistentFlags().BoolVar(&f.progress, "progress", false,
		"display a progress bar")

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train a learning agent and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return train(cmd, f)
		},
	}
	trainCmd.Flags().StringVar(&f.output, "output", "",
		"path of the trained model")

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate an agent and append its metrics to the results log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return evaluate(cmd, f)
		},
	}
	evaluateCmd.Flags().StringVar(&f.modelPath, "model-path", "",
		"path of the model to evaluate")
	evaluateCmd.Flags().StringVar(&f.outputFile, "output-file", "",
		"CSV results log")
	evaluateCmd.Flags().StringVar(&f.xlsxFile, "xlsx", "",
		"spreadsheet mirror of the results log")

	rootCmd.AddCommand(trainCmd, evaluateCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func typeNames() string {
	names := make([]string, len(agent.Types))
	for i, t := range agent.Types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// setup loads the configuration, applies the flags that were set and
// creates the agent
func setup(cmd *cobra.Command, f flags) (config.Config, agent.Type, agent.Agent,
	*log.Logger, error) {
	c, err := config.Load(f.configPath)
	if err != nil {
		return c, "", nil, nil, err
	}
	if cmd.Flags().Changed("gui") {
		c.Environment.GUI = f.gui
	}

	logger, err := c.Logger(os.Stderr)
	if err != nil {
		return c, "", nil, nil, err
	}

	t, err := agent.ParseType(f.agentType)
	if err != nil {
		return c, "", nil, nil, err
	}
	a, err := agent.New(t, c.Agent)
	if err != nil {
		return c, "", nil, nil, err
	}
	return c, t, a, logger, nil
}

func train(cmd *cobra.Command, f flags) error {
	c, t, a, logger, err := setup(cmd, f)
	if err != nil {
		return err
	}
	if closer, ok := a.(agent.Closer); ok {
		defer closer.Close()
	}
	if f.episodes > 0 {
		c.Train.Episodes = f.episodes
	}
	if f.output != "" {
		c.Train.ModelPath = f.output
	}

	curves, err := c.Environment.Curves()
	if err != nil {
		return err
	}
	env, err := sumo.New(c.Environment, curves, sumo.WithLogger(logger))
	if err != nil {
		return err
	}

	opts := []experiment.Option{experiment.WithLogger(logger)}
	if f.progress {
		opts = append(opts, experiment.WithProgress(os.Stdout))
	}
	trainer, err := experiment.NewTrainer(env, a, t, c.Train, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()
	if _, err := trainer.Run(ctx); err != nil {
		return err
	}

	// The resolved configuration is kept next to the model
	ext := filepath.Ext(c.Train.ModelPath)
	snapshot := strings.TrimSuffix(c.Train.ModelPath, ext) + ".yaml"
	if err := c.Save(snapshot); err != nil {
		return err
	}
	logger.Info("configuration saved", "path", snapshot, "run",
		trainer.RunID())
	return nil
}

func evaluate(cmd *cobra.Command, f flags) error {
	c, t, a, logger, err := setup(cmd, f)
	if err != nil {
		return err
	}
	if closer, ok := a.(agent.Closer); ok {
		defer closer.Close()
	}
	if f.episodes > 0 {
		c.Evaluate.Episodes = f.episodes
	}
	if f.modelPath != "" {
		c.Evaluate.ModelPath = f.modelPath
	} else if !t.Learns() {
		c.Evaluate.ModelPath = ""
	}
	if f.outputFile != "" {
		c.Evaluate.OutputFile = f.outputFile
	}
	if f.xlsxFile != "" {
		c.Evaluate.XLSXFile = f.xlsxFile
	}
	c.Environment.StepCeiling = c.Evaluate.StepCeiling

	curves, err := c.Environment.Curves()
	if err != nil {
		return err
	}
	env, err := sumo.New(c.Environment, curves, sumo.WithLogger(logger))
	if err != nil {
		return err
	}

	results := tracker.MultiLog{tracker.NewCSVLog(c.Evaluate.OutputFile)}
	if c.Evaluate.XLSXFile != "" {
		results = append(results, tracker.NewXLSXLog(c.Evaluate.XLSXFile))
	}

	opts := []experiment.Option{experiment.WithLogger(logger)}
	if f.progress {
		opts = append(opts, experiment.WithProgress(os.Stdout))
	}
	evaluator, err := experiment.NewEvaluator(env, a, t, c.Evaluate, results,
		opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()
	metrics, err := evaluator.Run(ctx)
	if err != nil {
		return err
	}
	for _, m := range metrics {
		fmt.Println(m)
	}

	records, err := tracker.LoadData(c.Evaluate.OutputFile)
	if err != nil {
		return err
	}
	logger.Info("results appended", "path", c.Evaluate.OutputFile,
		"appended", len(metrics), "rows", len(records)-1)
	return nil
}
