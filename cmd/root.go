// Package cmd provides the root command and CLI setup for zk-mutant.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"zkmutant.dev/pkg/zkmutant/internal/adapter"
	"zkmutant.dev/pkg/zkmutant/internal/controller"
	"zkmutant.dev/pkg/zkmutant/internal/domain"
	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

const toolName = "zk-mutant"

// fallbackVersion is reported when the binary carries no build info.
const fallbackVersion = "0.1.0"

// Shared dependencies, swappable in tests.
var (
	projectLoader adapter.ProjectLoader
	processRunner adapter.ProcessRunner
	reportStore   adapter.ReportStore
	ui            controller.UI
)

// Root-level flags shared by the subcommands.
var (
	projectFlag string
	outDirFlag  string
	jsonFlag    bool
	verboseFlag bool
)

const rootLongDescription = `zk-mutant is a mutation testing tool for Noir circuits. It introduces
small operator-level changes (mutations) into your sources, re-runs
` + "`nargo test`" + ` per mutation in an isolated project copy, and reports which
mutations your test suite caught, missed, or made unviable.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "zk-mutant",
		Short:         "Mutation testing for Noir circuits",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&projectFlag, projectFlagName, ".",
		"path to the Noir project root or any path inside it")

	cmd.PersistentFlags().StringVarP(&outDirFlag, outDirFlagName, "o",
		viper.GetString(outputConfigKey),
		"output directory for run artifacts (default <project>/mutants.out)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outDirFlagName), outputConfigKey)

	cmd.PersistentFlags().BoolVar(&jsonFlag, jsonFlagName, false,
		"emit a machine-readable JSON report on stdout")

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false,
		"verbose output")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

func init() {
	// Initialize shared dependencies.
	projectLoader = adapter.NewLocalProjectLoader()
	processRunner = adapter.NewExecProcessRunner()
	reportStore = adapter.NewFSReportStore()
	ui = controller.NewConsoleUI(os.Stderr)
}

// exitCodeError carries a specific process exit status out of a RunE.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}

		os.Exit(1)
	}
}

// buildPipeline assembles the domain pipeline from the wired adapters and
// the resolved configuration.
func buildPipeline() *domain.Pipeline {
	var workspaceSkips []string
	if outDir := outDirPath(); outDir != "" {
		workspaceSkips = append(workspaceSkips, filepath.Base(string(outDir)))
	}

	return &domain.Pipeline{
		Loader:          projectLoader,
		Runner:          processRunner,
		Workspaces:      adapter.NewTempWorkspaceManager(workspaceSkips...),
		Reports:         reportStore,
		UI:              ui,
		Classifier:      domain.NewClassifier(viper.GetStringSlice(compileMarkersKey)...),
		ReadFile:        os.ReadFile,
		NargoCmd:        viper.GetString(nargoCmdKey),
		MutationTimeout: time.Duration(viper.GetInt(mutationTimeoutKey)) * time.Second,
		BaselineTimeout: time.Duration(viper.GetInt(baselineTimeoutKey)) * time.Second,
		Tool:            toolName,
		Version:         resolveVersion(),
	}
}

func resolveVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return fallbackVersion
	}

	return info.Main.Version
}

// printJSON writes the single machine-readable document to stdout.
func printJSON(out io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize report: %w", err)
	}

	_, err = fmt.Fprintln(out, string(data))

	return err
}

func projectPath() m.Path {
	return m.Path(projectFlag)
}

// outDirPath resolves the artifact directory: the --out-dir flag when set,
// otherwise the output key from config or environment.
func outDirPath() m.Path {
	return m.Path(viper.GetString(outputConfigKey))
}
