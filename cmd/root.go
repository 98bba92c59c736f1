package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zipkero/apply-env/internal/config"
	"github.com/zipkero/apply-env/internal/render"
	"github.com/zipkero/apply-env/internal/script"
	"github.com/zipkero/apply-env/internal/template"
	"github.com/zipkero/apply-env/internal/vars"
	"github.com/zipkero/apply-env/internal/watcher"
)

// options holds the raw command-line flags.
type options struct {
	configFile  string
	files       []string
	rewrite     bool
	helmOnly    bool
	escape      bool
	ifNotFound  string
	debug       bool
	envFiles    []string
	varsFiles   []string
	script      string
	inheritEnv  bool
	strict      bool
	concurrency int
	watch       bool
	reportFile  string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "apply-env -f FILE | -- < FILE",
		Short: "Apply environment variables to templates",
		Long: `apply-env replaces {{ NAME }} placeholders in any text file with values
from the environment, env files, YAML/TOML/JSON value files or a script.

Read a template from a file with -f, or from standard input by passing --.
Use --helm-only to turn placeholders into Helm-safe {{` + "`{{NAME}}`" + `}} literals instead.`,
		Example: `  apply-env -f deploy.yaml
  apply-env -e -n unknown -- < config.json
  apply-env -E .env -w -f values.yaml
  apply-env -m -w -f chart/values.yaml`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Load options from a YAML config `file`")
	flags.StringArrayVarP(&opts.files, "file", "f", nil, "Specifies template file `name` (repeatable)")
	flags.BoolVarP(&opts.rewrite, "rewrite", "w", false, "Rewrite input file!")
	flags.BoolVarP(&opts.helmOnly, "helm-only", "m", false, "Make Helm template compatible!")
	flags.BoolVarP(&opts.escape, "escape", "e", false, "Escape special string chars (needed for JSON)")
	flags.StringVarP(&opts.ifNotFound, "if-not-found", "n", "", "Apply this `value` for variables that do not exist")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "Print every placeholder and its replacement")
	flags.StringArrayVarP(&opts.envFiles, "env-file", "E", nil, "Load variables from a .env-style `file` instead of the process environment (repeatable)")
	flags.StringArrayVar(&opts.varsFiles, "vars", nil, "Load variables from a YAML, TOML or JSON `file` (repeatable)")
	flags.StringVarP(&opts.script, "script", "s", "", "Run a JavaScript `file` that sets variables with env.set")
	flags.BoolVar(&opts.inheritEnv, "inherit-env", false, "Keep the process environment as a fallback for file sources")
	flags.BoolVar(&opts.strict, "strict", false, "Fail when a placeholder has no value and no fallback")
	flags.IntVarP(&opts.concurrency, "concurrency", "j", 1, "Number of templates rendered in parallel")
	flags.BoolVar(&opts.watch, "watch", false, "Render again whenever a template or variable file changes")
	flags.StringVar(&opts.reportFile, "report", "", "Write a markdown report of all substitutions to `file`")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	return cmd
}

// execute runs cmd with SIGINT/SIGTERM cancelling its context.
func execute(ctx context.Context, cmd *cobra.Command) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return cmd.ExecuteContext(ctx)
}

func run(cmd *cobra.Command, args []string, opts *options) error {
	stdinMode := cmd.ArgsLenAtDash() >= 0

	if cmd.Flags().NFlag() == 0 && len(args) == 0 && !stdinMode {
		return cmd.Help()
	}
	if len(args) > 0 {
		return withCode(exitError, fmt.Errorf("unexpected arguments: %v", args))
	}
	if len(opts.files) == 0 && !stdinMode {
		_ = cmd.Help()
		return withCode(exitError, nil)
	}

	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))

	paths := opts.files
	if len(paths) == 0 {
		if cfg.Watch {
			return withCode(exitConfig, fmt.Errorf("%w: watch needs at least one --file", config.ErrConfig))
		}
		paths = []string{""}
		if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			logger.Info("reading template from the terminal, finish with Ctrl-D")
		}
	}

	if !cfg.Watch {
		return renderAll(cmd, cfg, paths, logger)
	}

	watched := watchedFiles(cfg, paths, opts.configFile)
	logger.Info("watching for changes", "files", len(watched))
	return watcher.Watch(cmd.Context(), watched, watcher.DefaultDebounce, logger, func(ctx context.Context) error {
		if opts.configFile != "" {
			reloaded, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			for _, f := range newFiles(watched, watchedFiles(reloaded, paths, opts.configFile)) {
				logger.Warn("file added by the config is not watched until restart", "path", f)
			}
			cfg = reloaded
		}
		return renderAll(cmd, cfg, paths, logger)
	})
}

// watchedFiles lists the templates and every file a render reads.
func watchedFiles(cfg *config.Config, paths []string, configFile string) []string {
	files := append([]string{}, paths...)
	files = append(files, cfg.EnvFiles...)
	files = append(files, cfg.VarsFiles...)
	if cfg.Script != "" {
		files = append(files, cfg.Script)
	}
	if configFile != "" {
		files = append(files, configFile)
	}
	return files
}

func newFiles(old, current []string) []string {
	var added []string
	for _, f := range current {
		if !slices.Contains(old, f) {
			added = append(added, f)
		}
	}
	return added
}

// resolveConfig applies explicitly set flags over the config file.
func resolveConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configFile != "" {
		loaded, err := config.LoadConfig(opts.configFile)
		if err != nil {
			return nil, withCode(exitConfig, err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("rewrite") {
		cfg.Rewrite = opts.rewrite
	}
	if flags.Changed("helm-only") {
		cfg.HelmOnly = opts.helmOnly
	}
	if flags.Changed("escape") {
		cfg.Escape = opts.escape
	}
	if flags.Changed("if-not-found") {
		v := opts.ifNotFound
		cfg.IfNotFound = &v
	}
	if flags.Changed("debug") {
		cfg.Debug = opts.debug
	}
	if flags.Changed("env-file") {
		cfg.EnvFiles = opts.envFiles
	}
	if flags.Changed("vars") {
		cfg.VarsFiles = opts.varsFiles
	}
	if flags.Changed("script") {
		cfg.Script = opts.script
	}
	if flags.Changed("inherit-env") {
		cfg.InheritEnv = opts.inheritEnv
	}
	if flags.Changed("strict") {
		cfg.Strict = opts.strict
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
	if flags.Changed("watch") {
		cfg.Watch = opts.watch
	}
	if flags.Changed("report") {
		cfg.ReportFile = opts.reportFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, withCode(exitConfig, err)
	}
	return cfg, nil
}

// buildLookup assembles the variable sources in resolution order: script,
// vars files, env files, inline vars, then the process environment.
func buildLookup(cfg *config.Config, logger *slog.Logger) (template.LookupFunc, error) {
	var sources []template.LookupFunc

	for i := len(cfg.VarsFiles) - 1; i >= 0; i-- {
		m, err := vars.LoadFile(cfg.VarsFiles[i], logger)
		if err != nil {
			return nil, err
		}
		sources = append(sources, vars.Map(m))
	}
	for i := len(cfg.EnvFiles) - 1; i >= 0; i-- {
		m, err := vars.LoadEnvFile(cfg.EnvFiles[i], logger)
		if err != nil {
			return nil, err
		}
		sources = append(sources, vars.Map(m))
	}
	if len(cfg.Vars) > 0 {
		sources = append(sources, vars.Map(cfg.Vars))
	}
	if !cfg.HasFileSources() || cfg.InheritEnv {
		sources = append(sources, vars.Environ())
	}

	lookup := vars.Chain(sources...)
	if cfg.Script == "" {
		return lookup, nil
	}

	executor := script.NewExecutor(lookup)
	if err := executor.ExecuteFile(cfg.Script); err != nil {
		return nil, err
	}
	for name, value := range executor.Vars() {
		logger.Debug("script set variable", "script", cfg.Script, "name", name, "value", value)
	}
	return executor.Lookup, nil
}

// renderAll renders paths and prints the results in order.
func renderAll(cmd *cobra.Command, cfg *config.Config, paths []string, logger *slog.Logger) error {
	var lookup template.LookupFunc
	if !cfg.HelmOnly {
		var err error
		if lookup, err = buildLookup(cfg, logger); err != nil {
			return err
		}
	}

	policy := cfg.Policy(lookup)
	policy.Debug = cfg.Debug || cfg.ReportFile != ""

	r := &render.Renderer{
		Policy:    policy,
		Rewrite:   cfg.Rewrite,
		Strict:    cfg.Strict,
		ShowTrace: cfg.Debug,
		Stdin:     cmd.InOrStdin(),
		Stdout:    cmd.OutOrStdout(),
		Stderr:    cmd.ErrOrStderr(),
		Logger:    logger,
	}

	results := watcher.Run(cmd.Context(), paths, cfg.Concurrency, r.RenderFile)

	code := exitSuccess
	for _, result := range results {
		if err := r.Emit(result); err != nil {
			return err
		}
		if result.Error == nil {
			continue
		}
		cmd.PrintErrln("ERROR: " + result.Error.Error())
		if !errors.Is(result.Error, render.ErrUnresolved) {
			code = exitError
		} else if code == exitSuccess {
			code = exitUnresolved
		}
	}

	if cfg.Debug && len(results) > 1 {
		watcher.PrintSummary(cmd.ErrOrStderr(), results)
	}

	if cfg.ReportFile != "" {
		if err := watcher.WriteReport(cfg.ReportFile, results, time.Now()); err != nil {
			return err
		}
		logger.Info("report written", "path", cfg.ReportFile)
	}

	if code != exitSuccess {
		return withCode(code, nil)
	}
	return nil
}
