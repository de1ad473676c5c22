package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/oraraka-deko/archie/archie"
	"github.com/oraraka-deko/archie/internal/httpapi"
	"github.com/oraraka-deko/archie/internal/logger"
)

const defaultQuery = "What are the latest events at Arcadia University?"

type flags struct {
	envFile  string
	provider string
	model    string
	parallel bool
	addr     string
}

// newArchie builds the orchestrator; tests swap it to point sources at a local server.
var newArchie = archie.New

// reportedError marks a failure that has already been printed.
type reportedError struct{ error }

func (e *reportedError) Unwrap() error { return e.error }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func initFailed(w io.Writer, err error) error {
	fmt.Fprintf(w, "\nError initializing AI Interface: %v\n", err)
	return &reportedError{err}
}

func newRootCmd() *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:           "archie [query]",
		Short:         "ArchieAI answers questions about Arcadia University",
		Long:          "Fetches the Arcadia University home, events and about pages and asks a hosted model to answer the query from them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				query = defaultQuery
			}
			return runAsk(cmd, f, query)
		},
	}
	root.PersistentFlags().StringVarP(&f.envFile, "env-file", "e", archie.DefaultEnvFile, "Optional .env file with secrets")
	root.PersistentFlags().StringVarP(&f.provider, "provider", "p", "", "Generation backend: google or openai (default from ARCHIE_PROVIDER)")
	root.PersistentFlags().StringVarP(&f.model, "model", "m", "", "Model identifier (default per provider)")
	root.PersistentFlags().BoolVar(&f.parallel, "parallel", false, "Fetch sources concurrently")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ask API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, f)
		},
	}
	serve.Flags().StringVarP(&f.addr, "addr", "a", ":8080", "Listen address")
	root.AddCommand(serve)
	return root
}

// loadConfig applies command-line overrides on top of LoadConfig.
func loadConfig(cmd *cobra.Command, f flags) (archie.Config, error) {
	cfg, err := archie.LoadConfig(archie.LoadOptions{
		EnvFile:  f.envFile,
		Provider: archie.Provider(f.provider),
	})
	if err != nil {
		return archie.Config{}, err
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = f.model
	}
	if cmd.Flags().Changed("parallel") {
		cfg.ParallelFetch = f.parallel
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return archie.Config{}, errors.Wrap(err, "failed to build logger")
	}
	cfg.Logger = log
	return cfg, nil
}

// runAsk exits non-zero only when the client cannot be built; a failed
// generation is printed and the process still succeeds.
func runAsk(cmd *cobra.Command, f flags, query string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var a *archie.Archie
	cfg, err := loadConfig(cmd, f)
	if err == nil {
		defer cfg.Logger.Sync()
		a, err = newArchie(ctx, cfg)
	}
	if err != nil {
		return initFailed(errOut, err)
	}

	fmt.Fprintf(out, "Query: %s\n", query)
	answer, err := a.Answer(ctx, query)
	if err != nil {
		fmt.Fprintf(errOut, "\nError during AI generation: %v\n", err)
		return nil
	}
	fmt.Fprintf(out, "\nArchieAI Response:\n%s\n", answer)
	return nil
}

func runServe(cmd *cobra.Command, f flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return initFailed(cmd.ErrOrStderr(), err)
	}
	defer cfg.Logger.Sync()
	log := cfg.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newArchie(ctx, cfg)
	if err != nil {
		return initFailed(cmd.ErrOrStderr(), err)
	}

	var rec archie.Recorder
	if cfg.AnalyticsDir != "" {
		csvRec, err := archie.NewCSVRecorder(cfg.AnalyticsDir)
		if err != nil {
			return errors.Wrap(err, "failed to open analytics")
		}
		log.Info("recording interactions", "path", csvRec.Path())
		rec = csvRec
	}

	srv := &http.Server{
		Addr:              f.addr,
		Handler:           httpapi.NewRouter(httpapi.ModeFor(cfg.LogMode), a, rec, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", f.addr, "provider", cfg.Provider)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return errors.Wrap(srv.Shutdown(shutdownCtx), "failed to shut down")
	}
}
