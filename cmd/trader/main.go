package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"TradeSentinel/internal/api"
	"TradeSentinel/internal/config"
	"TradeSentinel/internal/engine"
	"TradeSentinel/internal/logger"
	"TradeSentinel/internal/model"
	"TradeSentinel/internal/notifier"
	"TradeSentinel/internal/scheduler"
)

const version = "v0.4.0"

var (
	cfgPath string
	cfg     *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "trader",
		Short:         "Autonomous paper-trading simulator",
		Long:          "TradeSentinel scores symbols with six signal modules and runs simulated trader personalities on a schedule.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			_, err = logger.Setup(cfg.Log)
			return err
		},
	}
	defaultPath := config.DefaultPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultPath, "Path to the YAML config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler, HTTP API and Telegram command polling",
		RunE:  runService,
	}

	evaluateCmd := &cobra.Command{
		Use:   "evaluate SYMBOL...",
		Short: "Score symbols once and print the decisions",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runEvaluate,
	}
	evaluateCmd.Flags().Bool("json", false, "Print full evaluations as JSON")

	portfolioCmd := &cobra.Command{
		Use:   "portfolio [ID]",
		Short: "Show persisted portfolios at their last traded prices",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPortfolio,
	}

	resetCmd := &cobra.Command{
		Use:   "reset ID",
		Short: "Reset a personality's ledger to its starting capital",
		Args:  cobra.ExactArgs(1),
		RunE:  runReset,
	}

	learningsCmd := &cobra.Command{
		Use:   "learnings",
		Short: "Manage externally learned module weights",
	}
	learningsSetCmd := &cobra.Command{
		Use:   "set FILE",
		Short: `Store weights from a JSON file shaped {"core":{...},"pulse":{...}}`,
		Args:  cobra.ExactArgs(1),
		RunE:  runLearningsSet,
	}
	learningsClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove learned weights; base regime tables apply",
		Args:  cobra.NoArgs,
		RunE:  runLearningsClear,
	}
	learningsShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored learned weights",
		Args:  cobra.NoArgs,
		RunE:  runLearningsShow,
	}
	learningsCmd.AddCommand(learningsSetCmd, learningsClearCmd, learningsShowCmd)

	rootCmd.AddCommand(runCmd, evaluateCmd, portfolioCmd, resetCmd, learningsCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func runService(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.NewScheduler(ctx, a.pool)
	if err := sched.RegisterAll(cfg.Schedule.TickInterval); err != nil {
		return fmt.Errorf("register ticks: %w", err)
	}
	sched.Start()

	var srv *api.Server
	if cfg.API.Enabled {
		srv = api.NewServer(cfg.API.Addr, api.NewHandler(a.pool, a.engine, a.optimizer), a.metrics)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error().Err(err).Msg("api server stopped")
			}
		}()
	}

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		log.Info().Msg("run_on_start enabled, ticking every personality now")
		go sched.RunNow()
	}

	log.Info().Int("personalities", len(a.pool.Traders())).Dur("interval", cfg.Schedule.TickInterval).
		Msg("TradeSentinel is running, press Ctrl+C to stop")
	<-ctx.Done()

	log.Info().Msg("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("api shutdown")
		}
	}
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("in-flight ticks did not finish before shutdown timeout")
	}
	log.Info().Msg("TradeSentinel stopped")
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	a, err := newCore(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	for _, sym := range args {
		ev, err := a.engine.Evaluate(cmd.Context(), sym)
		if err != nil && !errors.Is(err, engine.ErrNoPrice) {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(ev); err != nil {
				return err
			}
			continue
		}
		printDecision(cmd, ev)
	}
	return nil
}

func printDecision(cmd *cobra.Command, ev *engine.Evaluation) {
	d := ev.Decision
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s  $%.2f  composite %.0f %s  (core %.1f %s, pulse %.1f %s, news %.0f)  confidence %s  regime %s\n",
		ev.Symbol, ev.Price, d.CompositeScore, d.CompositeSignal, d.CoreScore, d.CoreSignal,
		d.PulseScore, d.PulseSignal, d.NewsScore, d.Confidence, d.Regime)
	for _, s := range ev.Report.Scores() {
		status := ""
		if !s.Available {
			status = " (unavailable)"
		}
		fmt.Fprintf(w, "    %-12s %5.1f%s\n", s.Module, s.Value, status)
	}
	for _, line := range d.Explanation {
		fmt.Fprintf(w, "    · %s\n", line)
	}
	for _, line := range d.ActionItems {
		fmt.Fprintf(w, "    → %s\n", line)
	}
	for _, line := range d.Warnings {
		fmt.Fprintf(w, "    ! %s\n", line)
	}
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	a, err := newLedgers(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, t := range a.pool.Traders() {
		if len(args) == 1 && t.Personality().ID != args[0] {
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatPortfolio(t.Portfolio()))
	}
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	a, err := newLedgers(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	t, ok := a.pool.Get(args[0])
	if !ok {
		return fmt.Errorf("unknown personality %q", args[0])
	}
	if !t.Reset() {
		return fmt.Errorf("%s: tick in progress", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s reset to $%.2f\n", t.Personality().Name, t.Ledger().Cash())
	return nil
}

func runLearningsSet(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var req struct {
		Core  model.ModuleWeights `json:"core"`
		Pulse model.ModuleWeights `json:"pulse"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	a, err := newCore(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.optimizer.StoreLearnings(cmd.Context(), req.Core, req.Pulse)
}

func runLearningsClear(cmd *cobra.Command, _ []string) error {
	a, err := newCore(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.optimizer.ClearLearnings(cmd.Context())
}

func runLearningsShow(cmd *cobra.Command, _ []string) error {
	a, err := newCore(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	learned, ok, err := a.optimizer.Learned(cmd.Context())
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "no learned weights stored")
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(learned)
}
