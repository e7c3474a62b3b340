// Batch runs a YAML test set through the full engine offline: score,
// aggregate, gate, and print the console report. State lives in an
// in-memory store, so nothing persists between invocations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/evalgate/evalgate/internal/batch"
	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/models"
	"github.com/evalgate/evalgate/internal/report"
	"github.com/evalgate/evalgate/internal/setup"
)

func main() {
	file := flag.String("f", "", "Test set YAML file")
	adapterName := flag.String("adapter", "", "Adapter to run the cases through (empty scores stored text)")
	version := flag.String("version", "", "Pipeline version label for the report")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: batch -f <test-set.yaml> [-adapter demo_rag]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := run(*file, *adapterName, *version); err != nil {
		log.Error().Err(err).Msg("batch run failed")
		os.Exit(1)
	}
}

func run(file, adapterName, version string) error {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	cfg.Store.Driver = "memory"

	ctx := context.Background()
	deps, err := setup.Wire(ctx, cfg, setup.LoadProviders(), log.Logger)
	if err != nil {
		return err
	}

	set, cases, err := batch.ReadFile(file)
	if err != nil {
		return err
	}
	if err := deps.Store.SaveTestSet(ctx, set); err != nil {
		return err
	}
	for i := range cases {
		if err := deps.Store.SaveTestCase(ctx, &cases[i]); err != nil {
			return err
		}
	}

	evalRun := &models.EvaluationRun{
		ID:                    uuid.New(),
		TestSetID:             set.ID,
		PipelineVersion:       version,
		TriggeredBy:           "batch",
		Status:                models.RunStatusPending,
		StartedAt:             time.Now().UTC(),
		GateThresholdSnapshot: cfg.ThresholdsFor(set.SystemType),
	}
	if adapterName != "" {
		evalRun.PipelineConfig = map[string]any{"adapter": adapterName}
	}
	if err := deps.Store.CreateRun(ctx, evalRun); err != nil {
		return err
	}

	if err := deps.Runner.Process(ctx, evalRun.ID); err != nil {
		return err
	}

	finished, err := deps.Store.GetRun(ctx, evalRun.ID)
	if err != nil {
		return err
	}
	results, err := deps.Store.ListResults(ctx, evalRun.ID)
	if err != nil {
		return err
	}

	queries := make(map[string]string, len(cases))
	for _, tc := range cases {
		queries[tc.ID.String()] = tc.Query
	}

	decision := deps.Decider.Decide(finished, results)
	report.WriteRun(os.Stdout, report.Run{
		Run:     finished,
		Results: results,
		Queries: queries,
		Gate:    &decision,
	})

	diff, err := deps.Differ.Diff(ctx, finished)
	if err != nil {
		return err
	}
	report.WriteDiff(os.Stdout, diff)

	if !decision.Passed {
		os.Exit(2)
	}
	return nil
}
