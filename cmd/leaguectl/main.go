// Command leaguectl administers the league database from the shell.
//
// Usage:
//
//	leaguectl migrate
//	leaguectl standings <competition-id> [--groups]
//	leaguectl fixtures generate <competition-id> --start 2025-08-16 --groups 4
//	leaguectl advance <competition-id>
//	leaguectl advance --completed
//	leaguectl archive <competition-id>
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/Dosada05/football-league/brackets"
	"github.com/Dosada05/football-league/config"
	"github.com/Dosada05/football-league/db"
	"github.com/Dosada05/football-league/repositories"
	"github.com/Dosada05/football-league/services"
	"github.com/Dosada05/football-league/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	root := &cobra.Command{
		Use:           "leaguectl",
		Short:         "Football league administration CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(standingsCmd())
	root.AddCommand(fixturesCmd())
	root.AddCommand(advanceCmd())
	root.AddCommand(archiveCmd())

	if err := root.Execute(); err != nil {
		logger.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

type app struct {
	db           *sql.DB
	competitions services.CompetitionService
	standings    services.StandingsService
	fixtures     services.FixtureService
	advancement  services.AdvancementService
}

func run(fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	conn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer conn.Close()

	a, err := newApp(ctx, cfg, conn)
	if err != nil {
		return err
	}
	return fn(ctx, a)
}

func newApp(ctx context.Context, cfg *config.Config, conn *sql.DB) (*app, error) {
	legPolicy, err := brackets.ParseLegPolicy(cfg.DefaultLegPolicy)
	if err != nil {
		return nil, err
	}

	var archiver services.StandingsArchiver
	r2Cfg := storage.R2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
		Endpoint:        cfg.R2Endpoint,
	}
	if r2Cfg.Configured() {
		uploader, err := storage.NewR2Uploader(ctx, r2Cfg)
		if err != nil {
			return nil, fmt.Errorf("init R2 uploader: %w", err)
		}
		archiver = storage.NewStandingsArchiver(uploader, logger)
	}

	tx := repositories.NewPostgresTransactor(conn, logger)
	teamRepo := repositories.NewPostgresTeamRepository(conn)
	competitionRepo := repositories.NewPostgresCompetitionRepository(conn)
	memberRepo := repositories.NewPostgresCompetitionTeamRepository(conn)
	groupRepo := repositories.NewPostgresGroupRepository(conn)
	matchRepo := repositories.NewPostgresMatchRepository(conn)

	competitions := services.NewCompetitionService(tx, competitionRepo, memberRepo, teamRepo, matchRepo, logger)
	standings := services.NewStandingsService(competitionRepo, memberRepo, groupRepo, matchRepo, archiver, logger)
	fixtures := services.NewFixtureService(services.FixtureServiceDeps{
		Tx:              tx,
		CompetitionRepo: competitionRepo,
		MemberRepo:      memberRepo,
		GroupRepo:       groupRepo,
		RoundRepo:       repositories.NewPostgresKnockoutRoundRepository(conn),
		MatchRepo:       matchRepo,
		Standings:       standings,
		Shuffler:        brackets.NewShuffler(cfg.ShuffleSeed),
		LegPolicy:       legPolicy,
		Logger:          logger,
	})
	advancement := services.NewAdvancementService(
		competitionRepo,
		memberRepo,
		repositories.NewPostgresAdvancementRuleRepository(conn),
		standings,
		competitions,
		nil,
		logger,
	)

	return &app{
		db:           conn,
		competitions: competitions,
		standings:    standings,
		fixtures:     fixtures,
		advancement:  advancement,
	}, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func competitionArg(args []string) (uuid.UUID, error) {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid competition id %q: %w", args[0], err)
	}
	return id, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, a *app) error {
				applied, err := db.Migrate(ctx, a.db, logger)
				if err != nil {
					return err
				}
				logger.Info("migrations finished", slog.Int("applied", len(applied)))
				return nil
			})
		},
	}
}

func standingsCmd() *cobra.Command {
	var groups bool
	cmd := &cobra.Command{
		Use:   "standings <competition-id>",
		Short: "Print the current table of a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := competitionArg(args)
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, a *app) error {
				if groups {
					tables, err := a.standings.Groups(ctx, id)
					if err != nil {
						return err
					}
					return printJSON(tables)
				}
				rows, err := a.standings.Competition(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(rows)
			})
		},
	}
	cmd.Flags().BoolVar(&groups, "groups", false, "Print one table per group")
	return cmd
}

func fixturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Fixture generation and scheduling",
	}
	cmd.AddCommand(fixturesGenerateCmd())
	return cmd
}

func fixturesGenerateCmd() *cobra.Command {
	var (
		start     string
		numGroups int
		matchDays int
		roundDays int
		legPolicy string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "generate <competition-id>",
		Short: "Generate the fixtures of a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := competitionArg(args)
			if err != nil {
				return err
			}
			input := services.GenerateFixturesInput{
				DaysBetweenMatches: matchDays,
				DaysBetweenRounds:  roundDays,
				NumGroups:          numGroups,
				LegPolicy:          legPolicy,
			}
			if start != "" {
				t, err := time.Parse("2006-01-02", start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				input.StartDate = &t
			}
			return run(func(ctx context.Context, a *app) error {
				if dryRun {
					c, err := a.competitions.Get(ctx, id)
					if err != nil {
						return err
					}
					return printJSON(map[string]interface{}{"competition": c, "input": input})
				}
				result, err := a.fixtures.Generate(ctx, id, input)
				if err != nil {
					return err
				}
				logger.Info("fixtures generated",
					slog.String("competition_id", id.String()),
					slog.Int("matches", len(result.Matches)),
					slog.Int("groups", len(result.Groups)),
					slog.Int("rounds", len(result.Rounds)),
				)
				return printJSON(result)
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First match date (YYYY-MM-DD), defaults to today")
	cmd.Flags().IntVar(&numGroups, "groups", 0, "Number of groups for group_knockout")
	cmd.Flags().IntVar(&matchDays, "days-between-matches", 0, "Days between matchdays")
	cmd.Flags().IntVar(&roundDays, "days-between-rounds", 0, "Days between knockout rounds")
	cmd.Flags().StringVar(&legPolicy, "leg-policy", "", "reverse_venues | repeat")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only print the competition and the input")
	return cmd
}

func advanceCmd() *cobra.Command {
	var completed bool
	cmd := &cobra.Command{
		Use:   "advance [competition-id]",
		Short: "Apply auto_apply advancement rules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if completed == (len(args) == 1) {
				return fmt.Errorf("pass either a competition id or --completed")
			}
			return run(func(ctx context.Context, a *app) error {
				var (
					outcomes []services.RuleOutcome
					err      error
				)
				if completed {
					outcomes, err = a.advancement.ApplyCompletedRules(ctx)
				} else {
					id, perr := competitionArg(args)
					if perr != nil {
						return perr
					}
					outcomes, err = a.advancement.ApplyRules(ctx, id)
				}
				if err != nil {
					return err
				}
				return printJSON(outcomes)
			})
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "Apply the rules of every completed competition")
	return cmd
}

func archiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <competition-id>",
		Short: "Upload the current table to the standings archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := competitionArg(args)
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, a *app) error {
				key, err := a.standings.Archive(ctx, id)
				if err != nil {
					return err
				}
				if key == "" {
					return fmt.Errorf("standings archive is not configured (R2_* variables)")
				}
				fmt.Fprintln(os.Stdout, key)
				return nil
			})
		},
	}
}
