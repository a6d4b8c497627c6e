package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/xtrinch/food-coach/internal/backup"
	"github.com/xtrinch/food-coach/internal/config"
	"github.com/xtrinch/food-coach/internal/database"
	"github.com/xtrinch/food-coach/internal/domain"
	"github.com/xtrinch/food-coach/internal/drivesync"
	apperrors "github.com/xtrinch/food-coach/internal/errors"
	"github.com/xtrinch/food-coach/internal/logger"
	"github.com/xtrinch/food-coach/internal/photo"
	"github.com/xtrinch/food-coach/internal/repository"
	"github.com/xtrinch/food-coach/internal/services"
)

type app struct {
	cfg      *config.Config
	store    *repository.Store
	settings *config.SettingsFile
	backups  *backup.Manager
	diary    *services.DiaryService
	jobs     *services.AnalysisJobService
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}

	store := repository.New(db)
	settings := config.NewSettingsFile(cfg.SettingsPath)
	a := &app{
		cfg:      cfg,
		store:    store,
		settings: settings,
		backups:  backup.NewManager(store, settings),
		diary:    services.NewDiaryService(store),
		jobs:     services.NewAnalysisJobService(store),
	}

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	if err := a.run(ctx, args[0], args[1:]); err != nil {
		apperrors.NewHandler(logger.GetLogger()).Handle(ctx, err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: food-coach <command> [flags]

Commands:
  show        print a day's log and totals
  add-meal    log a meal and estimate its calories
  add-note    log a free-text note
  delete-day  delete a day's log and its insight
  insight     generate the daily insight
  jobs        list analysis jobs
  export      write a backup file
  import      restore from a backup file
  sync-up     upload a backup to Google Drive
  sync-down   restore from the Google Drive backup`)
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "show":
		return a.cmdShow(ctx, args)
	case "add-meal":
		return a.cmdAddMeal(ctx, args)
	case "add-note":
		return a.cmdAddNote(ctx, args)
	case "delete-day":
		return a.cmdDeleteDay(ctx, args)
	case "insight":
		return a.cmdInsight(ctx, args)
	case "jobs":
		return a.cmdJobs(ctx)
	case "export":
		return a.cmdExport(ctx, args)
	case "import":
		return a.cmdImport(ctx, args)
	case "sync-up":
		return a.cmdSyncUp(ctx)
	case "sync-down":
		return a.cmdSyncDown(ctx)
	default:
		usage()
		return apperrors.NewValidationError(fmt.Sprintf("unknown command %q", command))
	}
}

func (a *app) cmdShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	date := fs.String("date", domain.TodayID(), "day to show (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dayLog, err := a.diary.EnsureLog(ctx, *date)
	if err != nil {
		return err
	}

	totals := dayLog.Totals()
	fmt.Printf("%s: %d meals, %d notes\n", dayLog.Date, len(dayLog.Meals), len(dayLog.Notes))
	for _, meal := range dayLog.Meals {
		if kcal := meal.EffectiveCalories(); kcal != nil {
			fmt.Printf("  %.0f kcal  %s\n", *kcal, meal.Description)
		} else {
			fmt.Printf("  ? kcal  %s\n", meal.Description)
		}
	}
	for _, note := range dayLog.Notes {
		fmt.Printf("  note: %s\n", note.Text)
	}
	fmt.Printf("Totals: %.0f kcal, %.0fg protein, %.0fg carbs, %.0fg fat, %.0fg fiber\n",
		totals.Calories, totals.Protein, totals.Carbs, totals.Fat, totals.Fiber)
	return nil
}

func (a *app) cmdAddMeal(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-meal", flag.ExitOnError)
	date := fs.String("date", domain.TodayID(), "day to log (YYYY-MM-DD)")
	desc := fs.String("desc", "", "meal description")
	photoPath := fs.String("photo", "", "optional photo file")
	skipEstimate := fs.Bool("no-estimate", false, "skip the calorie estimation call")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *desc == "" && *photoPath == "" {
		return apperrors.NewValidationError("add-meal needs -desc or -photo")
	}

	photoDataURL := ""
	if *photoPath != "" {
		data, err := os.ReadFile(*photoPath)
		if err != nil {
			return fmt.Errorf("read photo: %w", err)
		}
		mime := "image/jpeg"
		if strings.EqualFold(filepath.Ext(*photoPath), ".png") {
			mime = "image/png"
		}
		photoDataURL = photo.EncodeDataURL(mime, data)
	}

	// The meal commits before the estimation call is even issued; a failed
	// estimate leaves the entry in place for retry.
	meal, err := a.diary.AddMeal(ctx, *date, *desc, photoDataURL)
	if err != nil {
		return err
	}
	fmt.Printf("Logged meal %s on %s\n", meal.ID, *date)

	if *skipEstimate {
		return nil
	}

	ai, err := a.buildAI(ctx)
	if err != nil {
		return err
	}
	defer ai.Close()

	estimation := services.NewEstimationService(a.diary, ai, a.jobs)
	estimate, err := estimation.EstimateMeal(ctx, *date, meal.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Estimated %.0f kcal: %s\n", estimate.Calories, estimate.Explanation)
	return nil
}

func (a *app) cmdAddNote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-note", flag.ExitOnError)
	date := fs.String("date", domain.TodayID(), "day to log (YYYY-MM-DD)")
	text := fs.String("text", "", "note text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *text == "" {
		return apperrors.NewValidationError("add-note needs -text")
	}

	note, err := a.diary.AddNote(ctx, *date, *text)
	if err != nil {
		return err
	}
	fmt.Printf("Logged note %s on %s\n", note.ID, *date)
	return nil
}

func (a *app) cmdDeleteDay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-day", flag.ExitOnError)
	date := fs.String("date", "", "day to delete (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *date == "" {
		return apperrors.NewValidationError("delete-day needs -date")
	}
	if err := a.diary.DeleteDay(ctx, *date); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", *date)
	return nil
}

func (a *app) cmdInsight(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("insight", flag.ExitOnError)
	date := fs.String("date", domain.TodayID(), "focus date (YYYY-MM-DD)")
	force := fs.Bool("force", false, "regenerate even if an insight exists")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ai, err := a.buildAI(ctx)
	if err != nil {
		return err
	}
	defer ai.Close()

	insights := services.NewInsightService(a.store, a.diary, ai, a.jobs)
	var insight *domain.DailyInsight
	if *force {
		insight, err = insights.Regenerate(ctx, *date)
	} else {
		insight, err = insights.RunIfNeeded(ctx, *date)
	}
	if err != nil {
		return err
	}
	if insight == nil {
		fmt.Println("No history to summarize yet.")
		return nil
	}
	fmt.Printf("Insight for %s (model %s):\n%s\n", insight.Date, insight.Model, insight.PrettyText)
	return nil
}

func (a *app) cmdJobs(ctx context.Context) error {
	jobs, err := a.jobs.List(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if job.Dismissed {
			continue
		}
		fmt.Printf("%s  %-7s  %-7s  %s\n", job.StartedAt.Format(time.RFC3339), job.Type, job.Status, job.Label)
		if job.ErrorMessage != "" {
			fmt.Printf("    error: %s\n", job.ErrorMessage)
		}
	}
	return nil
}

func (a *app) cmdExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("o", backup.FileName(time.Now()), "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	payload, err := a.backups.ExportToFile(ctx, *out)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d logs, %d insights, %d jobs to %s\n",
		len(payload.DailyLogs), len(payload.DailyInsights), len(payload.AnalysisJobs), *out)
	return nil
}

func (a *app) cmdImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	in := fs.String("i", "", "backup file to restore")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return apperrors.NewValidationError("import needs -i <file>")
	}

	payload, err := a.backups.ImportFromFile(ctx, *in)
	if err != nil {
		return err
	}
	fmt.Printf("Restored %d logs, %d insights, %d jobs from %s\n",
		len(payload.DailyLogs), len(payload.DailyInsights), len(payload.AnalysisJobs), *in)
	return nil
}

func (a *app) cmdSyncUp(ctx context.Context) error {
	sync := a.buildSync()
	result, err := sync.SyncUp(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded backup (file %s, modified %s)\n", result.FileID, result.ModifiedTime)
	return nil
}

func (a *app) cmdSyncDown(ctx context.Context) error {
	sync := a.buildSync()
	payload, err := sync.ImportFromRemote(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Restored %d logs, %d insights, %d jobs from Drive\n",
		len(payload.DailyLogs), len(payload.DailyInsights), len(payload.AnalysisJobs))
	return nil
}

func (a *app) buildAI(ctx context.Context) (*services.AIService, error) {
	cfg := a.cfg.AI
	if cfg.OpenAIAPIKey == "" {
		// A key restored from a backup takes over when the env is unset.
		cfg.OpenAIAPIKey = a.settings.OpenAIAPIKey()
	}
	return services.NewAIService(ctx, cfg, a.jobs)
}

func (a *app) buildSync() *drivesync.Service {
	tokens := drivesync.NewCachedTokenProvider(a.cfg.TokenPath, drivesync.NewConsoleAuthenticator(a.cfg.Drive))
	client := drivesync.NewClient(tokens, 0)
	return drivesync.NewService(client, a.backups, a.settings)
}
