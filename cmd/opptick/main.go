package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"opptick/internal/bot"
	"opptick/internal/config"
	"opptick/internal/repository"
	"opptick/internal/scheduler"
	"opptick/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	oppRepo := repository.NewOpportunityRepository(db)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("bot api: %v", err)
	}

	notifier := bot.NewNotifier(api)
	sched := scheduler.New(oppRepo, notifier)
	defer sched.Stop()

	oppSvc := service.NewOpportunityService(oppRepo, sched)
	summarySvc := service.NewSummaryService(oppRepo)
	sweeper := service.NewSweeper(oppRepo, notifier)

	telegramBot := bot.New(api, userRepo, oppSvc, summarySvc, nil, cfg.CaptureTTL)

	// Reminder timers are never persisted; rebuild them from the store.
	if err := sched.Recover(ctx); err != nil {
		log.Fatalf("reminder recovery: %v", err)
	}

	runSweep := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sweeper.Sweep(jobCtx, time.Now()); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("sweep: %v", err)
		}
	}

	cronJobs := service.NewCron(time.Local)
	if _, err := cronJobs.Daily(cfg.SweepTime, runSweep); err != nil {
		log.Fatalf("schedule sweep: %v", err)
	}
	if _, err := cronJobs.Daily(cfg.SummaryTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := telegramBot.SendDailySummaries(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("daily summary: %v", err)
		}
	}); err != nil {
		log.Fatalf("schedule summary: %v", err)
	}
	cronJobs.Start()
	defer cronJobs.Stop()

	// A bot that was down past some deadlines should alert soon after boot,
	// not wait for the next daily slot.
	startupSweep := time.AfterFunc(cfg.StartupSweep, runSweep)
	defer startupSweep.Stop()

	log.Println("OppTick bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
