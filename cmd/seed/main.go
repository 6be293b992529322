package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"studiobook/internal/config"
	"studiobook/internal/database"
	"studiobook/internal/logger"
	"studiobook/internal/models"
	"studiobook/internal/repository"
	"studiobook/internal/service"
)

var (
	members  = flag.Int("members", 50, "Members to create")
	sessions = flag.Int("sessions", 20, "Sessions to create over the next 14 days")
	dryRun   = flag.Bool("dry-run", false, "Show what would be created without making changes")
)

var sessionTitles = []string{
	"Vinyasa Flow",
	"Power Yoga",
	"Pilates Mat",
	"Spin 45",
	"HIIT Circuit",
	"Boxing Fundamentals",
	"Mobility & Stretch",
	"Strength Basics",
}

// seed fills a development database with a studio, members and a schedule.
type seeder struct {
	db       *database.DB
	repos    *repository.Repositories
	studioID int64
}

func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	logger.Get().Info("Starting seeder", "members", *members, "sessions", *sessions, "dry_run", *dryRun)

	if *dryRun {
		logger.Get().Info("Dry run: no changes will be made")
		return
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	s := &seeder{db: db, repos: repository.NewRepositories(db)}

	ctx := context.Background()
	if err := s.run(ctx); err != nil {
		logger.Get().Error("Seeding failed", "error", err)
		os.Exit(1)
	}

	logger.Get().Info("Seeding completed successfully")
}

func (s *seeder) run(ctx context.Context) error {
	if err := s.createStudio(ctx); err != nil {
		return fmt.Errorf("failed to create studio: %w", err)
	}

	if err := s.createMembers(ctx); err != nil {
		return fmt.Errorf("failed to create members: %w", err)
	}

	if err := s.createSessions(ctx); err != nil {
		return fmt.Errorf("failed to create sessions: %w", err)
	}

	return nil
}

func (s *seeder) createStudio(ctx context.Context) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO studios (name) VALUES ($1) RETURNING id`,
		"Demo Studio").Scan(&s.studioID)
	if err != nil {
		return err
	}

	logger.Get().Info("Created studio", "studio_id", s.studioID)
	return nil
}

func (s *seeder) createMembers(ctx context.Context) error {
	staff := &models.Member{
		StudioID:     s.studioID,
		Email:        "staff@demo.studio",
		PasswordHash: service.HashPassword("staffpass123"),
		FirstName:    "Front",
		Surname:      "Desk",
		Role:         models.RoleStaff,
		Unlimited:    true,
	}
	if err := s.repos.Members.Create(ctx, staff); err != nil {
		return err
	}

	for i := 1; i <= *members; i++ {
		member := &models.Member{
			StudioID:     s.studioID,
			Email:        fmt.Sprintf("member%d@demo.studio", i),
			PasswordHash: service.HashPassword(fmt.Sprintf("memberpass%d", i)),
			FirstName:    fmt.Sprintf("Member%d", i),
			Surname:      "Demo",
			Role:         models.RoleMember,
			Credits:      rand.Intn(20),
			Unlimited:    i%10 == 0,
		}
		if err := s.repos.Members.Create(ctx, member); err != nil {
			return err
		}
	}

	logger.Get().Info("Created members", "count", *members+1)
	return nil
}

func (s *seeder) createSessions(ctx context.Context) error {
	now := time.Now()

	for i := 0; i < *sessions; i++ {
		day := rand.Intn(14)
		hour := 7 + rand.Intn(13)
		startsAt := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location()).
			AddDate(0, 0, day+1)

		session := &models.ClassSession{
			StudioID: s.studioID,
			Title:    sessionTitles[rand.Intn(len(sessionTitles))],
			StartsAt: startsAt,
			Capacity: 5 + rand.Intn(20),
		}
		if err := s.repos.Sessions.Create(ctx, session); err != nil {
			return err
		}
	}

	logger.Get().Info("Created sessions", "count", *sessions)
	return nil
}
