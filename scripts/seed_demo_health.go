package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"healthmate/backend/internal/apierr"
	"healthmate/backend/internal/config"
	"healthmate/backend/internal/health"
	"healthmate/backend/internal/logger"
	"healthmate/backend/internal/store"
	"healthmate/backend/internal/users"
)

func main() {
	var (
		email    string
		password string
		name     string
		backend  string
		dataDir  string
		snapshot string
	)

	flag.StringVar(&email, "email", "demo@healthmate.local", "demo account email")
	flag.StringVar(&password, "password", "demo-password", "demo account password")
	flag.StringVar(&name, "name", "Demo User", "demo account name")
	flag.StringVar(&backend, "store", "", "STORE_BACKEND override (file, postgres, redis)")
	flag.StringVar(&dataDir, "data-dir", "", "DATA_DIR override for the file store")
	flag.StringVar(&snapshot, "snapshot", "high", "metrics snapshot to submit: low, medium or high")
	flag.Parse()

	cfg := config.Load()
	if strings.TrimSpace(backend) != "" {
		cfg.StoreBackend = strings.ToLower(strings.TrimSpace(backend))
	}
	if strings.TrimSpace(dataDir) != "" {
		cfg.DataDir = strings.TrimSpace(dataDir)
	}

	metrics, ok := demoSnapshots[strings.ToLower(strings.TrimSpace(snapshot))]
	if !ok {
		log.Fatalf("unsupported snapshot %q (use low, medium or high)", snapshot)
	}

	seedLog, err := logger.New("dev", cfg.LogRedact)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer seedLog.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	docs, err := store.Open(ctx, cfg, seedLog)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer docs.Close()

	accounts := users.NewService(docs, cfg, seedLog)
	user, err := accounts.Signup(ctx, users.SignupInput{
		Name:     name,
		Email:    email,
		Phone:    "555-0100",
		Gender:   "other",
		Password: password,
		Age:      42,
	})
	if apierr.StatusOf(err, 0) == http.StatusConflict {
		user, _, err = accounts.Login(ctx, email, password)
	}
	if err != nil {
		log.Fatalf("prepare demo user: %v", err)
	}

	records := health.NewService(docs, accounts, cfg.PointsPerSubmission, seedLog)
	result, err := records.Submit(ctx, user.ID, metrics)
	if err != nil {
		log.Fatalf("submit metrics: %v", err)
	}

	fmt.Printf(
		"seed complete user_id=%s email=%s risk_level=%s points_earned=%d warnings=%v\n",
		user.ID,
		user.Email,
		result.Tier,
		result.PointsEarned,
		result.Warnings,
	)
}

var demoSnapshots = map[string]map[string]any{
	"low": {
		"weight":                  68.0,
		"height":                  175.0,
		"blood_pressure_systolic": 115.0,
		"heart_rate":              70.0,
		"glucose_level":           92.0,
	},
	"medium": {
		"weight":                  82.0,
		"height":                  175.0,
		"blood_pressure_systolic": 135.0,
		"heart_rate":              72.0,
		"glucose_level":           95.0,
	},
	"high": {
		"weight":                  90.0,
		"height":                  170.0,
		"blood_pressure_systolic": 145.0,
		"heart_rate":              88.0,
		"glucose_level":           150.0,
	},
}
