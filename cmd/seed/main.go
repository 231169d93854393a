// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"jobboard-billing/internal/config"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
	pg "jobboard-billing/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planRepo := pg.NewPlanRepo(pool)

	// If plans already exist, do nothing
	plans, err := planRepo.ListAll(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (duration=%s, posts=%d, price=%.2f)\n", p.Name, p.Duration, p.JobPostsAllowed, p.FinalPrice)
		}
		return
	}

	// Seed sample plans for testing the checkout flow
	seed := []struct {
		Name     string
		Duration string
		Posts    int
		Price    float64
		Final    float64
	}{
		{"Single Post", "per post", 1, 499.00, 499.00},
		{"Monthly", "monthly", 10, 2999.00, 2499.00},
		{"Yearly", "yearly", 150, 24999.00, 19999.00},
	}

	for _, s := range seed {
		p, err := model.NewPlan(uuid.NewString(), s.Name, s.Price, s.Final, s.Duration, s.Posts)
		if err != nil {
			log.Fatalf("build plan %q: %v", s.Name, err)
		}
		if err := planRepo.Save(ctx, repository.NoTX, p); err != nil {
			log.Fatalf("save plan %q: %v", s.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, duration=%s, posts=%d, price=%.2f)\n", p.Name, p.ID, p.Duration, p.JobPostsAllowed, p.FinalPrice)
	}

	fmt.Println("Seeding complete.")
}
