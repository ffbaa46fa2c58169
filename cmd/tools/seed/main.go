// Command seed generates demo CSV exports into the configured data directory.
package main

import (
	"flag"
	"log"

	"github.com/karloscodes/cartridge"

	"toylytics/internal/config"
	"toylytics/internal/seeder"
)

func main() {
	sessionCount := flag.Int("sessions", 5000, "number of website sessions to generate")
	flag.Parse()

	cfg := config.GetConfig()
	logger := cartridge.NewLogger(cfg, nil)

	s := seeder.NewSeeder(logger, cfg, *sessionCount)
	if err := s.Run(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
