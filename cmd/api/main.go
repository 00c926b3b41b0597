package main

import (
	"log"
	"net/http"

	"violin/internal/api"
	"violin/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		_ = closeLog()
	}()

	s, err := api.NewServer(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("violin api listening on %s queue=%s", cfg.APIAddr, cfg.TemporalTaskQueue)
	if err := http.ListenAndServe(cfg.APIAddr, s.Routes()); err != nil {
		log.Fatal(err)
	}
}
