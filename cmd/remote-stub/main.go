package main

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/logging"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/remotetest"
)

// A local stand-in for the prediction service, for running the gateway and
// the CLI without the real backend.
func main() {
	_ = godotenv.Load()

	// Setup logging
	logging.Setup(getEnv("LOG_LEVEL", "info"), true)

	service := remotetest.New()
	if email := os.Getenv("STUB_USER_EMAIL"); email != "" {
		user, err := service.AddUser(getEnv("STUB_USER_NAME", "Demo User"), email, getEnv("STUB_USER_PASSWORD", "password"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed user")
		}
		log.Info().Int("user_id", user.ID).Str("email", user.Email).Msg("Seeded user")
	}

	port := getEnv("STUB_PORT", "5000")
	log.Info().Str("port", port).Str("prefix", remotetest.Prefix).Msg("Remote stub starting")

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      service.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Fatal().Err(server.ListenAndServe()).Msg("Server failed")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
