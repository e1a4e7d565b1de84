// Package config loads process-wide environment variables from a .env file
// before app.MustNew reads them.
package config

import (
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env into the process environment if present. A missing
// file is not an error -- production deployments set real env vars
// directly and never ship a .env.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded (%v)", err)
	}
}
