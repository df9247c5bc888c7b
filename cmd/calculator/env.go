package main

import (
	"go-chi-calculator/internal/config"
)

// loadDotEnv loads environment variables from .env when present.
// Existing process environment variables are not overridden.
func loadDotEnv() error {
	return config.LoadDotEnv()
}
