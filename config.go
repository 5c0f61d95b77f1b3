package main

import "os"

// Config carries the process-level settings, all sourced from the
// environment (a .env file is loaded by the services package init).
type Config struct {
	Port         string
	GeminiAPIKey string
	GeminiModel  string
	OllamaURL    string
	EmbedModel   string
	DataDir      string // index artifacts
	DocsDir      string // raw uploads
	DBPath       string // sessions and query logs
}

func loadConfig() Config {
	return Config{
		Port:         envOr("PORT", "8080"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  envOr("GEMINI_MODEL", ""),
		OllamaURL:    envOr("OLLAMA_URL", ""),
		EmbedModel:   envOr("EMBED_MODEL", ""),
		DataDir:      envOr("DATA_DIR", "indices"),
		DocsDir:      envOr("DOCS_DIR", "docs"),
		DBPath:       envOr("DB_PATH", "data/docuchat.db"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
