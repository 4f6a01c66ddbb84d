package config

import (
	"testing"
	"time"
)

func TestNewFromEnv(t *testing.T) {
	// Helper function to set environment variables for a test
	setEnv := func(t *testing.T, kv map[string]string) {
		t.Helper()
		for _, key := range []string{
			"LLM_PROVIDER", "OPENAI_API_KEY", "GROQ_API_KEY", "GEMINI_API_KEY",
			"STORE_BACKEND", "FIRESTORE_PROJECT_ID", "TELEGRAM_ALLOWED_USER_IDS",
			"CACHE_TTL_SECONDS", "FAMILY_ID", "CORS_ORIGINS",
		} {
			t.Setenv(key, "")
		}
		for k, v := range kv {
			t.Setenv(k, v)
		}
	}

	t.Run("Success", func(t *testing.T) {
		setEnv(t, map[string]string{
			"OPENAI_API_KEY":            "openai_key",
			"TELEGRAM_ALLOWED_USER_IDS": "12, 34",
			"CORS_ORIGINS":              "http://localhost:5173",
		})

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.LLMProvider != ProviderOpenAI {
			t.Errorf("Expected provider 'openai', got '%s'", cfg.LLMProvider)
		}
		if cfg.FamilyID != "fam_8829_xyz" {
			t.Errorf("Expected default family id, got '%s'", cfg.FamilyID)
		}
		if cfg.CacheTTL != 600*time.Second {
			t.Errorf("Expected 600s cache ttl, got %s", cfg.CacheTTL)
		}
		if cfg.StoreBackend != BackendSQLite {
			t.Errorf("Expected sqlite backend, got '%s'", cfg.StoreBackend)
		}
		if len(cfg.TelegramAllowedUserIDs) != 2 || cfg.TelegramAllowedUserIDs[1] != 34 {
			t.Errorf("Expected allowed ids [12 34], got %v", cfg.TelegramAllowedUserIDs)
		}
		if len(cfg.CORSOrigins) != 1 {
			t.Errorf("Expected one CORS origin, got %v", cfg.CORSOrigins)
		}
	})

	t.Run("MissingOpenAIKey", func(t *testing.T) {
		setEnv(t, nil)

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing OPENAI_API_KEY, got nil")
		}
		expectedError := "OPENAI_API_KEY environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("MissingGeminiAPIKey", func(t *testing.T) {
		setEnv(t, map[string]string{"LLM_PROVIDER": "gemini", "OPENAI_API_KEY": "unused"})

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing GEMINI_API_KEY, got nil")
		}
		expectedError := "GEMINI_API_KEY environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("FirestoreNeedsProject", func(t *testing.T) {
		setEnv(t, map[string]string{"GROQ_API_KEY": "groq_key", "LLM_PROVIDER": "groq", "STORE_BACKEND": "firestore"})

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing FIRESTORE_PROJECT_ID, got nil")
		}
		expectedError := "FIRESTORE_PROJECT_ID environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("BadCacheTTL", func(t *testing.T) {
		setEnv(t, map[string]string{"OPENAI_API_KEY": "k", "CACHE_TTL_SECONDS": "soon"})

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for a non-numeric CACHE_TTL_SECONDS")
		}
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		setEnv(t, map[string]string{"LLM_PROVIDER": "parrot"})

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for an unknown provider")
		}
	})
}
