package config

import (
	"testing"
)

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", User: "app", Password: "secret", DBName: "callsight"}
	want := "postgres://app:secret@db:5432/callsight?sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}

	cfg.URL = "postgres://other"
	if got := cfg.DSN(); got != "postgres://other" {
		t.Fatalf("DSN() = %q, explicit url must win", got)
	}
}

func TestPostgresValidate(t *testing.T) {
	if err := (PostgresConfig{URL: "postgres://x"}).Validate(); err != nil {
		t.Fatalf("url-only config: %v", err)
	}
	if err := (PostgresConfig{Host: "db"}).Validate(); err == nil {
		t.Fatal("expected error when dbname missing")
	}
	if err := (PostgresConfig{DBName: "callsight"}).Validate(); err == nil {
		t.Fatal("expected error when host missing")
	}
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache"}
	if !cfg.Enabled() {
		t.Fatal("host set means enabled")
	}
	if cfg.Addr() != "cache:6379" {
		t.Fatalf("Addr() = %q", cfg.Addr())
	}
	if (RedisConfig{}).Enabled() {
		t.Fatal("empty host means disabled")
	}
}

func TestOpenAIValidate(t *testing.T) {
	if err := (OpenAIConfig{}).Validate(); err == nil {
		t.Fatal("expected error when api key missing")
	}
	if err := (OpenAIConfig{APIKey: "sk-test"}).Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}
}
