package db

import (
	"orderconsumer/internal/config"
	"testing"
)

func TestLookupQuery(t *testing.T) {
	got := lookupQuery("transactions", "entity_id")
	want := `SELECT "entity_id" AS value FROM "transactions" WHERE id = $1`
	if got != want {
		t.Errorf("error: got %q, want %q", got, want)
	}
}

func TestLookupQuery_Sanitized(t *testing.T) {
	got := lookupQuery(`tx"; DROP TABLE x; --`, "entity_id")
	want := `SELECT "entity_id" AS value FROM "tx""; DROP TABLE x; --" WHERE id = $1`
	if got != want {
		t.Errorf("error: identifier not quoted: %q", got)
	}
}

func TestUpsertQuery(t *testing.T) {
	got := upsertQuery("transactions", "entity_id")
	want := `INSERT INTO "transactions" (id, "entity_id") VALUES ($1, $2) ` +
		`ON CONFLICT (id) DO UPDATE SET "entity_id" = EXCLUDED."entity_id"`
	if got != want {
		t.Errorf("error: got %q, want %q", got, want)
	}
}

func TestConnString(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "db", Port: 5432, User: "orders", Password: "secret", Database: "orders", SSLMode: "disable",
	}
	want := "postgres://orders:secret@db:5432/orders?sslmode=disable"
	if got := connString(&cfg); got != want {
		t.Errorf("error: got %q, want %q", got, want)
	}
}
