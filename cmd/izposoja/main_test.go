package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

func TestEnsureAdminCreatesOnce(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	password, err := ensureAdmin(ctx, database, "Admin")
	if err != nil {
		t.Fatalf("ensureAdmin: %v", err)
	}
	if len(password) != 16 {
		t.Fatalf("expected a 16 character password, got %q", password)
	}

	user, err := store.GetUserByUsername(ctx, database, "Admin")
	if err != nil || user == nil {
		t.Fatalf("admin not created: %v", err)
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("expected admin role, got %q", user.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		t.Error("stored hash does not match the printed password")
	}

	again, err := ensureAdmin(ctx, database, "Other")
	if err != nil {
		t.Fatalf("second ensureAdmin: %v", err)
	}
	if again != "" {
		t.Error("expected no new admin when one exists")
	}
}

func TestLevelRouter(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := slog.New(newLevelRouter(&stdout, &stderr))

	logger.Info("issued")
	logger.Warn("retrying")
	logger.Error("failed")
	logger.Debug("hidden")

	if !strings.Contains(stdout.String(), "issued") || !strings.Contains(stdout.String(), "retrying") {
		t.Errorf("expected info and warn on stdout, got %q", stdout.String())
	}
	if strings.Contains(stdout.String(), "failed") {
		t.Error("error leaked to stdout")
	}
	if !strings.Contains(stderr.String(), "failed") {
		t.Errorf("expected error on stderr, got %q", stderr.String())
	}
	if strings.Contains(stdout.String()+stderr.String(), "hidden") {
		t.Error("debug should be dropped")
	}
}
