//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	mongoclient "relay_bot/internal/mongo"
	"relay_bot/internal/telegram/models"
	"relay_bot/internal/telegram/repository"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

func TestTaskRepositoryIntegrationFlow(t *testing.T) {
	t.Parallel()

	db := setupIntegrationDatabase(t)
	taskRepo := repository.NewTaskRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := taskRepo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("failed to ensure indexes: %v", err)
	}

	rangedTask := &models.ForwardTask{
		OwnerID:               30001,
		SourceChannelID:       -20001,
		TargetChannelID:       -20002,
		Mode:                  models.ModeRanged,
		RemoveOriginalCaption: true,
		IsActive:              true,
		StartID:               100,
		EndID:                 200,
		CurrentID:             100,
		StepN:                 1,
		IntervalSeconds:       30,
	}

	taskID, err := taskRepo.Create(ctx, rangedTask)
	if err != nil {
		t.Fatalf("failed to create ranged task: %v", err)
	}

	created, err := taskRepo.GetByID(ctx, taskID)
	if err != nil {
		t.Fatalf("failed to query created task: %v", err)
	}
	if created.CurrentID != 100 {
		t.Fatalf("unexpected initial cursor: got %d, want %d", created.CurrentID, 100)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("expected created_at and updated_at to be set")
	}

	if err := taskRepo.UpdateCursor(ctx, taskID, 137); err != nil {
		t.Fatalf("failed to advance cursor: %v", err)
	}
	advanced, err := taskRepo.GetByID(ctx, taskID)
	if err != nil {
		t.Fatalf("failed to query advanced task: %v", err)
	}
	if advanced.CurrentID != 137 {
		t.Fatalf("unexpected cursor after update: got %d, want %d", advanced.CurrentID, 137)
	}
	if advanced.UpdatedAt.Before(created.UpdatedAt) {
		t.Fatalf("expected updated_at to move forward on cursor update")
	}

	reactiveTask := &models.ForwardTask{
		OwnerID:         30001,
		SourceChannelID: -20001,
		TargetChannelID: -20003,
		Mode:            models.ModeReactive,
		IsActive:        true,
	}
	if _, err := taskRepo.Create(ctx, reactiveTask); err != nil {
		t.Fatalf("failed to create reactive task: %v", err)
	}

	activeRanged, err := taskRepo.ListActive(ctx, models.ModeRanged)
	if err != nil {
		t.Fatalf("failed to list active ranged tasks: %v", err)
	}
	if len(activeRanged) != 1 {
		t.Fatalf("unexpected active ranged count: got %d, want %d", len(activeRanged), 1)
	}

	owned, err := taskRepo.ListByOwner(ctx, 30001)
	if err != nil {
		t.Fatalf("failed to list tasks by owner: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("unexpected owned task count: got %d, want %d", len(owned), 2)
	}

	if err := taskRepo.SetActive(ctx, taskID, false); err != nil {
		t.Fatalf("failed to pause task: %v", err)
	}
	activeRanged, err = taskRepo.ListActive(ctx, models.ModeRanged)
	if err != nil {
		t.Fatalf("failed to list active ranged tasks after pause: %v", err)
	}
	if len(activeRanged) != 0 {
		t.Fatalf("paused task must not appear in active list, got %d", len(activeRanged))
	}

	paused, err := taskRepo.GetByID(ctx, taskID)
	if err != nil {
		t.Fatalf("failed to query paused task: %v", err)
	}
	if paused.CurrentID != 137 {
		t.Fatalf("pause must keep the cursor, got %d", paused.CurrentID)
	}

	if err := taskRepo.Delete(ctx, taskID); err != nil {
		t.Fatalf("failed to delete task: %v", err)
	}
	if _, err := taskRepo.GetByID(ctx, taskID); !errors.Is(err, repository.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound after delete, got %v", err)
	}
}

func TestUserRepositoryIntegrationFlow(t *testing.T) {
	t.Parallel()

	db := setupIntegrationDatabase(t)
	userRepo := repository.NewUserRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := userRepo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("failed to ensure indexes: %v", err)
	}

	user := &models.User{
		TelegramID:   40001,
		Username:     "relay_owner",
		FirstName:    "Relay",
		LastActiveAt: time.Now().UTC(),
	}
	if err := userRepo.CreateOrUpdate(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	created, err := userRepo.GetByTelegramID(ctx, 40001)
	if err != nil {
		t.Fatalf("failed to query user: %v", err)
	}
	if created.Role != models.RoleUser {
		t.Fatalf("new user must default to the user role, got %q", created.Role)
	}

	until := time.Now().Add(time.Hour).UTC()
	if err := userRepo.SetBanned(ctx, 40001, true, &until); err != nil {
		t.Fatalf("failed to ban user: %v", err)
	}
	banned, err := userRepo.GetByTelegramID(ctx, 40001)
	if err != nil {
		t.Fatalf("failed to query banned user: %v", err)
	}
	if !banned.BannedAt(time.Now()) {
		t.Fatalf("expected user to be banned")
	}

	if err := userRepo.SetBanned(ctx, 40001, false, nil); err != nil {
		t.Fatalf("failed to unban user: %v", err)
	}
	unbanned, err := userRepo.GetByTelegramID(ctx, 40001)
	if err != nil {
		t.Fatalf("failed to query unbanned user: %v", err)
	}
	if unbanned.BannedAt(time.Now()) {
		t.Fatalf("expected ban to be lifted")
	}
	if unbanned.BannedUntil != nil {
		t.Fatalf("expected banned_until to be cleared, got %v", unbanned.BannedUntil)
	}
}

func setupIntegrationDatabase(t *testing.T) *mongodriver.Database {
	t.Helper()

	uri := envOrDefault("MONGO_URI", "mongodb://localhost:27017")
	baseDatabase := envOrDefault("TEST_DATABASE", "test_relay_bot")
	databaseName := fmt.Sprintf("%s_%d", baseDatabase, time.Now().UnixNano())

	client, err := mongoclient.NewClient(mongoclient.Config{
		URI:      uri,
		Database: databaseName,
		Timeout:  5 * time.Second,
	})
	if err != nil {
		if isCIEnvironment() {
			t.Fatalf("failed to connect MongoDB in CI: %v", err)
		}
		t.Skipf("MongoDB is not available locally, skip integration test: %v", err)
		return nil
	}

	db := client.Database()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := db.Drop(ctx); err != nil {
			t.Errorf("failed to drop integration database %s: %v", databaseName, err)
		}
		if err := client.Close(ctx); err != nil {
			t.Errorf("failed to close MongoDB connection: %v", err)
		}
	})

	return db
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func isCIEnvironment() bool {
	return os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
}
