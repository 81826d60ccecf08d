package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mboukas/go-onboard-backend/internal/messaging"
	"github.com/mboukas/go-onboard-backend/internal/repo"
)

// newTestDB opens a fresh in-memory SQLite database for one test with the
// full migrated schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeProvider is a scriptable messaging.Provider. sendErr/findErr override
// the happy path; directory backs FindMember lookups keyed by handle.
type fakeProvider struct {
	mu        sync.Mutex
	sendErr   error
	findErr   error
	directory map[string]string
	sends     []messaging.SendRequest
}

func (f *fakeProvider) SendDirectMessage(_ context.Context, req messaging.SendRequest) (*messaging.SendResult, error) {
	f.mu.Lock()
	f.sends = append(f.sends, req)
	f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &messaging.SendResult{ID: "msg_1"}, nil
}

func (f *fakeProvider) FindMember(_ context.Context, _, handle string) (string, error) {
	if f.findErr != nil {
		return "", f.findErr
	}
	if id, ok := f.directory[handle]; ok {
		return id, nil
	}
	return "", messaging.ErrNoRecipient
}

func (f *fakeProvider) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func (f *fakeProvider) lastSend(t *testing.T) messaging.SendRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sends) == 0 {
		t.Fatal("expected at least one send")
	}
	return f.sends[len(f.sends)-1]
}
