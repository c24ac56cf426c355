package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"docqa-service/models"
)

func newSession(id string, created time.Time) *models.Session {
	return &models.Session{
		ID:         id,
		CreatedAt:  created,
		FileCount:  1,
		FileNames:  []string{"a.pdf"},
		Collection: models.CollectionName(id),
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Put(ctx, newSession("a", time.Now()))

	s, err := m.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	s.FileNames[0] = "mutated.pdf"

	again, _ := m.Get(ctx, "a")
	if again.FileNames[0] != "a.pdf" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get err = %v", err)
	}
	if _, err := m.Remove(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove err = %v", err)
	}
	_, err := m.Update(ctx, "nope", func(*models.Session) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update err = %v", err)
	}
}

func TestMemoryUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Put(ctx, newSession("a", time.Now()))

	prompt := "Answer in French."
	s, err := m.Update(ctx, "a", func(s *models.Session) error {
		s.CustomPrompt = &prompt
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Prompt() != prompt {
		t.Errorf("Prompt() = %q", s.Prompt())
	}

	boom := errors.New("boom")
	if _, err := m.Update(ctx, "a", func(s *models.Session) error {
		s.CustomPrompt = nil
		return boom
	}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	got, _ := m.Get(ctx, "a")
	if got.Prompt() != prompt {
		t.Error("failed update must not be saved")
	}
}

func TestMemoryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Now()
	_ = m.Put(ctx, newSession("old", base.Add(-time.Hour)))
	_ = m.Put(ctx, newSession("new", base))

	list, _ := m.List(ctx)
	if len(list) != 2 || list[0].ID != "new" {
		t.Errorf("list = %v", list)
	}
	if n, _ := m.Count(ctx); n != 2 {
		t.Errorf("Count = %d", n)
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			_ = m.Put(ctx, newSession(id, time.Now()))
			_, _ = m.Get(ctx, id)
			_, _ = m.List(ctx)
			if i%2 == 0 {
				_, _ = m.Remove(ctx, id)
			}
		}(i)
	}
	wg.Wait()
	if n, _ := m.Count(ctx); n != 25 {
		t.Errorf("Count = %d, want 25", n)
	}
}
