package snapshot

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec := &Record{
		ID:      "c1",
		Name:    "form",
		Data:    map[string]any{"name": "x"},
		Markup:  `<div meld:id="c1"></div>`,
		SavedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// mutating the caller's record must not reach the store
	rec.Data["name"] = "changed"

	got, err := s.Load(ctx, "c1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Data["name"] != "x" || got.Name != "form" || !got.SavedAt.Equal(rec.SavedAt) {
		t.Errorf("Load = %+v", got)
	}

	if missing, err := s.Load(ctx, "nope"); missing != nil || err != nil {
		t.Errorf("Load(missing) = %v, %v; want nil, nil", missing, err)
	}

	s.Save(ctx, &Record{ID: "a"})
	ids, _ := s.List(ctx)
	if !reflect.DeepEqual(ids, []string{"a", "c1"}) {
		t.Errorf("List = %v", ids)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Errorf("deleting a missing record: %v", err)
	}

	if err := s.Save(ctx, &Record{}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Save(empty id) = %v, want ErrInvalidID", err)
	}

	s.Close()
	if _, err := s.Load(ctx, "c1"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Load after Close = %v, want ErrStoreClosed", err)
	}
}
