package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/vango-dev/meld/internal/errors"
	"github.com/vango-dev/meld/pkg/binding"
	"github.com/vango-dev/meld/pkg/protocol"
	"github.com/vango-dev/meld/pkg/snapshot"
)

// Records captures every component as a snapshot record.
func (e *Engine) Records() []*snapshot.Record {
	now := time.Now().UTC()
	var out []*snapshot.Record
	for _, c := range e.registry.All() {
		out = append(out, &snapshot.Record{
			ID:      c.ID,
			Name:    c.Qualifier,
			Data:    protocol.CloneData(c.Data),
			Markup:  e.doc.Render(c.root),
			SavedAt: now,
		})
	}
	return out
}

// Checkpoint saves every component to store. It reads component state, so
// it runs on the loop; embedders with a slow store should take Records with
// Do and save them elsewhere.
func (e *Engine) Checkpoint(ctx context.Context, store snapshot.Store) error {
	for _, rec := range e.Records() {
		if err := store.Save(ctx, rec); err != nil {
			return fmt.Errorf("checkpoint %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Restore loads the snapshot of component id from store and applies it.
// It reports false when the store holds no snapshot for id.
func (e *Engine) Restore(ctx context.Context, store snapshot.Store, id string) (bool, error) {
	rec, err := store.Load(ctx, id)
	if err != nil {
		return false, fmt.Errorf("restore %s: %w", id, err)
	}
	if rec == nil {
		return false, nil
	}
	return true, e.ApplyRecord(rec)
}

// ApplyRecord merges the data of rec into its component and writes the
// values back into the model-bound controls still in the tree.
func (e *Engine) ApplyRecord(rec *snapshot.Record) error {
	c := e.registry.Get(rec.ID)
	if c == nil {
		return errors.New("M031").WithDetail(rec.ID)
	}
	c.Data = protocol.MergeData(c.Data, rec.Data)
	for name, v := range rec.Data {
		for _, el := range c.ModelElements(name) {
			if el.Role() == binding.RoleModel && e.doc.IsConnected(el.Node()) {
				el.SetValue(v)
			}
		}
	}
	c.logger.Info("snapshot restored", "saved_at", rec.SavedAt)
	return nil
}
