package ingest

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/options-harvester/internal/store"
)

func newTestStore(t *testing.T) *store.FileStore {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(fs.Close)
	return fs
}

func putArtifact(t *testing.T, fs *store.FileStore, symbol, id string) {
	t.Helper()
	err := fs.Put(symbol, id, &store.Artifact{History: []store.Record{{"date": "2024-01-02"}}})
	if err != nil {
		t.Fatal(err)
	}
}

func TestPrune(t *testing.T) {
	fs := newTestStore(t)
	putArtifact(t, fs, "AAPL", "AAPL240119C00150000") // expired
	putArtifact(t, fs, "AAPL", "AAPL990119C00150000") // lives until 2099

	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	pruner := NewPruner(fs, ref, zap.NewNop())

	survivors, err := pruner.Prune("AAPL")
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	if len(survivors) != 1 || survivors[0] != "AAPL990119C00150000" {
		t.Errorf("unexpected survivors: %v", survivors)
	}

	ids, _ := fs.List("AAPL")
	if len(ids) != 1 {
		t.Errorf("expired artifact not deleted: %v", ids)
	}
}

func TestPrune_Idempotent(t *testing.T) {
	fs := newTestStore(t)
	putArtifact(t, fs, "AAPL", "AAPL240119C00150000")
	putArtifact(t, fs, "AAPL", "AAPL990119C00150000")

	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	pruner := NewPruner(fs, ref, zap.NewNop())

	first, err := pruner.Prune("AAPL")
	if err != nil {
		t.Fatal(err)
	}
	second, err := pruner.Prune("AAPL")
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("prune not idempotent: %v vs %v", first, second)
	}
}

func TestPrune_MalformedKeySkipped(t *testing.T) {
	fs := newTestStore(t)
	putArtifact(t, fs, "AAPL", "garbage-key")
	putArtifact(t, fs, "AAPL", "AAPL990119C00150000")

	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	pruner := NewPruner(fs, ref, zap.NewNop())

	survivors, err := pruner.Prune("AAPL")
	if err != nil {
		t.Fatalf("malformed key must not abort the pass: %v", err)
	}

	if len(survivors) != 1 || survivors[0] != "AAPL990119C00150000" {
		t.Errorf("unexpected survivors: %v", survivors)
	}

	// The malformed entry is skipped, not deleted.
	ids, _ := fs.List("AAPL")
	if len(ids) != 2 {
		t.Errorf("malformed artifact should remain on disk: %v", ids)
	}
}

func TestPrune_EmptySymbol(t *testing.T) {
	fs := newTestStore(t)

	pruner := NewPruner(fs, time.Now(), zap.NewNop())
	survivors, err := pruner.Prune("MISSING")
	if err != nil {
		t.Fatalf("Prune of unknown symbol failed: %v", err)
	}
	if len(survivors) != 0 {
		t.Errorf("expected no survivors, got %v", survivors)
	}
}
