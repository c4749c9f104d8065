package store

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/oisee/bindiffcore/pkg/addr"
	"github.com/oisee/bindiffcore/pkg/inst"
	"github.com/oisee/bindiffcore/pkg/match"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleResult() *Result {
	set := match.NewSet()
	cache := inst.NewCache()
	p := cache.NewInstruction(addr.Address(0x1000), "mov")
	s := cache.NewInstruction(addr.Address(0x2000), "mov")
	fp := &match.FixedPoint{
		PrimaryVertex: 0, SecondaryVertex: 0,
		PrimaryAddress: 0x1000, SecondaryAddress: 0x2000,
		StepID: "function: hash matching", Confidence: 1.0, Similarity: 1.0,
		BasicBlocks: []match.BasicBlockFixedPoint{
			{
				PrimaryVertex: 0, SecondaryVertex: 0,
				PrimaryAddress: 0x1000, SecondaryAddress: 0x2000,
				StepID: "basicBlock: hash matching (4 instructions minimum)", Confidence: 1.0,
				InstructionPairs: []inst.Pair{{Primary: p, Secondary: s}},
			},
		},
	}
	_ = set.Commit(fp)
	return &Result{
		Primary:     FileStats{Filename: "a.BinExport", Functions: 1},
		Secondary:   FileStats{Filename: "b.BinExport", Functions: 1},
		Description: "test diff",
		Created:     "2026-08-01T00:00:00Z",
		Modified:    "2026-08-01T00:00:00Z",
		Set:         set,
		Manual:      map[uint32]bool{},
	}
}

func TestWriteThenReadBack(t *testing.T) {
	db := openTestDB(t)
	r := sampleResult()
	if err := Write(context.Background(), db, r); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM function`).Scan(&count); err != nil {
		t.Fatalf("query function count: %v", err)
	}
	if count != 1 {
		t.Errorf("function row count = %d, want 1", count)
	}

	var bbCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM basicblock`).Scan(&bbCount); err != nil {
		t.Fatalf("query basicblock count: %v", err)
	}
	if bbCount != 1 {
		t.Errorf("basicblock row count = %d, want 1", bbCount)
	}

	var instrCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM instruction`).Scan(&instrCount); err != nil {
		t.Fatalf("query instruction count: %v", err)
	}
	if instrCount != 1 {
		t.Errorf("instruction row count = %d, want 1", instrCount)
	}
}

func TestTransmuteRemovesVanishedFunction(t *testing.T) {
	db := openTestDB(t)
	r := sampleResult()
	if err := Write(context.Background(), db, r); err != nil {
		t.Fatalf("Write: %v", err)
	}

	empty := sampleResult()
	empty.Set = match.NewSet()
	if err := Transmute(context.Background(), db, empty, "2026-08-02T00:00:00Z"); err != nil {
		t.Fatalf("Transmute: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM function`).Scan(&count); err != nil {
		t.Fatalf("query function count: %v", err)
	}
	if count != 0 {
		t.Errorf("function row count = %d, want 0 after vanished-key transmute", count)
	}

	var modified string
	if err := db.QueryRow(`SELECT modified FROM metadata`).Scan(&modified); err != nil {
		t.Fatalf("query metadata.modified: %v", err)
	}
	if modified != "2026-08-02T00:00:00Z" {
		t.Errorf("metadata.modified = %q, want refreshed timestamp", modified)
	}
}

func TestTransmuteForcesManualConfidence(t *testing.T) {
	db := openTestDB(t)
	r := sampleResult()
	if err := Write(context.Background(), db, r); err != nil {
		t.Fatalf("Write: %v", err)
	}

	manual := sampleResult()
	manual.Set.FixedPoints()[0].Confidence = 0.5
	manual.Manual[0] = true
	if err := Transmute(context.Background(), db, manual, "2026-08-02T00:00:00Z"); err != nil {
		t.Fatalf("Transmute: %v", err)
	}

	var confidence float64
	if err := db.QueryRow(`SELECT confidence FROM function`).Scan(&confidence); err != nil {
		t.Fatalf("query function.confidence: %v", err)
	}
	if confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0 for a manual match", confidence)
	}
}
