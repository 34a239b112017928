package markov

import (
	"database/sql"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates a new SQLite database file and a Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *Store[string]) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore[string](db, StringCodec{})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// newTrainedTable is a convenience helper that returns a seeded table trained
// on a small set of progressions.
func newTrainedTable(t *testing.T) *Table[string] {
	t.Helper()
	table := NewTable[string](WithSeed(1))
	for _, p := range []string{
		"C F G C",
		"C Am F G",
		"Am F C G",
		"C C C C G",
	} {
		table.TrainProgression(strings.Fields(p))
	}
	return table
}

// chordsOf splits a space separated chord list; the empty string yields nil.
func chordsOf(s string) []string {
	return strings.Fields(s)
}

var (
	benchmarkCorpus [][]string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus builds a deterministic corpus of random progressions.
func createBenchmarkCorpus() [][]string {
	corpusOnce.Do(func() {
		chords := []string{"C", "Dm", "Em", "F", "G", "Am", "Bdim", "C7", "G7", "Fmaj7"}
		rng := rand.New(rand.NewPCG(1, 2))
		for i := 0; i < 2000; i++ {
			p := make([]string, 4+rng.IntN(12))
			for j := range p {
				p[j] = chords[rng.IntN(len(chords))]
			}
			benchmarkCorpus = append(benchmarkCorpus, p)
		}
	})
	return benchmarkCorpus
}
