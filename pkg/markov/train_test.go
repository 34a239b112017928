package markov

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

// intCodec stores chords as scale degrees.
type intCodec struct{}

func (intCodec) Encode(c int) (string, error) { return strconv.Itoa(c), nil }
func (intCodec) Decode(s string) (int, error) { return strconv.Atoi(s) }

func TestTrainProgression(t *testing.T) {
	table := NewTable[string]()
	table.TrainProgression(chordsOf("C F G C"))

	testCases := []struct {
		history string
		want    []string
	}{
		{"", chordsOf("C F G C")},
		{"C", chordsOf("F")},
		{"F", chordsOf("G")},
		{"G", chordsOf("C")},
		{"C F", chordsOf("G")},
		{"F G", chordsOf("C")},
		{"C F G", chordsOf("C")},
	}
	for _, tc := range testCases {
		if got := table.Continuations(chordsOf(tc.history)); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Continuations([%s]) = %v, want %v", tc.history, got, tc.want)
		}
	}
	if table.Len() != len(testCases) {
		t.Errorf("expected %d histories, got %d", len(testCases), table.Len())
	}
}

func TestTrainProgressionSlidesWindow(t *testing.T) {
	table := NewTable[string]()
	table.TrainProgression(chordsOf("A B C D E"))

	if got := table.Continuations(chordsOf("B C D")); !reflect.DeepEqual(got, []string{"E"}) {
		t.Errorf("Continuations([B C D]) = %v, want [E]", got)
	}
	if got := table.Continuations(chordsOf("A B C D")); !reflect.DeepEqual(got, []string{"E"}) {
		t.Error("a four chord lookup should resolve to its three chord tail")
	}
}

func TestTrainReader(t *testing.T) {
	table := NewTable[string]()
	chart := "C F G C\nC F G C;Am F\n"

	n, err := TrainReader(context.Background(), table, NewDefaultTokenizer(), StringCodec{}, strings.NewReader(chart))
	if err != nil {
		t.Fatalf("TrainReader() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 progressions, got %d", n)
	}
	if got := table.Continuations(chordsOf("C F")); !reflect.DeepEqual(got, chordsOf("G G")) {
		t.Errorf("Continuations([C F]) = %v, want [G G]", got)
	}
	if got := table.Continuations(chordsOf("Am")); !reflect.DeepEqual(got, chordsOf("F")) {
		t.Errorf("Continuations([Am]) = %v, want [F]", got)
	}
	// Progressions are trained separately, so nothing follows the final C of a line.
	if got := table.Continuations(chordsOf("G C")); got != nil {
		t.Errorf("Continuations([G C]) = %v, want nil", got)
	}
}

func TestTrainReaderWithCodec(t *testing.T) {
	table := NewTable[int]()
	n, err := TrainReader(context.Background(), table, NewDefaultTokenizer(), intCodec{}, strings.NewReader("1 4 5 1\n"))
	if err != nil {
		t.Fatalf("TrainReader() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 progression, got %d", n)
	}
	if got := table.Continuations([]int{1, 4}); !reflect.DeepEqual(got, []int{5}) {
		t.Errorf("Continuations([1 4]) = %v, want [5]", got)
	}

	_, err = TrainReader(context.Background(), table, NewDefaultTokenizer(), intCodec{}, strings.NewReader("1 IV 5\n"))
	if err == nil || !strings.Contains(err.Error(), "could not decode chord 'IV'") {
		t.Errorf("expected a decode error, got %v", err)
	}
	var numErr *strconv.NumError
	if !errors.As(err, &numErr) {
		t.Errorf("expected the codec error to be wrapped, got %v", err)
	}
}

func TestTrainReaderSplitsLongProgressions(t *testing.T) {
	testCases := []struct {
		name   string
		chords int
		want   int
	}{
		{name: "At the cap", chords: maxProgressionLength, want: 1},
		{name: "One over the cap", chords: maxProgressionLength + 1, want: 2},
		{name: "Line longer than the scanner default", chords: 12000, want: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chart := strings.Repeat("Cmaj7 ", tc.chords) + "\n"
			table := NewTable[string]()

			n, err := TrainReader(context.Background(), table, NewDefaultTokenizer(), StringCodec{}, strings.NewReader(chart))
			if err != nil {
				t.Fatalf("TrainReader() failed: %v", err)
			}
			if n != tc.want {
				t.Errorf("expected %d progressions, got %d", tc.want, n)
			}
			// A run of one chord reaches the empty history three times before
			// suppression, once per progression.
			if got := len(table.Continuations(nil)); got != 3*n {
				t.Errorf("expected %d empty-history continuations, got %d", 3*n, got)
			}
		})
	}
}

func TestTrainReaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table := NewTable[string]()
	n, err := TrainReader(ctx, table, NewDefaultTokenizer(), StringCodec{}, strings.NewReader("C F\nG C\n"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n != 1 {
		t.Errorf("expected training to stop after 1 progression, got %d", n)
	}
}

func BenchmarkTrainProgression(b *testing.B) {
	corpus := createBenchmarkCorpus()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		table := NewTable[string](WithSeed(1))
		for _, p := range corpus {
			table.TrainProgression(p)
		}
	}
}
