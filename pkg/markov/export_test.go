package markov

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	table := newTrainedTable(t)

	var buf bytes.Buffer
	if err := ExportTable(&buf, "pop", table, StringCodec{}); err != nil {
		t.Fatalf("ExportTable failed: %v", err)
	}

	imported := NewTable[string]()
	name, err := ImportTable(&buf, StringCodec{}, imported)
	if err != nil {
		t.Fatalf("ImportTable failed: %v", err)
	}
	if name != "pop" {
		t.Errorf("expected name 'pop', got %q", name)
	}
	if want, got := snapshot(table), snapshot(imported); !reflect.DeepEqual(want, got) {
		t.Errorf("imported table differs from exported table:\nwant %v\ngot  %v", want, got)
	}
}

func TestExportIsStable(t *testing.T) {
	var a, b bytes.Buffer
	if err := ExportTable(&a, "pop", newTrainedTable(t), StringCodec{}); err != nil {
		t.Fatal(err)
	}
	if err := ExportTable(&b, "pop", newTrainedTable(t), StringCodec{}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("exports of equal tables differ")
	}
	if !strings.Contains(a.String(), `"max_history": 3`) {
		t.Errorf("expected max_history in export, got %s", a.String())
	}
}

func TestImportMerges(t *testing.T) {
	doc := `{"name":"m","max_history":3,"entries":[{"history":["C"],"continuations":["F","F"]},{"history":[],"continuations":["C"]}]}`

	table := NewTable[string]()
	table.Train(chordsOf("C"), "G")

	if _, err := ImportTable(strings.NewReader(doc), StringCodec{}, table); err != nil {
		t.Fatalf("ImportTable failed: %v", err)
	}
	if got := table.Continuations(chordsOf("C")); !reflect.DeepEqual(got, chordsOf("G F F")) {
		t.Errorf("Continuations([C]) = %v, want [G F F]", got)
	}
	if got := table.Continuations(nil); !reflect.DeepEqual(got, chordsOf("G C")) {
		t.Errorf("Continuations([]) = %v, want [G C]", got)
	}
}

func TestImportErrors(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "History too long",
			doc:  `{"name":"m","entries":[{"history":["C"],"continuations":["F"]},{"history":["A","B","C","D"],"continuations":["E"]}]}`,
			want: ErrHistoryTooLong,
		},
		{
			name: "Invalid chord",
			doc:  `{"name":"m","entries":[{"history":["C"],"continuations":[""]}]}`,
			want: ErrInvalidChord,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			table := NewTable[string]()
			_, err := ImportTable(strings.NewReader(tc.doc), StringCodec{}, table)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
			if table.Len() != 0 {
				t.Errorf("a failed import must leave the table untouched, found %d histories", table.Len())
			}
		})
	}

	if _, err := ImportTable(strings.NewReader("{not json"), StringCodec{}, NewTable[string]()); err == nil {
		t.Error("expected an error for malformed json")
	}
}
