package markov

import (
	"encoding/json"
	"fmt"
	"io"
)

// ExportedTable is the serializable representation of a trained table, used
// for JSON-based import and export.
type ExportedTable struct {
	Name       string          `json:"name"`
	MaxHistory int             `json:"max_history"`
	Entries    []ExportedEntry `json:"entries"`
}

// ExportedEntry is one history and its full continuation list. Duplicates in
// Continuations are significant: they encode how often each chord was seen.
type ExportedEntry struct {
	History       []string `json:"history"`
	Continuations []string `json:"continuations"`
}

// ExportTable serializes t into indented JSON on w, labelled with name.
// Entries are sorted by history so that exports of equal tables are identical.
func ExportTable[C comparable](w io.Writer, name string, t *Table[C], codec Codec[C]) error {
	entries, err := encodeEntries(t, codec)
	if err != nil {
		return err
	}

	exported := ExportedTable{
		Name:       name,
		MaxHistory: MaxHistoryLength,
		Entries:    make([]ExportedEntry, 0, len(entries)),
	}
	for _, e := range entries {
		exported.Entries = append(exported.Entries, ExportedEntry{History: e.history, Continuations: e.chords})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// ImportTable reads a JSON table from r and merges it into t: every
// continuation list is appended to the one t already holds for that history.
// It returns the name recorded in the document. The document is fully decoded
// and validated before t is modified.
func ImportTable[C comparable](r io.Reader, codec Codec[C], t *Table[C]) (string, error) {
	var imported ExportedTable
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return "", fmt.Errorf("failed to decode json table: %w", err)
	}

	entries := make([]rawEntry[C], 0, len(imported.Entries))

	for _, e := range imported.Entries {
		if len(e.History) > MaxHistoryLength {
			return "", fmt.Errorf("%w: %v", ErrHistoryTooLong, e.History)
		}
		history := make([]C, 0, len(e.History))
		for _, text := range e.History {
			c, err := codec.Decode(text)
			if err != nil {
				return "", fmt.Errorf("could not decode history chord '%s': %w", text, err)
			}
			history = append(history, c)
		}
		chords := make([]C, 0, len(e.Continuations))
		for _, text := range e.Continuations {
			c, err := codec.Decode(text)
			if err != nil {
				return "", fmt.Errorf("could not decode chord '%s': %w", text, err)
			}
			chords = append(chords, c)
		}
		entries = append(entries, rawEntry[C]{history: NewHistory(history), chords: chords})
	}

	for _, e := range entries {
		t.appendRaw(e.history, e.chords)
	}

	return imported.Name, nil
}
