/*
Package markov provides a variable-order Markov chain over chord progressions.

A Table learns, from observed progressions, which chords tend to follow a
history of up to MaxHistoryLength chords, and samples a plausible next chord
for any history, backing off to shorter histories when a long one was never
seen. Tables can be trained from plain-text chord charts, persisted to SQLite,
and exported to or imported from JSON.

	t := markov.NewTable[string](markov.WithSeed(1))
	t.TrainProgression([]string{"C", "F", "G", "C"})
	next, err := t.SampleNext([]string{"F"}, false)
*/
package markov
