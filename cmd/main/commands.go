package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/CTAG07/thrivetones/pkg/markov"
	"github.com/CTAG07/thrivetones/pkg/voicing"
	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

// tableName returns flagValue, or the configured default table when it is empty.
func (a *app) tableName(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return a.config.DefaultTable
}

// loadOrNew loads a stored table, or returns an empty one if it doesn't exist yet.
func (a *app) loadOrNew(ctx context.Context, name string, opts ...markov.TableOption) (*markov.Table[string], error) {
	opts = append(opts, markov.WithLogger(a.logger))
	t, err := a.store.Load(ctx, name, opts...)
	if errors.Is(err, markov.ErrTableNotFound) {
		a.logger.Info("Creating new table", "table_name", name)
		return markov.NewTable[string](opts...), nil
	}
	return t, err
}

func (a *app) trainCmd() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "train [FILE...]",
		Short: "Train a table on chord charts",
		Long: `Trains a table on plain-text chord charts, one progression per line.
A ';' ends a progression early; '|' and ',' only separate chords.
With no files, or with '-', the chart is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := a.tableName(table)

			t, err := a.loadOrNew(ctx, name)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				args = []string{"-"}
			}
			var total int
			for _, path := range args {
				n, err := a.trainFile(ctx, t, path, cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("training on %s: %w", path, err)
				}
				total += n
			}

			if err = a.store.Save(ctx, name, t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trained %s progressions into table %q\n", humanize.Comma(int64(total)), name)
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table to train (default from config)")
	return cmd
}

// trainFile trains t on the chart at path, or on stdin for "-".
func (a *app) trainFile(ctx context.Context, t *markov.Table[string], path string, stdin io.Reader) (int, error) {
	if path == "-" {
		return markov.TrainReader(ctx, t, a.tokenizer, a.codec, stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	return markov.TrainReader(ctx, t, a.tokenizer, a.codec, f)
}

func (a *app) generateCmd() *cobra.Command {
	var (
		table   string
		length  int
		seed    string
		rngSeed uint64
		debug   bool
		midi    string
		tempo   float64
		beats   uint32
		octave  int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a chord progression",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := a.tableName(table)

			if length <= 0 {
				length = a.config.GenerateLength
			}
			if rngSeed == 0 {
				rngSeed = a.config.RNGSeed
			}

			var opts []markov.TableOption
			if rngSeed != 0 {
				opts = append(opts, markov.WithSeed(rngSeed))
			}
			opts = append(opts, markov.WithLogger(a.logger))

			t, err := a.store.Load(ctx, name, opts...)
			if err != nil {
				return err
			}

			out, err := t.Generate(ctx, strings.Fields(seed), markov.WithLength(length), markov.WithDebug(debug))
			if err != nil {
				if errors.Is(err, markov.ErrEmptyTable) {
					return fmt.Errorf("table %q has no training data: %w", name, err)
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), a.tokenizer.Join(out))

			if midi != "" {
				var buf bytes.Buffer
				err = voicing.WriteSMF(&buf, out,
					voicing.WithTempo(tempo), voicing.WithBeatsPerChord(beats), voicing.WithOctave(octave))
				if err != nil {
					return fmt.Errorf("failed to render progression: %w", err)
				}
				if err = atomic.WriteFile(midi, &buf); err != nil {
					return fmt.Errorf("failed to write midi file: %w", err)
				}
				a.logger.Info("Progression rendered", "path", midi, "chords", len(out))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table to sample from (default from config)")
	cmd.Flags().IntVar(&length, "length", 0, "number of chords to generate (default from config)")
	cmd.Flags().StringVar(&seed, "seed", "", "space separated chords to continue from")
	cmd.Flags().Uint64Var(&rngSeed, "rng-seed", 0, "random seed for reproducible output (default from config)")
	cmd.Flags().BoolVar(&debug, "debug", false, "log the candidates and probability of every choice")
	cmd.Flags().StringVar(&midi, "midi", "", "also render the progression to this MIDI file")
	cmd.Flags().Float64Var(&tempo, "tempo", 120, "tempo of the MIDI file in beats per minute")
	cmd.Flags().Uint32Var(&beats, "beats", 4, "beats each chord is held in the MIDI file")
	cmd.Flags().IntVar(&octave, "octave", 4, "octave of chord roots in the MIDI file")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics for a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.tableName(table)
			t, err := a.store.Load(cmd.Context(), name)
			if err != nil {
				return err
			}
			s := t.Stats()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "table:        %s\n", name)
			fmt.Fprintf(w, "histories:    %s\n", humanize.Comma(int64(s.Histories)))
			fmt.Fprintf(w, "observations: %s\n", humanize.Comma(int64(s.Observations)))
			fmt.Fprintf(w, "vocabulary:   %s\n", humanize.Comma(int64(s.Vocabulary)))
			for n, count := range s.ByLength {
				fmt.Fprintf(w, "length %d:     %s\n", n, humanize.Comma(int64(count)))
			}
			fmt.Fprintf(w, "mean entropy: %.3f nats\n", s.MeanEntropy)
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table to inspect (default from config)")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := a.store.ListTables(cmd.Context())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(tables))
			for name := range tables {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", tables[name].Id, name)
			}
			return nil
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete a stored table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.Remove(cmd.Context(), table)
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table to delete")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var table, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a table as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.tableName(table)
			t, err := a.store.Load(cmd.Context(), name)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err = markov.ExportTable(&buf, name, t, a.codec); err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = buf.WriteTo(cmd.OutOrStdout())
				return err
			}
			if err = atomic.WriteFile(out, &buf); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}
			a.logger.Info("Table exported", "table_name", name, "path", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table to export (default from config)")
	cmd.Flags().StringVar(&out, "out", "-", "file to write, '-' for stdout")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Merge a JSON export into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func(f *os.File) {
				_ = f.Close()
			}(f)

			incoming := markov.NewTable[string]()
			docName, err := markov.ImportTable(f, a.codec, incoming)
			if err != nil {
				return err
			}

			name := table
			if name == "" {
				name = docName
			}
			name = a.tableName(name)

			t, err := a.loadOrNew(ctx, name)
			if err != nil {
				return err
			}
			t.Merge(incoming)

			if err = a.store.Save(ctx, name, t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s histories into table %q\n", humanize.Comma(int64(incoming.Len())), name)
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table to merge into (default: the name in the file)")
	return cmd
}
