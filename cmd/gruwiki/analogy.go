package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gruwiki/internal/embeddings"
	"github.com/samcharles93/gruwiki/internal/logger"
)

// exampleAnalogies are answered when analogy is run without arguments.
var exampleAnalogies = [][3]string{
	{"king", "man", "woman"},
	{"france", "paris", "london"},
	{"france", "paris", "rome"},
	{"paris", "france", "italy"},
}

func loadRun(ctx context.Context, cmd *cli.Command) (*embeddings.Store, error) {
	applyRunsConfig(cmd, configFrom(ctx))
	dir, err := resolveRunPath(runPath, runsPath, os.Stdin, os.Stderr)
	if err != nil {
		return nil, err
	}
	store, err := embeddings.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("loaded embeddings", "run", dir, "vocab_size", store.Vocab().Size(), "dim", store.Dim())
	return store, nil
}

func analogyCmd() *cli.Command {
	var (
		metric      string
		interactive bool
	)

	return &cli.Command{
		Name:      "analogy",
		Usage:     "Solve a - b + c word analogies (e.g. king man woman)",
		ArgsUsage: "[a b c]",
		Flags: append(runFlags(),
			&cli.StringFlag{
				Name:        "metric",
				Usage:       "distance (euclidean, cosine); empty prints both",
				Destination: &metric,
			},
			&cli.BoolFlag{
				Name:        "interactive",
				Aliases:     []string{"i"},
				Usage:       "read one 'a b c' triple per line from stdin",
				Destination: &interactive,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			metrics := []embeddings.Metric{embeddings.Euclidean, embeddings.Cosine}
			if metric != "" {
				m, err := embeddings.ParseMetric(metric)
				if err != nil {
					return err
				}
				metrics = []embeddings.Metric{m}
			}

			args := cmd.Args().Slice()
			if len(args) != 0 && len(args) != 3 {
				return errors.New("analogy takes exactly three words: a b c")
			}
			store, err := loadRun(ctx, cmd)
			if err != nil {
				return err
			}

			switch {
			case interactive:
				return analogyLoop(ctx, store, metrics, os.Stdin, os.Stdout)
			case len(args) == 3:
				return printAnalogy(os.Stdout, store, [3]string{args[0], args[1], args[2]}, metrics)
			}
			log := logger.FromContext(ctx)
			for _, q := range exampleAnalogies {
				if err := printAnalogy(os.Stdout, store, q, metrics); err != nil {
					log.Warn("skipping analogy", "query", strings.Join(q[:], " "), "error", err)
				}
			}
			return nil
		},
	}
}

func printAnalogy(w io.Writer, store *embeddings.Store, q [3]string, metrics []embeddings.Metric) error {
	for _, m := range metrics {
		match, err := store.Analogy(q[0], q[1], q[2], m)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "closest match by %s distance: %s (%.4f)\n", m, match.Word, match.Distance)
		_, _ = fmt.Fprintf(w, "%s - %s = %s - %s\n", q[0], q[1], match.Word, q[2])
	}
	return nil
}

func analogyLoop(ctx context.Context, store *embeddings.Store, metrics []embeddings.Metric, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	for {
		if stdinIsTTY() {
			_, _ = fmt.Fprint(w, "> ")
		}
		if !sc.Scan() {
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fields := strings.Fields(strings.ToLower(sc.Text()))
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			_, _ = fmt.Fprintln(w, "enter three words: a b c")
			continue
		}
		if err := printAnalogy(w, store, [3]string{fields[0], fields[1], fields[2]}, metrics); err != nil {
			_, _ = fmt.Fprintln(w, err)
		}
	}
}

func neighborsCmd() *cli.Command {
	var k int

	return &cli.Command{
		Name:      "neighbors",
		Usage:     "List the words closest to a word by cosine distance",
		ArgsUsage: "word...",
		Flags: append(runFlags(),
			&cli.IntFlag{
				Name:        "k",
				Usage:       "number of neighbours",
				Value:       10,
				Destination: &k,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			words := cmd.Args().Slice()
			if len(words) == 0 {
				return errors.New("neighbors needs at least one word")
			}
			store, err := loadRun(ctx, cmd)
			if err != nil {
				return err
			}
			for _, word := range words {
				matches, err := store.Neighbors(strings.ToLower(word), k)
				if err != nil {
					return err
				}
				fmt.Printf("%s:\n", word)
				for _, m := range matches {
					fmt.Printf("  %-20s %.4f\n", m.Word, m.Distance)
				}
			}
			return nil
		},
	}
}
