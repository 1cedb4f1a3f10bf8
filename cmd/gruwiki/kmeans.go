package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/gruwiki/internal/chart"
	"github.com/samcharles93/gruwiki/internal/kmeans"
	"github.com/samcharles93/gruwiki/internal/logger"
)

func kmeansCmd() *cli.Command {
	var (
		k          int
		maxIter    int
		beta       float64
		seed       int64
		separation float64
		perCluster int
		outDir     string
		top        int
	)

	return &cli.Command{
		Name:  "kmeans",
		Usage: "Soft k-means on gaussian blobs, or on the word embeddings of a run",
		Flags: append(runFlags(),
			&cli.IntFlag{Name: "k", Usage: "number of clusters", Value: 3, Destination: &k},
			&cli.IntFlag{Name: "max-iter", Usage: "iteration cap", Value: 20, Destination: &maxIter},
			&cli.Float64Flag{Name: "beta", Usage: "responsibility stiffness", Value: 1.0, Destination: &beta},
			&cli.Int64Flag{Name: "seed", Usage: "random seed", Destination: &seed},
			&cli.Float64Flag{Name: "separation", Usage: "distance between demo centres", Value: 4, Destination: &separation},
			&cli.IntFlag{Name: "per-cluster", Usage: "demo points per centre", Value: 300, Destination: &perCluster},
			&cli.StringFlag{Name: "out", Usage: "directory for the PNG plots (empty = no plots)", Destination: &outDir},
			&cli.IntFlag{Name: "top", Usage: "words listed per cluster in embedding mode", Value: 10, Destination: &top},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyRunsConfig(cmd, configFrom(ctx))
			useRun := runConfigured(runPath, runsPath)

			var (
				X     *mat.Dense
				words []string
			)
			if useRun {
				store, err := loadRun(ctx, cmd)
				if err != nil {
					return err
				}
				X = store.Matrix()
				words = store.Vocab().Words()
			} else {
				X = kmeans.GaussianBlobs(kmeans.DemoCentres(separation), perCluster, uint64(seed))
			}

			res, err := kmeans.Fit(X, kmeans.Config{K: k, MaxIter: maxIter, Beta: beta, Seed: uint64(seed)})
			if err != nil {
				return err
			}
			last := res.Costs[len(res.Costs)-1]
			log.Info("clustering complete", "k", k, "iterations", len(res.Costs), "cost", last)

			if useRun {
				printClusters(res, words, top)
			} else {
				fmt.Printf("means:\n%v\n", mat.Formatted(res.Means, mat.Prefix(""), mat.Squeeze()))
			}

			if outDir == "" {
				return nil
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			if err := chart.Costs(filepath.Join(outDir, "kmeans_costs.png"), "Costs", res.Costs); err != nil {
				return err
			}
			if _, d := X.Dims(); d >= 2 {
				if !useRun {
					if err := chart.Scatter(filepath.Join(outDir, "data.png"), "Data", X, nil); err != nil {
						return err
					}
				}
				colors := kmeans.Colors(res.Responsibilities, uint64(seed))
				if err := chart.Scatter(filepath.Join(outDir, "clusters.png"), "Clusters", X, colors); err != nil {
					return err
				}
			}
			log.Info("wrote plots", "path", outDir)
			return nil
		},
	}
}

// printClusters lists each cluster's most responsible words.
func printClusters(res *kmeans.Result, words []string, top int) {
	labels := res.Labels()
	k, _ := res.Means.Dims()
	members := make([][]int, k)
	for i, l := range labels {
		members[l] = append(members[l], i)
	}
	for c, ids := range members {
		sort.SliceStable(ids, func(a, b int) bool {
			return res.Responsibilities.At(ids[a], c) > res.Responsibilities.At(ids[b], c)
		})
		if top > 0 && len(ids) > top {
			ids = ids[:top]
		}
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = words[id]
		}
		fmt.Printf("cluster %d (%d words): %s\n", c, len(members[c]), strings.Join(names, " "))
	}
}
