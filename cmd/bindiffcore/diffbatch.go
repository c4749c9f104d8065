package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oisee/bindiffcore/internal/workerpool"
)

func newDiffBatchCmd() *cobra.Command {
	var outDir string
	var numWorkers int
	cmd := &cobra.Command{
		Use:   "diff-batch <pairs.txt>",
		Short: "Run diff concurrently over every primary/secondary pair listed in pairs.txt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				return fmt.Errorf("--out-dir is required")
			}
			pairs, err := readPairs(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			pool := workerpool.New(numWorkers)
			tasks := make([]workerpool.Task, len(pairs))
			for i, p := range pairs {
				p := p
				outPath := filepath.Join(outDir, fmt.Sprintf("%04d.sqlite", i))
				tasks[i] = func() error {
					_, err := runDiff(cmd.Context(), p.primary, p.secondary, outPath, "")
					return err
				}
			}
			errs := pool.Run(tasks)

			failures := 0
			for i, err := range errs {
				if err != nil {
					failures++
					logrus.WithFields(logrus.Fields{
						"primary":   pairs[i].primary,
						"secondary": pairs[i].secondary,
					}).WithError(err).Error("diff failed")
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d/%d pairs diffed, %d failed\n", len(pairs)-failures, len(pairs), failures)
			if failures > 0 {
				return fmt.Errorf("%d of %d pairs failed", failures, len(pairs))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory to write one result.sqlite per pair")
	cmd.Flags().IntVar(&numWorkers, "workers", 0, "number of concurrent diff workers (0 = NumCPU)")
	return cmd
}

type pair struct {
	primary, secondary string
}

// readPairs parses "primary secondary" lines, one pair per line, blank
// lines and lines starting with "#" ignored.
func readPairs(path string) ([]pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pairs []pair
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed pairs line %q: want \"primary secondary\"", line)
		}
		pairs = append(pairs, pair{primary: fields[0], secondary: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}
