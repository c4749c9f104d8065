package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oisee/bindiffcore/pkg/binexport"
	"github.com/oisee/bindiffcore/pkg/callgraph"
	"github.com/oisee/bindiffcore/pkg/classify"
	"github.com/oisee/bindiffcore/pkg/match"
	"github.com/oisee/bindiffcore/pkg/store"
)

func newDiffCmd() *cobra.Command {
	var out, checkpoint string
	cmd := &cobra.Command{
		Use:   "diff <primary> <secondary>",
		Short: "Match functions, basic blocks, and instructions between two binary-export artifacts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			report, err := runDiff(cmd.Context(), args[0], args[1], out, checkpoint)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d functions matched, similarity %.3f, confidence %.3f\n",
				report.MatchedFunctions, report.Similarity, report.Confidence)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "result.sqlite output path")
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "write committed fixed points here if the diff is cancelled, so the partial result can be reported without re-running")
	return cmd
}

// runDiff decodes both artifacts, runs the matching pipeline, classifies
// every committed fixed point, and writes the tabular result store.
func runDiff(ctx context.Context, primaryPath, secondaryPath, outPath, checkpointPath string) (classify.Report, error) {
	primaryCall, primaryArt, err := loadArtifact(primaryPath)
	if err != nil {
		return classify.Report{}, err
	}
	secondaryCall, secondaryArt, err := loadArtifact(secondaryPath)
	if err != nil {
		return classify.Report{}, err
	}

	pipeline := match.NewPipeline(primaryCall, secondaryCall)
	pipeline.CheckpointPath = checkpointPath
	set, err := pipeline.Run(ctx, nil)
	if err != nil {
		return classify.Report{}, err
	}
	if ctx.Err() != nil {
		// Cancelled mid-run: when --checkpoint was given, Run already
		// wrote the partial set there for LoadCheckpoint; either way no
		// result store is built from an incomplete match.
		return classify.Report{}, ctx.Err()
	}

	for _, fp := range set.FixedPoints() {
		pf, _ := primaryCall.AttachedFlowGraph(fp.PrimaryAddress)
		sf, _ := secondaryCall.AttachedFlowGraph(fp.SecondaryAddress)
		classify.Classify(fp, primaryCall, secondaryCall, pf, sf)
	}
	report := classify.Summarize(set, len(primaryCall.Vertices), len(secondaryCall.Vertices))

	logrus.WithFields(logrus.Fields{
		"primary_functions":   len(primaryCall.Vertices),
		"secondary_functions": len(secondaryCall.Vertices),
		"matched":             report.MatchedFunctions,
	}).Info("matching pipeline finished")

	db, err := sql.Open("sqlite", outPath)
	if err != nil {
		return classify.Report{}, err
	}
	defer db.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	result := &store.Result{
		Primary:     fileStats(primaryPath, primaryArt, primaryCall),
		Secondary:   fileStats(secondaryPath, secondaryArt, secondaryCall),
		Description: fmt.Sprintf("%s vs %s", primaryPath, secondaryPath),
		Created:     now,
		Modified:    now,
		Set:         set,
		Manual:      map[uint32]bool{},
		Names: store.FunctionNames{
			PrimaryName:   func(v uint32) string { return primaryCall.Vertices[v].DisplayName() },
			SecondaryName: func(v uint32) string { return secondaryCall.Vertices[v].DisplayName() },
		},
	}
	if err := store.Write(ctx, db, result); err != nil {
		return classify.Report{}, err
	}
	return report, nil
}

func loadArtifact(path string) (*callgraph.Graph, *binexport.Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	art, err := binexport.Decode(f)
	if err != nil {
		return nil, nil, err
	}
	cg, _, err := art.BuildAll()
	if err != nil {
		return nil, nil, err
	}
	return cg, art, nil
}

func fileStats(path string, art *binexport.Artifact, cg *callgraph.Graph) store.FileStats {
	libFunctions := 0
	for _, v := range cg.Vertices {
		if v.Flags&callgraph.Library != 0 {
			libFunctions++
		}
	}
	basicBlocks, instructions := 0, len(art.Instructions)
	for range art.BasicBlocks {
		basicBlocks++
	}
	return store.FileStats{
		Filename:     path,
		ExeFilename:  art.Meta.ExecutableName,
		Hash:         art.Meta.ExecutableID,
		Functions:    len(cg.Vertices),
		LibFunctions: libFunctions,
		Calls:        len(cg.Edges),
		BasicBlocks:  basicBlocks,
		Instructions: instructions,
	}
}
