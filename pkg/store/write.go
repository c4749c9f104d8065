package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oisee/bindiffcore/pkg/match"
	"github.com/oisee/bindiffcore/pkg/steps"

	"github.com/oisee/bindiffcore/internal/differr"
)

// Write persists r inside a single transaction: metadata, both file rows,
// the full algorithm-name catalogue, then one row per fixed point, its
// basic-block fixed points, and its instruction pairs. Any failure rolls
// back the whole transaction.
func Write(ctx context.Context, db *sql.DB, r *Result) error {
	if err := CreateSchema(ctx, db); err != nil {
		return differr.Wrap(differr.Internal, "create schema", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return differr.Wrap(differr.Internal, "begin transaction", err)
	}
	defer tx.Rollback()

	file1, err := insertFile(ctx, tx, r.Primary)
	if err != nil {
		return differr.Wrap(differr.Internal, "insert file1", err)
	}
	file2, err := insertFile(ctx, tx, r.Secondary)
	if err != nil {
		return differr.Wrap(differr.Internal, "insert file2", err)
	}

	report := reportFrom(r.Set)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO metadata (version, file1, file2, description, created, modified, similarity, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"1", file1, file2, r.Description, r.Created, r.Modified, report.similarity, report.confidence,
	); err != nil {
		return differr.Wrap(differr.Internal, "insert metadata", err)
	}

	funcAlgoID, err := writeAlgorithmCatalogue(ctx, tx, "functionalgorithm", allFunctionStepIDs())
	if err != nil {
		return differr.Wrap(differr.Internal, "write functionalgorithm catalogue", err)
	}
	bbAlgoID, err := writeAlgorithmCatalogue(ctx, tx, "basicblockalgorithm", allBasicBlockStepIDs())
	if err != nil {
		return differr.Wrap(differr.Internal, "write basicblockalgorithm catalogue", err)
	}

	for _, fp := range r.Set.FixedPoints() {
		stepID := fp.StepID
		if r.Manual[fp.PrimaryVertex] {
			stepID = steps.ManualFunctionStepID
		}
		algoID, ok := funcAlgoID[stepID]
		if !ok {
			return differr.Wrap(differr.Internal, fmt.Sprintf("unknown function algorithm id %q", stepID), nil)
		}

		name1, name2 := "", ""
		if r.Names.PrimaryName != nil {
			name1 = r.Names.PrimaryName(fp.PrimaryVertex)
		}
		if r.Names.SecondaryName != nil {
			name2 = r.Names.SecondaryName(fp.SecondaryVertex)
		}

		instrTotal := 0
		for _, bb := range fp.BasicBlocks {
			instrTotal += len(bb.InstructionPairs)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO function (address1, name1, address2, name2, similarity, confidence, flags, algorithm, commentsported, basicblocks, edges, instructions)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, 0, ?)`,
			uint64(fp.PrimaryAddress), name1, uint64(fp.SecondaryAddress), name2,
			fp.Similarity, fp.Confidence, uint8(fp.Flags), algoID, len(fp.BasicBlocks), instrTotal,
		)
		if err != nil {
			return differr.Wrap(differr.Internal, "insert function row", err)
		}
		functionID, err := res.LastInsertId()
		if err != nil {
			return differr.Wrap(differr.Internal, "read function row id", err)
		}

		for _, bb := range fp.BasicBlocks {
			bbStepID := bb.StepID
			bbAlgo, ok := bbAlgoID[bbStepID]
			if !ok {
				return differr.Wrap(differr.Internal, fmt.Sprintf("unknown basic block algorithm id %q", bbStepID), nil)
			}
			bres, err := tx.ExecContext(ctx,
				`INSERT INTO basicblock (functionid, address1, address2, algorithm, evaluate) VALUES (?, ?, ?, ?, 0)`,
				functionID, uint64(bb.PrimaryAddress), uint64(bb.SecondaryAddress), bbAlgo,
			)
			if err != nil {
				return differr.Wrap(differr.Internal, "insert basicblock row", err)
			}
			basicblockID, err := bres.LastInsertId()
			if err != nil {
				return differr.Wrap(differr.Internal, "read basicblock row id", err)
			}
			for _, pair := range bb.InstructionPairs {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO instruction (basicblockid, address1, address2) VALUES (?, ?, ?)`,
					basicblockID, uint64(pair.Primary.Address()), uint64(pair.Secondary.Address()),
				); err != nil {
					return differr.Wrap(differr.Internal, "insert instruction row", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return differr.Wrap(differr.Internal, "commit transaction", err)
	}
	return nil
}

func insertFile(ctx context.Context, tx *sql.Tx, s FileStats) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO file (filename, exefilename, hash, functions, libfunctions, calls, basicblocks, libbasicblocks, edges, libedges, instructions, libinstructions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Filename, s.ExeFilename, s.Hash, s.Functions, s.LibFunctions, s.Calls,
		s.BasicBlocks, s.LibBasicBlocks, s.Edges, s.LibEdges, s.Instructions, s.LibInstructions,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// writeAlgorithmCatalogue writes one row per id into table and returns the
// id -> row-id mapping used by the function/basicblock insert loop.
func writeAlgorithmCatalogue(ctx context.Context, tx *sql.Tx, table string, ids []string) (map[string]int64, error) {
	out := make(map[string]int64, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (name) VALUES (?)`, table), id)
		if err != nil {
			return nil, err
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		out[id] = rowID
	}
	return out, nil
}

func allFunctionStepIDs() []string {
	var ids []string
	for _, s := range steps.DefaultFunctionSteps() {
		ids = append(ids, s.ID)
	}
	ids = append(ids, steps.ReservedFunctionStepIDs()...)
	return ids
}

func allBasicBlockStepIDs() []string {
	var ids []string
	for _, s := range steps.DefaultBasicBlockSteps() {
		ids = append(ids, s.ID)
	}
	ids = append(ids, steps.ReservedBasicBlockStepIDs()...)
	return ids
}

type diffReport struct {
	similarity, confidence float64
}

// reportFrom computes the metadata row's aggregate similarity/confidence
// directly from the committed fixed points, without a store->classify
// dependency. Confidence is the mean fixed-point confidence, as in
// pkg/classify; similarity is the mean fixed-point similarity, which,
// unlike pkg/classify's score, is not scaled by the total function count.
func reportFrom(set *match.Set) diffReport {
	var confidenceSum, similaritySum float64
	var n int
	for _, fp := range set.FixedPoints() {
		confidenceSum += fp.Confidence
		similaritySum += fp.Similarity
		n++
	}
	r := diffReport{}
	if n > 0 {
		r.confidence = confidenceSum / float64(n)
		r.similarity = similaritySum / float64(n)
	}
	return r
}
