package store

import (
	"context"
	"database/sql"

	"github.com/oisee/bindiffcore/internal/differr"
	"github.com/oisee/bindiffcore/pkg/match"
	"github.com/oisee/bindiffcore/pkg/steps"
)

// Transmute reconciles a persisted result (addressed by file1/file2's
// function rows) with a fresh in-memory match.Set: function rows whose
// (address1, address2) pair no longer appears in fresh are deleted, rows
// present in fresh but absent from the store are inserted, manually
// matched fixed points get their algorithm id rewritten to the manual id
// and confidence forced to 1.0, and metadata.modified is set to now
// (caller-supplied — this package never reads the wall clock).
func Transmute(ctx context.Context, db *sql.DB, r *Result, now string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return differr.Wrap(differr.Internal, "begin transaction", err)
	}
	defer tx.Rollback()

	existing, err := existingFunctionKeys(ctx, tx)
	if err != nil {
		return differr.Wrap(differr.Internal, "read existing function keys", err)
	}

	fresh := map[functionKey]*match.FixedPoint{}
	for _, fp := range r.Set.FixedPoints() {
		fresh[functionKey{uint64(fp.PrimaryAddress), uint64(fp.SecondaryAddress)}] = fp
	}

	for key, id := range existing {
		if _, ok := fresh[key]; !ok {
			if _, err := tx.ExecContext(ctx, `DELETE FROM instruction WHERE basicblockid IN (SELECT id FROM basicblock WHERE functionid = ?)`, id); err != nil {
				return differr.Wrap(differr.Internal, "delete stale instruction rows", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM basicblock WHERE functionid = ?`, id); err != nil {
				return differr.Wrap(differr.Internal, "delete stale basicblock rows", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM function WHERE id = ?`, id); err != nil {
				return differr.Wrap(differr.Internal, "delete stale function row", err)
			}
		}
	}

	funcAlgoID, err := algorithmIDs(ctx, tx, "functionalgorithm")
	if err != nil {
		return differr.Wrap(differr.Internal, "read functionalgorithm ids", err)
	}
	bbAlgoID, err := algorithmIDs(ctx, tx, "basicblockalgorithm")
	if err != nil {
		return differr.Wrap(differr.Internal, "read basicblockalgorithm ids", err)
	}

	for key, fp := range fresh {
		stepID := fp.StepID
		confidence := fp.Confidence
		if r.Manual[fp.PrimaryVertex] {
			stepID = steps.ManualFunctionStepID
			confidence = 1.0
		}
		algoID, ok := funcAlgoID[stepID]
		if !ok {
			algoID, err = insertAlgorithmName(ctx, tx, "functionalgorithm", stepID)
			if err != nil {
				return differr.Wrap(differr.Internal, "insert missing functionalgorithm row", err)
			}
			funcAlgoID[stepID] = algoID
		}

		if _, existed := existing[key]; existed {
			if _, err := tx.ExecContext(ctx,
				`UPDATE function SET similarity = ?, confidence = ?, flags = ?, algorithm = ? WHERE address1 = ? AND address2 = ?`,
				fp.Similarity, confidence, uint8(fp.Flags), algoID, key.addr1, key.addr2,
			); err != nil {
				return differr.Wrap(differr.Internal, "update transmuted function row", err)
			}
			continue
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO function (address1, name1, address2, name2, similarity, confidence, flags, algorithm, commentsported, basicblocks, edges, instructions)
			 VALUES (?, '', ?, '', ?, ?, ?, ?, 0, ?, 0, 0)`,
			key.addr1, key.addr2, fp.Similarity, confidence, uint8(fp.Flags), algoID, len(fp.BasicBlocks),
		)
		if err != nil {
			return differr.Wrap(differr.Internal, "insert new function row", err)
		}
		functionID, err := res.LastInsertId()
		if err != nil {
			return differr.Wrap(differr.Internal, "read new function row id", err)
		}
		for _, bb := range fp.BasicBlocks {
			bbAlgo, ok := bbAlgoID[bb.StepID]
			if !ok {
				bbAlgo, err = insertAlgorithmName(ctx, tx, "basicblockalgorithm", bb.StepID)
				if err != nil {
					return differr.Wrap(differr.Internal, "insert missing basicblockalgorithm row", err)
				}
				bbAlgoID[bb.StepID] = bbAlgo
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO basicblock (functionid, address1, address2, algorithm, evaluate) VALUES (?, ?, ?, ?, 0)`,
				functionID, uint64(bb.PrimaryAddress), uint64(bb.SecondaryAddress), bbAlgo,
			); err != nil {
				return differr.Wrap(differr.Internal, "insert new basicblock row", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE metadata SET modified = ?`, now); err != nil {
		return differr.Wrap(differr.Internal, "refresh metadata.modified", err)
	}

	if err := tx.Commit(); err != nil {
		return differr.Wrap(differr.Internal, "commit transmute transaction", err)
	}
	return nil
}

type functionKey struct {
	addr1, addr2 uint64
}

func existingFunctionKeys(ctx context.Context, tx *sql.Tx) (map[functionKey]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, address1, address2 FROM function`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[functionKey]int64{}
	for rows.Next() {
		var id int64
		var k functionKey
		if err := rows.Scan(&id, &k.addr1, &k.addr2); err != nil {
			return nil, err
		}
		out[k] = id
	}
	return out, rows.Err()
}

func algorithmIDs(ctx context.Context, tx *sql.Tx, table string) (map[string]int64, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id, name FROM "+table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[name] = id
	}
	return out, rows.Err()
}

func insertAlgorithmName(ctx context.Context, tx *sql.Tx, table, name string) (int64, error) {
	res, err := tx.ExecContext(ctx, "INSERT INTO "+table+" (name) VALUES (?)", name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
