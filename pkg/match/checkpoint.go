package match

import (
	"encoding/gob"
	"os"
)

// Checkpoint holds enough of a Set's committed state to resume reporting
// after a cancelled pipeline run, without re-running the matching steps.
type Checkpoint struct {
	FixedPoints []*FixedPoint
}

// NewCheckpoint snapshots every fixed point currently committed in set.
func NewCheckpoint(set *Set) *Checkpoint {
	return &Checkpoint{FixedPoints: append([]*FixedPoint(nil), set.FixedPoints()...)}
}

// Rebuild replays the checkpointed fixed points into a fresh Set, in
// their original commit order, preserving the duplicate-commit checks
// Set.Commit already applies.
func (ck *Checkpoint) Rebuild() (*Set, error) {
	set := NewSet()
	for _, fp := range ck.FixedPoints {
		if err := set.Commit(fp); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// SaveCheckpoint writes ck to path so a later process can report the
// partial result of a stopped pipeline without re-running it.
func SaveCheckpoint(path string, ck *Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(ck)
}

// LoadCheckpoint reads back a checkpoint written by SaveCheckpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var ck Checkpoint
	if err := gob.NewDecoder(f).Decode(&ck); err != nil {
		return nil, err
	}
	return &ck, nil
}
