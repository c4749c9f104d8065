package store

import "github.com/oisee/bindiffcore/pkg/match"

// FileStats is one side's summary counts for the file table.
type FileStats struct {
	Filename        string
	ExeFilename     string
	Hash            string
	Functions       int
	LibFunctions    int
	Calls           int
	BasicBlocks     int
	LibBasicBlocks  int
	Edges           int
	LibEdges        int
	Instructions    int
	LibInstructions int
}

// FunctionNames resolves the display name of a matched vertex on one side,
// so Write never has to reach back into a callgraph.Graph itself.
type FunctionNames struct {
	PrimaryName, SecondaryName func(vertex uint32) string
}

// Result is everything Write/Transmute persist for one diff. Manual marks
// which committed fixed points (by primary vertex index) came from a
// manual match, so Write/Transmute can record them distinctly.
type Result struct {
	Primary, Secondary FileStats
	Description        string
	Created, Modified  string
	Set                *match.Set
	Names              FunctionNames
	Manual             map[uint32]bool // primary vertex -> true if manually matched
}
