package binexport

import (
	"encoding/binary"
	"io"

	"github.com/oisee/bindiffcore/internal/differr"
)

// FlowGraphOffset pairs a function entry address with the byte offset of
// its payload within the file.
type FlowGraphOffset struct {
	Address uint64
	Offset  uint32
}

// Header is the fixed, little-endian prefix written ahead of a legacy
// payload, kept for compatibility with older tooling.
type Header struct {
	MetaOffset       uint32
	CallGraphOffset  uint32
	NumFlowGraphs    uint32
	FlowGraphOffsets []FlowGraphOffset
}

// WriteHeader serializes h to w, little-endian, in field order.
func WriteHeader(w io.Writer, h Header) error {
	fields := []uint32{h.MetaOffset, h.CallGraphOffset, h.NumFlowGraphs}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return differr.Wrap(differr.Internal, "binexport: write header", err)
		}
	}
	for _, off := range h.FlowGraphOffsets {
		if err := binary.Write(w, binary.LittleEndian, off.Address); err != nil {
			return differr.Wrap(differr.Internal, "binexport: write flow graph offset", err)
		}
		if err := binary.Write(w, binary.LittleEndian, off.Offset); err != nil {
			return differr.Wrap(differr.Internal, "binexport: write flow graph offset", err)
		}
	}
	return nil
}

// ReadHeader reads a Header from r. r must also support io.Seeker: after
// reading the declared offsets, ReadHeader appends a synthetic trailing
// {Address: 0, Offset: fileSize} entry so the last payload's end is
// always bounded without a special case at the call site.
func ReadHeader(r io.ReadSeeker) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h.MetaOffset); err != nil {
		return Header{}, differr.Wrap(differr.InvalidArgument, "binexport: read meta_offset", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.CallGraphOffset); err != nil {
		return Header{}, differr.Wrap(differr.InvalidArgument, "binexport: read call_graph_offset", err)
	}
	if h.MetaOffset == 0 || h.CallGraphOffset == 0 {
		return Header{}, differr.New(differr.InvalidArgument, "binexport: invalid legacy header")
	}
	if err := binary.Read(r, binary.LittleEndian, &h.NumFlowGraphs); err != nil {
		return Header{}, differr.Wrap(differr.InvalidArgument, "binexport: read num_flow_graphs", err)
	}

	h.FlowGraphOffsets = make([]FlowGraphOffset, 0, h.NumFlowGraphs)
	for i := uint32(0); i < h.NumFlowGraphs; i++ {
		var off FlowGraphOffset
		if err := binary.Read(r, binary.LittleEndian, &off.Address); err != nil {
			return Header{}, differr.Wrap(differr.InvalidArgument, "binexport: read flow graph address", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &off.Offset); err != nil {
			return Header{}, differr.Wrap(differr.InvalidArgument, "binexport: read flow graph offset", err)
		}
		h.FlowGraphOffsets = append(h.FlowGraphOffsets, off)
	}

	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return Header{}, differr.Wrap(differr.Internal, "binexport: seek current", err)
	}
	fileSize, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return Header{}, differr.Wrap(differr.Internal, "binexport: seek end", err)
	}
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return Header{}, differr.Wrap(differr.Internal, "binexport: seek restore", err)
	}
	h.FlowGraphOffsets = append(h.FlowGraphOffsets, FlowGraphOffset{Address: 0, Offset: uint32(fileSize)})
	return h, nil
}
