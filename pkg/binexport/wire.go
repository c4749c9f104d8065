package binexport

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// field numbers for the length-delimited artifact message. These
// are this implementation's own numbering — the original.proto schema
// was not part of the retrieved source (see DESIGN.md) — chosen to be
// stable across this codebase's own writer and reader.
const (
	fieldMeta         = 1
	fieldStringTable  = 2
	fieldMnemonic     = 3
	fieldExpression   = 4
	fieldOperand      = 5
	fieldInstruction  = 6
	fieldBasicBlock   = 7
	fieldFlowGraph    = 8
	fieldCallGraph    = 9
	fieldComment      = 10
)

const (
	metaExecutableName = 1
	metaExecutableID   = 2
	metaArchitecture   = 3
	metaTimestamp      = 4
)

const (
	mnemonicName = 1
)

const (
	exprType       = 1
	exprSymbol     = 2
	exprImmediate  = 3
	exprHasParent  = 4
	exprParent     = 5
)

const (
	operandExpressionIndex = 1
)

const (
	instrAddress       = 1
	instrRawBytes      = 2
	instrMnemonicIndex = 3
	instrOperandIndex  = 4
	instrCallTarget    = 5
	instrCommentIndex  = 6
)

const (
	blockBegin = 1
	blockEnd   = 2
)

const (
	flowEntry       = 1
	flowBlockIndex  = 2
	flowEdge        = 3
)

const (
	flowEdgeSource   = 1
	flowEdgeTarget   = 2
	flowEdgeType     = 3
	flowEdgeIsBack   = 4
)

const (
	callVertex = 1
	callEdge   = 2
)

const (
	vertexAddress       = 1
	vertexMangledName   = 2
	vertexDemangledName = 3
	vertexModuleName    = 4
	vertexType          = 5
)

const (
	callEdgeSource = 1
	callEdgeTarget = 2
)

const (
	commentInstructionIndex = 1
	commentOperandIndex     = 2
	commentType             = 3
	commentRepeatable       = 4
	commentStringTableIndex = 5
)

// walkMessage iterates the tag/value pairs of a length-delimited protobuf
// message, invoking fn with each field's number, wire type and raw value
// bytes; a non-nil error from fn stops the walk and is returned.
func walkMessage(data []byte, fn func(fieldNum protowire.Number, typ protowire.Type, v []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("binexport: malformed tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		var value []byte
		var consumed int
		switch typ {
		case protowire.VarintType:
			_, consumed = protowire.ConsumeVarint(data)
			value = data[:consumed]
		case protowire.Fixed32Type:
			_, consumed = protowire.ConsumeFixed32(data)
			value = data[:consumed]
		case protowire.Fixed64Type:
			_, consumed = protowire.ConsumeFixed64(data)
			value = data[:consumed]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("binexport: malformed length-delimited field: %w", protowire.ParseError(n))
			}
			value, consumed = v, n
		default:
			return fmt.Errorf("binexport: unsupported wire type %d", typ)
		}
		if consumed < 0 {
			return fmt.Errorf("binexport: malformed field value: %w", protowire.ParseError(consumed))
		}
		if err := fn(num, typ, value); err != nil {
			return err
		}
		data = data[consumed:]
	}
	return nil
}

func asString(v []byte) string { return string(v) }

func asVarint(v []byte) uint64 {
	n, _ := protowire.ConsumeVarint(v)
	return n
}

func asFixed64(v []byte) uint64 {
	n, _ := protowire.ConsumeFixed64(v)
	return n
}
