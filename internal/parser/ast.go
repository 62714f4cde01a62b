package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// codeBlock is one fenced code block lifted out of the markdown AST,
// together with enough position info to scan the text above it for a
// header line.
type codeBlock struct {
	// Info is the fence info string, e.g. "python" or "python # FILE: x.py".
	Info string
	// Body is the raw text between the fences.
	Body string
	// FenceStart is the byte offset of the opening fence line in the
	// source. Lookback operates on source[:FenceStart].
	FenceStart int
}

// extractCodeBlocks walks the markdown AST and returns all fenced code
// blocks in order of appearance. Goldmark already implements the
// closing-fence rule (a closing fence must be at least as long as its
// opening fence), so an outer block safely contains shorter inner
// fenced examples.
func extractCodeBlocks(source []byte) ([]codeBlock, error) {
	var blocks []codeBlock
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block codeBlock
		if fcb.Info != nil {
			block.Info = strings.TrimSpace(string(fcb.Info.Text(source)))
		}

		var body bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			body.Write(seg.Value(source))
		}
		block.Body = body.String()

		anchor := -1
		if lines.Len() > 0 {
			anchor = lines.At(0).Start
		} else if fcb.Info != nil && fcb.Info.Segment.Len() > 0 {
			anchor = fcb.Info.Segment.Start
		}
		if anchor < 0 {
			// Empty block with no info string: nothing to target, no
			// way to anchor lookback.
			return ast.WalkSkipChildren, nil
		}
		block.FenceStart = fenceLineStart(source, anchor, lines.Len() > 0)

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	return blocks, nil
}

// fenceLineStart finds the byte offset of the opening fence line given
// an anchor offset. When the anchor is the first body line, the fence is
// the line above it; when it is the info string, the fence is the
// anchor's own line.
func fenceLineStart(source []byte, anchor int, anchorIsBody bool) int {
	start := lineStartAt(source, anchor)
	if !anchorIsBody {
		return start
	}
	if start == 0 {
		return 0
	}
	return lineStartAt(source, start-1)
}

// lineStartAt returns the offset of the first byte of the line
// containing offset.
func lineStartAt(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	i := offset
	// offset may sit on the line's trailing newline.
	if i > 0 && i <= len(source) && (i == len(source) || source[i] == '\n') {
		i--
	}
	for i > 0 && source[i-1] != '\n' {
		i--
	}
	return i
}
