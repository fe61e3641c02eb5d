package artifact

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// markdown patching operates at paragraph granularity only (v1):
// content is split on blank lines, and replace_text/insert_block/
// delete_block address a paragraph by index via the locator
// "paragraphs[n]".

var paragraphLocatorRe = regexp.MustCompile(`^paragraphs\[(\d+)\]$`)

func paragraphIndex(target string) (int, error) {
	m := paragraphLocatorRe.FindStringSubmatch(target)
	if m == nil {
		return 0, fmt.Errorf("markdown locator must be paragraphs[n], got %q", target)
	}
	return strconv.Atoi(m[1])
}

func splitParagraphs(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n\n")
}

func joinParagraphs(paragraphs []string) string {
	return strings.Join(paragraphs, "\n\n")
}

func applyMarkdownOps(content any, ops []PatchOp, editability Editability) (any, error) {
	text, ok := content.(string)
	if !ok {
		return nil, fmt.Errorf("%w: markdown content must be a string", ErrPatchConflict)
	}
	paragraphs := splitParagraphs(text)

	for _, op := range ops {
		if editability == EditPartial && !isTextOrStyleOp(op.Op) {
			return nil, fmt.Errorf("%w: %s not allowed at partial editability", ErrUnsupportedOp, op.Op)
		}

		switch op.Op {
		case OpReplaceText:
			idx, err := paragraphIndex(op.Target)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrPatchConflict, err)
			}
			if idx < 0 || idx >= len(paragraphs) {
				return nil, fmt.Errorf("%w: paragraph index %d out of range", ErrPatchConflict, idx)
			}
			value, ok := op.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: replace_text value must be a string", ErrPatchConflict)
			}
			paragraphs[idx] = value
		case OpInsertBlock:
			idx, err := paragraphIndex(op.Target)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrPatchConflict, err)
			}
			if idx < 0 || idx > len(paragraphs) {
				return nil, fmt.Errorf("%w: paragraph index %d out of range", ErrPatchConflict, idx)
			}
			value, ok := op.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: insert_block value must be a string", ErrPatchConflict)
			}
			out := make([]string, 0, len(paragraphs)+1)
			out = append(out, paragraphs[:idx]...)
			out = append(out, value)
			out = append(out, paragraphs[idx:]...)
			paragraphs = out
		case OpDeleteBlock:
			idx, err := paragraphIndex(op.Target)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrPatchConflict, err)
			}
			if idx < 0 || idx >= len(paragraphs) {
				return nil, fmt.Errorf("%w: paragraph index %d out of range", ErrPatchConflict, idx)
			}
			paragraphs = append(paragraphs[:idx], paragraphs[idx+1:]...)
		default:
			return nil, fmt.Errorf("%w: %s not supported for markdown (v1 paragraph granularity)", ErrUnsupportedOp, op.Op)
		}
	}

	return joinParagraphs(paragraphs), nil
}
