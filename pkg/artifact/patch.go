package artifact

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Op is one of the seven structured edit kinds a patch_artifact call may
// request.
type Op string

const (
	OpReplaceText        Op = "replace_text"
	OpInsertBlock         Op = "insert_block"
	OpDeleteBlock         Op = "delete_block"
	OpMoveBlock           Op = "move_block"
	OpSetStyle            Op = "set_style"
	OpReplaceMedia        Op = "replace_media"
	OpTransformStructure Op = "transform_structure"
)

// PatchOp is one structured edit instruction.
type PatchOp struct {
	Op     Op     `json:"op"`
	Target string `json:"target"` // locator grammar, e.g. "questions[2]", "slides[0].title"
	Value  any    `json:"value"`
}

// ErrUnsupportedOp is returned when an op is legal for the format grammar
// but not supported at the artifact's editability level.
var ErrUnsupportedOp = fmt.Errorf("artifact: unsupported op for this artifact's editability")

// ErrPatchConflict is returned for a locator that cannot be resolved
// (missing index, wrong type) — the whole patch fails atomically.
var ErrPatchConflict = fmt.Errorf("artifact: patch conflict")

// ApplyPatch is the patch_artifact handler algorithm. It never
// mutates the passed-in artifact; on success it returns a new Artifact
// with Version+1 and the ops applied; on any failure it returns a nil
// artifact and an error, leaving the caller's copy (and thus the store)
// untouched.
func ApplyPatch(a *Artifact, ops []PatchOp) (*Artifact, error) {
	editability := EditabilityFor(a.ArtifactType)
	if editability == EditRegenOnly {
		return nil, fmt.Errorf("%w: artifact type %q is regen-only", ErrUnsupportedOp, a.ArtifactType)
	}

	if len(ops) == 0 {
		clone := *a
		return &clone, nil
	}

	var newContent any
	var err error

	switch a.ContentFormat {
	case FormatJSON:
		newContent, err = applyStructuredOps(a.Content, ops, editability)
	case FormatMarkdown:
		newContent, err = applyMarkdownOps(a.Content, ops, editability)
	case FormatHTML:
		newContent, err = applyStructuredOps(a.Content, ops, editability)
	default:
		return nil, fmt.Errorf("%w: unknown content format %q", ErrUnsupportedOp, a.ContentFormat)
	}
	if err != nil {
		return nil, err
	}

	out := *a
	out.Content = newContent
	out.Version = a.Version + 1
	return &out, nil
}

// applyStructuredOps applies ops against a JSON-like tree (map[string]any /
// []any), using the bracket/dotted locator grammar. All ops apply to a deep
// copy; any failure aborts the whole patch.
func applyStructuredOps(content any, ops []PatchOp, editability Editability) (any, error) {
	tree, err := deepCopyJSONish(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatchConflict, err)
	}

	for _, op := range ops {
		if editability == EditPartial && !isTextOrStyleOp(op.Op) {
			return nil, fmt.Errorf("%w: %s not allowed at partial editability", ErrUnsupportedOp, op.Op)
		}

		path, err := parseLocator(op.Target)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPatchConflict, err)
		}

		switch op.Op {
		case OpReplaceText, OpSetStyle, OpReplaceMedia, OpTransformStructure:
			if err := setAtPath(&tree, path, op.Value); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrPatchConflict, err)
			}
		case OpInsertBlock:
			if err := insertAtPath(&tree, path, op.Value); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrPatchConflict, err)
			}
		case OpDeleteBlock:
			if err := deleteAtPath(&tree, path); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrPatchConflict, err)
			}
		case OpMoveBlock:
			dest, ok := op.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: move_block value must be a destination locator", ErrPatchConflict)
			}
			if err := moveAtPath(&tree, path, dest); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrPatchConflict, err)
			}
		default:
			return nil, fmt.Errorf("%w: unknown op %q", ErrUnsupportedOp, op.Op)
		}
	}

	return tree, nil
}

func isTextOrStyleOp(op Op) bool {
	return op == OpReplaceText || op == OpSetStyle
}

func deepCopyJSONish(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// locatorSegment is one step of a parsed locator: a field name, optionally
// followed by an array index.
type locatorSegment struct {
	field    string
	hasIndex bool
	index    int
}

var locatorTokenRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(\[(\d+)\])?$`)

func parseLocator(target string) ([]locatorSegment, error) {
	if target == "" {
		return nil, fmt.Errorf("empty locator")
	}
	parts := strings.Split(target, ".")
	segments := make([]locatorSegment, 0, len(parts))
	for _, p := range parts {
		m := locatorTokenRe.FindStringSubmatch(p)
		if m == nil {
			return nil, fmt.Errorf("invalid locator token %q", p)
		}
		seg := locatorSegment{field: m[1]}
		if m[3] != "" {
			idx, err := strconv.Atoi(m[3])
			if err != nil {
				return nil, fmt.Errorf("invalid locator index in %q", p)
			}
			seg.hasIndex = true
			seg.index = idx
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// navigate walks all but the last segment, returning the parent container
// and the last segment so callers can read/write/delete/insert at it.
func navigate(root *any, path []locatorSegment) (any, locatorSegment, error) {
	if len(path) == 0 {
		return nil, locatorSegment{}, fmt.Errorf("empty path")
	}
	cur := *root
	for _, seg := range path[:len(path)-1] {
		next, err := step(cur, seg)
		if err != nil {
			return nil, locatorSegment{}, err
		}
		cur = next
	}
	return cur, path[len(path)-1], nil
}

func step(cur any, seg locatorSegment) (any, error) {
	m, ok := cur.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot descend into non-object at %q", seg.field)
	}
	v, ok := m[seg.field]
	if !ok {
		return nil, fmt.Errorf("missing field %q", seg.field)
	}
	if seg.hasIndex {
		arr, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("field %q is not an array", seg.field)
		}
		if seg.index < 0 || seg.index >= len(arr) {
			return nil, fmt.Errorf("index %d out of range for %q", seg.index, seg.field)
		}
		return arr[seg.index], nil
	}
	return v, nil
}

func setAtPath(root *any, path []locatorSegment, value any) error {
	parent, last, err := navigate(root, path)
	if err != nil {
		return err
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set field %q on non-object", last.field)
	}
	if !last.hasIndex {
		m[last.field] = value
		return nil
	}
	arr, ok := m[last.field].([]any)
	if !ok {
		return fmt.Errorf("field %q is not an array", last.field)
	}
	if last.index < 0 || last.index >= len(arr) {
		return fmt.Errorf("index %d out of range for %q", last.index, last.field)
	}
	arr[last.index] = value
	return nil
}

func insertAtPath(root *any, path []locatorSegment, value any) error {
	parent, last, err := navigate(root, path)
	if err != nil {
		return err
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot insert into non-object at %q", last.field)
	}
	arr, ok := m[last.field].([]any)
	if !ok {
		return fmt.Errorf("field %q is not an array", last.field)
	}
	if !last.hasIndex {
		m[last.field] = append(arr, value)
		return nil
	}
	if last.index < 0 || last.index > len(arr) {
		return fmt.Errorf("index %d out of range for insert into %q", last.index, last.field)
	}
	out := make([]any, 0, len(arr)+1)
	out = append(out, arr[:last.index]...)
	out = append(out, value)
	out = append(out, arr[last.index:]...)
	m[last.field] = out
	return nil
}

func deleteAtPath(root *any, path []locatorSegment) error {
	parent, last, err := navigate(root, path)
	if err != nil {
		return err
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot delete from non-object at %q", last.field)
	}
	if !last.hasIndex {
		if _, ok := m[last.field]; !ok {
			return fmt.Errorf("missing field %q", last.field)
		}
		delete(m, last.field)
		return nil
	}
	arr, ok := m[last.field].([]any)
	if !ok {
		return fmt.Errorf("field %q is not an array", last.field)
	}
	if last.index < 0 || last.index >= len(arr) {
		return fmt.Errorf("index %d out of range for delete in %q", last.index, last.field)
	}
	m[last.field] = append(arr[:last.index], arr[last.index+1:]...)
	return nil
}

func moveAtPath(root *any, srcPath []locatorSegment, destTarget string) error {
	destPath, err := parseLocator(destTarget)
	if err != nil {
		return err
	}

	srcParent, srcLast, err := navigate(root, srcPath)
	if err != nil {
		return err
	}
	srcMap, ok := srcParent.(map[string]any)
	if !ok || !srcLast.hasIndex {
		return fmt.Errorf("move_block source must be an array element locator")
	}
	srcArr, ok := srcMap[srcLast.field].([]any)
	if !ok || srcLast.index < 0 || srcLast.index >= len(srcArr) {
		return fmt.Errorf("invalid move_block source index")
	}
	value := srcArr[srcLast.index]
	srcMap[srcLast.field] = append(srcArr[:srcLast.index], srcArr[srcLast.index+1:]...)

	return insertAtPath(root, destPath, value)
}
