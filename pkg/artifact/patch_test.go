package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quizArtifact() *Artifact {
	return &Artifact{
		ArtifactID:    "art-1",
		ArtifactType:  TypeQuiz,
		ContentFormat: FormatJSON,
		Version:       1,
		Content: map[string]any{
			"questions": []any{
				map[string]any{"text": "2+2=?", "type": "multiple_choice"},
				map[string]any{"text": "capital of France?", "type": "multiple_choice"},
				map[string]any{"text": "name a noun", "type": "multiple_choice"},
			},
		},
	}
}

func TestApplyPatch_EmptyOpsReturnsUnchanged(t *testing.T) {
	a := quizArtifact()
	out, err := ApplyPatch(a, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Version, out.Version)
}

func TestApplyPatch_ReplaceTextOnQuestion(t *testing.T) {
	a := quizArtifact()
	out, err := ApplyPatch(a, []PatchOp{
		{Op: OpReplaceText, Target: "questions[2].type", Value: "fill_in_the_blank"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Version)

	content := out.Content.(map[string]any)
	questions := content["questions"].([]any)
	q2 := questions[2].(map[string]any)
	assert.Equal(t, "fill_in_the_blank", q2["type"])

	// original untouched
	orig := a.Content.(map[string]any)["questions"].([]any)[2].(map[string]any)
	assert.Equal(t, "multiple_choice", orig["type"])
}

func TestApplyPatch_DeleteMissingIndexFailsAtomically(t *testing.T) {
	a := quizArtifact()
	out, err := ApplyPatch(a, []PatchOp{
		{Op: OpDeleteBlock, Target: "questions[99]"},
	})
	require.Error(t, err)
	assert.Nil(t, out)
	// artifact's own content must be untouched since we operated on a copy.
	assert.Equal(t, 1, a.Version)
}

func TestApplyPatch_PPTPartialRejectsStructuralOp(t *testing.T) {
	a := &Artifact{
		ArtifactType:  TypePPT,
		ContentFormat: FormatJSON,
		Version:       1,
		Content:       map[string]any{"slides": []any{map[string]any{"title": "intro"}}},
	}
	_, err := ApplyPatch(a, []PatchOp{
		{Op: OpDeleteBlock, Target: "slides[0]"},
	})
	assert.ErrorIs(t, err, ErrUnsupportedOp)
}

func TestApplyPatch_DocIsRegenOnly(t *testing.T) {
	a := &Artifact{ArtifactType: TypeDoc, ContentFormat: FormatMarkdown, Version: 1, Content: "para one\n\npara two"}
	_, err := ApplyPatch(a, []PatchOp{{Op: OpReplaceText, Target: "paragraphs[0]", Value: "x"}})
	assert.ErrorIs(t, err, ErrUnsupportedOp)
}

func TestApplyPatch_MarkdownParagraphReplace(t *testing.T) {
	a := &Artifact{ArtifactType: TypeInteractive, ContentFormat: FormatMarkdown, Version: 1, Content: "para one\n\npara two"}
	// interactive is full-patch per matrix, so the patch reaches format
	// dispatch, which keys on content_format (markdown here) rather than
	// on the artifact type.
	out, err := ApplyPatch(a, []PatchOp{{Op: OpReplaceText, Target: "paragraphs[1]", Value: "para two edited"}})
	require.NoError(t, err)
	assert.Equal(t, "para one\n\npara two edited", out.Content)
}

func TestApplyPatch_MoveBlock(t *testing.T) {
	a := &Artifact{
		ArtifactType:  TypeInteractive,
		ContentFormat: FormatHTML,
		Version:       1,
		Content: map[string]any{
			"sections": []any{
				map[string]any{"id": "a"},
				map[string]any{"id": "b"},
			},
			"archive": []any{},
		},
	}
	out, err := ApplyPatch(a, []PatchOp{
		{Op: OpMoveBlock, Target: "sections[0]", Value: "archive"},
	})
	require.NoError(t, err)
	content := out.Content.(map[string]any)
	sections := content["sections"].([]any)
	archive := content["archive"].([]any)
	assert.Len(t, sections, 1)
	assert.Len(t, archive, 1)
}
