package tools

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/classroomai/gateway/pkg/artifact"
)

// RegisterGeneration registers the generation toolset: the
// tools that produce a new artifact version and persist it to the
// Artifact Store.
func RegisterGeneration(r *Registry, deps *Deps) {
	r.MustRegister(Definition{
		Name:        "generate_quiz_questions",
		Description: "Generate a multiple-choice quiz as a quiz/json artifact.",
		Toolset:     Generation,
		OutputType:  OutputToolResult,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"topic":         map[string]any{"type": "string"},
				"questionCount": map[string]any{"type": "integer"},
			},
			"required": []string{"topic"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			topic := argString(args, "topic")
			if topic == "" {
				return ErrorResult("topic required"), nil
			}
			count := argInt(args, "questionCount", 5)

			questions := make([]any, 0, count)
			for i := 0; i < count; i++ {
				questions = append(questions, map[string]any{
					"prompt":        fmt.Sprintf("%s — question %d", topic, i+1),
					"choices":       []string{"A", "B", "C", "D"},
					"correctChoice": 0,
				})
			}
			content := map[string]any{"topic": topic, "questions": questions}

			return putArtifact(ctx, deps, artifact.TypeQuiz, artifact.FormatJSON, content)
		},
	})

	r.MustRegister(Definition{
		Name:        "propose_pptx_outline",
		Description: "Propose a slide-by-slide outline for a presentation before generating it.",
		Toolset:     Generation,
		OutputType:  OutputRawMap,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"topic": map[string]any{"type": "string"}},
			"required":   []string{"topic"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			topic := argString(args, "topic")
			if topic == "" {
				return ErrorResult("topic required"), nil
			}
			outline := []string{
				fmt.Sprintf("%s: overview", topic),
				"Key concepts",
				"Worked example",
				"Common mistakes",
				"Recap and questions",
			}
			return ToolResult{Status: StatusOK, Data: map[string]any{"outline": outline}}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "generate_pptx",
		Description: "Generate a slide deck as a ppt/json artifact from an approved outline.",
		Toolset:     Generation,
		OutputType:  OutputToolResult,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"topic":   map[string]any{"type": "string"},
				"outline": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []string{"topic", "outline"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			topic := argString(args, "topic")
			if topic == "" {
				return ErrorResult("topic required"), nil
			}
			rawOutline, _ := args["outline"].([]any)
			slides := make([]any, 0, len(rawOutline))
			for _, item := range rawOutline {
				title, _ := item.(string)
				slides = append(slides, map[string]any{"title": title, "body": ""})
			}
			if len(slides) == 0 {
				slides = append(slides, map[string]any{"title": topic, "body": ""})
			}
			content := map[string]any{"topic": topic, "slides": slides}

			return putArtifact(ctx, deps, artifact.TypePPT, artifact.FormatJSON, content)
		},
	})

	r.MustRegister(Definition{
		Name:        "generate_docx",
		Description: "Generate a worksheet or handout as a doc/markdown artifact.",
		Toolset:     Generation,
		OutputType:  OutputToolResult,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"topic": map[string]any{"type": "string"}},
			"required":   []string{"topic"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			topic := argString(args, "topic")
			if topic == "" {
				return ErrorResult("topic required"), nil
			}
			content := fmt.Sprintf("# %s\n\nThis handout covers %s.\n\n## Practice\n\nWork through the examples below.\n", topic, topic)
			return putArtifact(ctx, deps, artifact.TypeDoc, artifact.FormatMarkdown, content)
		},
	})

	r.MustRegister(Definition{
		Name:        "render_pdf",
		Description: "Render an existing doc/markdown artifact to a PDF resource.",
		Toolset:     Generation,
		OutputType:  OutputToolResult,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"artifactId": map[string]any{"type": "string"}},
			"required":   []string{"artifactId"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			artifactID := argString(args, "artifactId")
			existing, err := deps.Artifacts.Get(ctx, artifactID)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			if existing.ContentFormat != artifact.FormatMarkdown {
				return ToolResult{Status: StatusError, Reason: "render_pdf requires a doc/markdown artifact"}, nil
			}
			if deps.Blob == nil {
				return ToolResult{Status: StatusDegraded, Reason: "pdf rendering unavailable: no blob store configured"}, nil
			}
			text, _ := existing.Content.(string)
			url, err := deps.Blob.Put(ctx, existing.ArtifactID+".pdf", []byte(text), "application/pdf")
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			existing.Resources = append(existing.Resources, artifact.Resource{
				ID: uuid.NewString(), Storage: artifact.StorageExternal, MimeType: "application/pdf", URL: url,
			})
			if err := deps.Artifacts.Put(ctx, existing); err != nil {
				return ErrorResult(err.Error()), nil
			}
			return ToolResult{Status: StatusOK, ArtifactType: string(existing.ArtifactType), ContentFormat: string(existing.ContentFormat),
				Data: map[string]any{"artifactId": existing.ArtifactID, "pdfUrl": url}}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "generate_interactive_html",
		Description: "Generate a self-contained interactive page as an interactive/html artifact.",
		Toolset:     Generation,
		OutputType:  OutputToolResult,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"topic": map[string]any{"type": "string"}},
			"required":   []string{"topic"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			topic := argString(args, "topic")
			if topic == "" {
				return ErrorResult("topic required"), nil
			}
			html := fmt.Sprintf("<!doctype html><html><head><title>%s</title></head><body><h1>%s</h1></body></html>", topic, topic)
			return putArtifact(ctx, deps, artifact.TypeInteractive, artifact.FormatHTML, html)
		},
	})

	r.MustRegister(Definition{
		Name:        "request_interactive_content",
		Description: "Request a specific interactive widget (e.g. a drag-and-drop matching game) be embedded in an interactive/html artifact.",
		Toolset:     Generation,
		OutputType:  OutputRawMap,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"artifactId": map[string]any{"type": "string"},
				"widget":     map[string]any{"type": "string"},
			},
			"required": []string{"artifactId", "widget"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			existing, err := deps.Artifacts.Get(ctx, argString(args, "artifactId"))
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			if existing.ArtifactType != artifact.TypeInteractive {
				return ErrorResult("request_interactive_content requires an interactive artifact"), nil
			}
			return ToolResult{Status: StatusOK, Data: map[string]any{
				"artifactId": existing.ArtifactID,
				"widget":     argString(args, "widget"),
			}}, nil
		},
	})
}

// putArtifact assigns a fresh artifact id at version 1, persists it, and
// wraps it in the generation-tool ToolResult envelope.
func putArtifact(ctx Context, deps *Deps, t artifact.Type, format artifact.ContentFormat, content any) (ToolResult, error) {
	a := &artifact.Artifact{
		ArtifactID:     uuid.NewString(),
		ConversationID: ctx.ConversationID,
		ArtifactType:   t,
		ContentFormat:  format,
		Content:        content,
		Version:        1,
	}
	if err := deps.Artifacts.Put(ctx, a); err != nil {
		return ErrorResult(err.Error()), nil
	}
	return ToolResult{
		Status:        StatusOK,
		Action:        ActionComplete,
		ArtifactType:  string(t),
		ContentFormat: string(format),
		Data:          map[string]any{"artifactId": a.ArtifactID, "version": a.Version},
	}, nil
}
