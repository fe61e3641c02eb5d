package tools

// RegisterPlatform registers the platform toolset: persistence
// into the wider platform (assignments, share links), private-document
// search, clarification, and the standalone report page.
func RegisterPlatform(r *Registry, deps *Deps) {
	r.MustRegister(Definition{
		Name:        "save_as_assignment",
		Description: "Publish the current artifact as an assignment on the platform.",
		Toolset:     Platform,
		OutputType:  OutputRawMap,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"artifactId": map[string]any{"type": "string"}},
			"required":   []string{"artifactId"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			if deps.AppBackend == nil {
				return ToolResult{Status: StatusDegraded, Reason: "platform backend unavailable"}, nil
			}
			artifactID := argString(args, "artifactId")
			if artifactID == "" {
				return ErrorResult("artifactId required"), nil
			}
			assignmentID, err := deps.AppBackend.SaveAsAssignment(ctx, ctx.TeacherID, artifactID)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			return ToolResult{Status: StatusOK, Data: map[string]any{"assignmentId": assignmentID}}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "create_share_link",
		Description: "Create a shareable read-only link to the current artifact.",
		Toolset:     Platform,
		OutputType:  OutputRawMap,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"artifactId": map[string]any{"type": "string"}},
			"required":   []string{"artifactId"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			if deps.AppBackend == nil {
				return ToolResult{Status: StatusDegraded, Reason: "platform backend unavailable"}, nil
			}
			artifactID := argString(args, "artifactId")
			if artifactID == "" {
				return ErrorResult("artifactId required"), nil
			}
			url, err := deps.AppBackend.CreateShareLink(ctx, ctx.TeacherID, artifactID)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			return ToolResult{Status: StatusOK, Data: map[string]any{"url": url}}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "search_teacher_documents",
		Description: "Search the teacher's private document library for passages relevant to a query.",
		Toolset:     Platform,
		OutputType:  OutputRawMap,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			if deps.RAG == nil {
				return ToolResult{Status: StatusDegraded, Reason: "document search unavailable"}, nil
			}
			query := argString(args, "query")
			if query == "" {
				return ErrorResult("query required"), nil
			}
			results, err := deps.RAG.Search(ctx, ctx.TeacherID, query)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			if len(results) == 0 {
				return ToolResult{Status: StatusNoResult, Reason: "no matching documents"}, nil
			}
			return ToolResult{Status: StatusOK, Data: map[string]any{"results": results}}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "ask_clarification",
		Description: "Ask the teacher a structured clarifying question instead of guessing at an ambiguous request.",
		Toolset:     Platform,
		OutputType:  OutputClarifyEvent,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{"type": "string"},
				"options":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []string{"question"},
		},
		Handler: func(_ Context, args map[string]any) (ToolResult, error) {
			question := argString(args, "question")
			if question == "" {
				return ErrorResult("question required"), nil
			}
			var options []string
			if raw, ok := args["options"].([]any); ok {
				for _, o := range raw {
					if s, ok := o.(string); ok {
						options = append(options, s)
					}
				}
			}
			return ToolResult{
				Status: StatusOK, Action: ActionClarify,
				ClarifyQuestion: question, ClarifyOptions: options,
			}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "build_report_page",
		Description: "Build a standalone printable report page summarizing class or student performance.",
		Toolset:     Platform,
		OutputType:  OutputToolResult,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"classId": map[string]any{"type": "string"}},
			"required":   []string{"classId"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			classID := argString(args, "classId")
			detail, err := deps.Data.GetClassDetail(ctx, ctx.TeacherID, classID)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			html := "<!doctype html><html><head><title>Class report</title></head><body><h1>" +
				detail.Name + "</h1><p>Students: " + argString(args, "classId") + "</p></body></html>"
			return putArtifact(ctx, deps, "report", "html", html)
		},
	})
}
