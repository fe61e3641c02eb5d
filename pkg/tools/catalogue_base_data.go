package tools

import "fmt"

// RegisterBaseData registers the base_data toolset: read-only
// access to the upstream classroom/submission/grade data, always
// available to every turn.
func RegisterBaseData(r *Registry, deps *Deps) {
	r.MustRegister(Definition{
		Name:        "get_teacher_classes",
		Description: "List the classes owned by the authenticated teacher.",
		Toolset:     BaseData,
		OutputType:  OutputRawMap,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			classes, err := deps.Data.ListClasses(ctx, ctx.TeacherID)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			return ToolResult{Status: StatusOK, Data: map[string]any{"classes": classes}}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "get_class_detail",
		Description: "Fetch the roster and metadata for one class.",
		Toolset:     BaseData,
		OutputType:  OutputRawMap,
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
			if classID == "" {
				return ErrorResult("classId required"), nil
			}
			detail, err := deps.Data.GetClassDetail(ctx, ctx.TeacherID, classID)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			return ToolResult{Status: StatusOK, Data: map[string]any{"class": detail}}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "get_assignment_submissions",
		Description: "Fetch every submission for one assignment.",
		Toolset:     BaseData,
		OutputType:  OutputRawMap,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"assignmentId": map[string]any{"type": "string"}},
			"required":   []string{"assignmentId"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			assignmentID := argString(args, "assignmentId")
			if assignmentID == "" {
				return ErrorResult("assignmentId required"), nil
			}
			submissions, err := deps.Data.GetAssignmentSubmissions(ctx, ctx.TeacherID, assignmentID)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			return ToolResult{Status: StatusOK, Data: map[string]any{"submissions": submissions}}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "get_student_grades",
		Description: "Fetch a student's grade history across subjects.",
		Toolset:     BaseData,
		OutputType:  OutputRawMap,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"studentId": map[string]any{"type": "string"}},
			"required":   []string{"studentId"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			studentID := argString(args, "studentId")
			if studentID == "" {
				return ErrorResult("studentId required"), nil
			}
			grades, err := deps.Data.GetStudentGrades(ctx, ctx.TeacherID, studentID)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			return ToolResult{Status: StatusOK, Data: map[string]any{"grades": grades}}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "resolve_entity",
		Description: "Resolve a natural-language reference (class name, student name) to an entity id.",
		Toolset:     BaseData,
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
			query := argString(args, "query")
			if query == "" {
				return ErrorResult("query required"), nil
			}
			resolved, err := deps.Data.ResolveEntity(ctx, ctx.TeacherID, query)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			if len(resolved) == 0 {
				return ToolResult{Status: StatusNoResult, Reason: fmt.Sprintf("no entity matched %q", query)}, nil
			}
			return ToolResult{Status: StatusOK, Data: resolved}, nil
		},
	})
}
