package tools

import (
	"math"
	"sort"

	"github.com/classroomai/gateway/pkg/external"
)

// RegisterAnalysis registers the analysis toolset:
// statistics and weakness/mastery analysis computed over upstream data.
func RegisterAnalysis(r *Registry, deps *Deps) {
	r.MustRegister(Definition{
		Name:        "calculate_stats",
		Description: "Compute mean, median, min, max, stddev over a student's grades.",
		Toolset:     Analysis,
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
			grades, err := deps.Data.GetStudentGrades(ctx, ctx.TeacherID, studentID)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			if len(grades) == 0 {
				return ToolResult{Status: StatusNoResult, Reason: "no grades on record"}, nil
			}
			return ToolResult{Status: StatusOK, Data: statsOf(gradeScores(grades))}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "compare_performance",
		Description: "Compare two students' grade statistics side by side.",
		Toolset:     Analysis,
		OutputType:  OutputRawMap,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"studentIdA": map[string]any{"type": "string"},
				"studentIdB": map[string]any{"type": "string"},
			},
			"required": []string{"studentIdA", "studentIdB"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			a, err := deps.Data.GetStudentGrades(ctx, ctx.TeacherID, argString(args, "studentIdA"))
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			b, err := deps.Data.GetStudentGrades(ctx, ctx.TeacherID, argString(args, "studentIdB"))
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			return ToolResult{Status: StatusOK, Data: map[string]any{
				"studentA": statsOf(gradeScores(a)),
				"studentB": statsOf(gradeScores(b)),
			}}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "analyze_student_weakness",
		Description: "Identify the subjects where a student scores furthest below their own average.",
		Toolset:     Analysis,
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
			grades, err := deps.Data.GetStudentGrades(ctx, ctx.TeacherID, argString(args, "studentId"))
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			if len(grades) == 0 {
				return ToolResult{Status: StatusNoResult, Reason: "no grades on record"}, nil
			}
			mean := statsOf(gradeScores(grades))["mean"].(float64)
			type weak struct {
				Subject string  `json:"subject"`
				Score   float64 `json:"score"`
				Delta   float64 `json:"delta"`
			}
			var weaknesses []weak
			for _, g := range grades {
				if g.Score < mean {
					weaknesses = append(weaknesses, weak{Subject: g.Subject, Score: g.Score, Delta: mean - g.Score})
				}
			}
			sort.Slice(weaknesses, func(i, j int) bool { return weaknesses[i].Delta > weaknesses[j].Delta })
			return ToolResult{Status: StatusOK, Data: map[string]any{"weaknesses": weaknesses, "mean": mean}}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "get_student_error_patterns",
		Description: "Count an assignment's submissions and how many of them score below 60; individual answers are not examined.",
		Toolset:     Analysis,
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
			submissions, err := deps.Data.GetAssignmentSubmissions(ctx, ctx.TeacherID, argString(args, "assignmentId"))
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			below := 0
			for _, s := range submissions {
				if s.Score < 60 {
					below++
				}
			}
			return ToolResult{Status: StatusOK, Data: map[string]any{
				"submissionCount": len(submissions),
				"belowPassing":    below,
			}}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "calculate_class_mastery",
		Description: "Compute a class-wide mastery score from its roster's submission scores.",
		Toolset:     Analysis,
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
			detail, err := deps.Data.GetClassDetail(ctx, ctx.TeacherID, classID)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			submissions, err := deps.Data.GetAssignmentSubmissions(ctx, ctx.TeacherID, classID)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			stats := statsOf(submissionScores(submissions))
			return ToolResult{Status: StatusOK, Data: map[string]any{
				"class":    detail,
				"mastery":  stats,
			}}, nil
		},
	})
}

func gradeScores(grades []external.Grade) []float64 {
	out := make([]float64, len(grades))
	for i, g := range grades {
		out[i] = g.Score
	}
	return out
}

func submissionScores(submissions []external.Submission) []float64 {
	out := make([]float64, len(submissions))
	for i, s := range submissions {
		out[i] = s.Score
	}
	return out
}

func statsOf(values []float64) map[string]any {
	if len(values) == 0 {
		return map[string]any{"mean": 0.0, "median": 0.0, "min": 0.0, "max": 0.0, "stddev": 0.0}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	return map[string]any{
		"mean":   mean,
		"median": median,
		"min":    sorted[0],
		"max":    sorted[len(sorted)-1],
		"stddev": math.Sqrt(variance),
	}
}
