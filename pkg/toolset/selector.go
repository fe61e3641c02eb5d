// Package toolset implements the Toolset Selector: a pure function
// from (message text, agent context) to an ordered set of toolset names,
// deliberately permissive rather than exclusive.
package toolset

import "strings"

// The five frozen toolset names.
const (
	BaseData    = "base_data"
	Analysis    = "analysis"
	Generation  = "generation"
	ArtifactOps = "artifact_ops"
	Platform    = "platform"
)

// generationKeywords loosely suggests generation intent. Deliberately
// small and untuned — the selector principle is permissive inclusion, not
// precision.
var generationKeywords = []string{
	"generate", "create", "make", "出题", "ppt", "quiz", "slide", "slides",
	"课件", "试题", "题目", "幻灯片",
}

// modifyKeywords suggests an edit to an existing artifact.
var modifyKeywords = []string{
	"change", "replace", "modify", "edit", "修改", "revise", "更改", "调整", "改成",
}

// dataKeywords suggests class/student data intent.
var dataKeywords = []string{
	"score", "scores", "analyze", "analysis", "成绩", "mastery", "grade",
	"grades", "表现", "学情",
}

// Context is the subset of AgentContext the selector reads. It is a
// narrow view rather than a direct dependency on pkg/agentruntime so this
// package stays a leaf with no I/O and no upstream import: selection is a
// pure function.
type Context struct {
	HasArtifacts bool
	ClassID      string
}

// Select implements the C6 algorithm. base_data and platform
// are always present (testable property #5); the remaining three are
// included additively — never as a replacement for one another.
func Select(messageText string, ctx Context) []string {
	lower := strings.ToLower(messageText)

	result := []string{BaseData, Platform}

	if containsAny(lower, generationKeywords) {
		result = append(result, Generation)
	}

	if ctx.HasArtifacts || containsAny(lower, modifyKeywords) {
		result = append(result, ArtifactOps)
	}

	if ctx.ClassID != "" || containsAny(lower, dataKeywords) {
		result = append(result, Analysis)
	}

	return result
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
