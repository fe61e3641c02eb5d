package tools

import (
	"github.com/classroomai/gateway/pkg/artifact"
	"github.com/classroomai/gateway/pkg/external"
)

// Deps bundles every collaborator a catalogue handler may need. It is
// built once at startup in cmd/gateway and threaded into each Register*
// call; handlers close over it rather than receiving it as an argument,
// binding collaborators at tool-construction time rather than at call
// time.
type Deps struct {
	Data       external.DataClient
	RAG        external.RAGClient
	Artifacts  artifact.Store
	AppBackend external.AppBackendClient
	Blob       external.BlobStore
}

// RegisterCatalogue registers every minimum-catalogue tool into r.
func RegisterCatalogue(r *Registry, deps *Deps) {
	RegisterBaseData(r, deps)
	RegisterAnalysis(r, deps)
	RegisterGeneration(r, deps)
	RegisterArtifactOps(r, deps)
	RegisterPlatform(r, deps)
}

func requireTeacherID(ctx Context) (ToolResult, bool) {
	if ctx.TeacherID == "" {
		return ErrorResult("teacher_id required"), false
	}
	return ToolResult{}, true
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
