package tools

import (
	"encoding/json"

	"github.com/classroomai/gateway/pkg/artifact"
)

// RegisterArtifactOps registers the artifact_ops toolset: reading an
// artifact back, applying a structured patch to it, and discarding a
// version to regenerate from its predecessor.
func RegisterArtifactOps(r *Registry, deps *Deps) {
	r.MustRegister(Definition{
		Name:        "get_artifact",
		Description: "Fetch an artifact by id, or the latest artifact for the current conversation.",
		Toolset:     ArtifactOps,
		OutputType:  OutputRawMap,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"artifactId": map[string]any{"type": "string"}},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			artifactID := argString(args, "artifactId")
			var (
				a   *artifact.Artifact
				err error
			)
			if artifactID != "" {
				a, err = deps.Artifacts.Get(ctx, artifactID)
			} else {
				a, err = deps.Artifacts.Latest(ctx, ctx.ConversationID)
			}
			if err != nil {
				return ToolResult{Status: StatusNoResult, Reason: err.Error()}, nil
			}
			return ToolResult{Status: StatusOK, ArtifactType: string(a.ArtifactType), ContentFormat: string(a.ContentFormat),
				Data: a}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "patch_artifact",
		Description: "Apply a structured edit to an existing artifact, producing a new version.",
		Toolset:     ArtifactOps,
		OutputType:  OutputToolResult,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"artifactId": map[string]any{"type": "string"},
				"ops": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"op":     map[string]any{"type": "string"},
							"target": map[string]any{"type": "string"},
							"value":  map[string]any{},
						},
						"required": []string{"op", "target"},
					},
				},
			},
			"required": []string{"artifactId", "ops"},
		},
		Handler: func(ctx Context, args map[string]any) (ToolResult, error) {
			if res, ok := requireTeacherID(ctx); !ok {
				return res, nil
			}
			artifactID := argString(args, "artifactId")
			if artifactID == "" {
				return ErrorResult("artifactId required"), nil
			}
			ops, err := decodePatchOps(args["ops"])
			if err != nil {
				return ErrorResult("invalid ops: " + err.Error()), nil
			}

			existing, err := deps.Artifacts.Get(ctx, artifactID)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}

			patched, err := artifact.ApplyPatch(existing, ops)
			if err != nil {
				return ToolResult{Status: StatusError, Reason: err.Error()}, nil
			}
			if err := deps.Artifacts.Put(ctx, patched); err != nil {
				return ErrorResult(err.Error()), nil
			}
			return ToolResult{
				Status: StatusOK, Action: ActionComplete,
				ArtifactType: string(patched.ArtifactType), ContentFormat: string(patched.ContentFormat),
				Data: map[string]any{"artifactId": patched.ArtifactID, "version": patched.Version},
			}, nil
		},
	})

	r.MustRegister(Definition{
		Name:        "regenerate_from_previous",
		Description: "Regenerate an artifact from scratch using its previous version as reference context, for artifact types that do not support structured patching.",
		Toolset:     ArtifactOps,
		OutputType:  OutputToolResult,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"artifactId":   map[string]any{"type": "string"},
				"instructions": map[string]any{"type": "string"},
			},
			"required": []string{"artifactId", "instructions"},
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
			// Regeneration here stands in for a model round-trip in the agent
			// runtime; the tool's own contract is "produce a new version",
			// not "call the model" — the runtime calls this after the model
			// has already synthesized replacement content in its reply.
			instructions := argString(args, "instructions")
			regenerated := *existing
			regenerated.Version = existing.Version + 1
			regenerated.Content = appendRegenerationNote(existing.Content, instructions)
			if err := deps.Artifacts.Put(ctx, &regenerated); err != nil {
				return ErrorResult(err.Error()), nil
			}
			return ToolResult{
				Status: StatusOK, Action: ActionComplete,
				ArtifactType: string(regenerated.ArtifactType), ContentFormat: string(regenerated.ContentFormat),
				Data: map[string]any{"artifactId": regenerated.ArtifactID, "version": regenerated.Version},
			}, nil
		},
	})
}

func decodePatchOps(raw any) ([]artifact.PatchOp, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var ops []artifact.PatchOp
	if err := json.Unmarshal(encoded, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

func appendRegenerationNote(content any, instructions string) any {
	switch c := content.(type) {
	case string:
		return c + "\n\n---\nRegenerated: " + instructions + "\n"
	default:
		return map[string]any{"previous": content, "regeneratedWith": instructions}
	}
}
