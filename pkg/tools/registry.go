package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/classroomai/gateway/pkg/observability"
	"github.com/classroomai/gateway/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RegistryError is a component:action-tagged wrapped error.
type RegistryError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Action, e.Message)
}

func (e *RegistryError) Unwrap() error { return e.Err }

func newRegistryError(action, message string, err error) *RegistryError {
	return &RegistryError{Component: "ToolRegistry", Action: action, Message: message, Err: err}
}

// Registry is the C1 contract: register once at startup, look up by name
// or by toolset membership at request time. Registration order is
// preserved so GetTools returns a deterministic order across runs.
type Registry struct {
	*registry.BaseRegistry[Definition]
	order []string
}

func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Definition]()}
}

// MustRegister registers definition or panics — duplicate registration or
// a missing name is a programmer error caught at startup, never at
// request time.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def.Name, def); err != nil {
		panic(newRegistryError("MustRegister", fmt.Sprintf("registering tool %q", def.Name), err).Error())
	}
	r.order = append(r.order, def.Name)
}

// Lookup returns the unique definition for name or a not-found error.
func (r *Registry) Lookup(name string) (Definition, error) {
	def, ok := r.Get(name)
	if !ok {
		return Definition{}, newRegistryError("Lookup", fmt.Sprintf("tool %q not found", name), nil)
	}
	return def, nil
}

// GetAll returns every definition in registration order.
func (r *Registry) GetAll() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		if def, ok := r.Get(name); ok {
			out = append(out, def)
		}
	}
	return out
}

// GetTools returns every definition whose Toolset is in toolsetNames,
// ordered by registration order.
func (r *Registry) GetTools(toolsetNames []string) []Definition {
	wanted := make(map[string]bool, len(toolsetNames))
	for _, n := range toolsetNames {
		wanted[n] = true
	}

	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		def, ok := r.Get(name)
		if ok && wanted[def.Toolset] {
			out = append(out, def)
		}
	}
	return out
}

// ListSorted returns every definition sorted by name, for any surface
// (docs, schema export) that wants stable alphabetical order rather than
// registration order.
func (r *Registry) ListSorted() []Definition {
	all := r.GetAll()
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Execute runs a tool's handler under an otel span with metrics recorded,
// and recovers a handler panic into a tool failure result rather than
// letting it cross the registry boundary.
func (r *Registry) Execute(ctx Context, toolName string, args map[string]any) (result ToolResult, err error) {
	start := time.Now()

	tracer := observability.GetTracer("gateway.tools")
	spanCtx, span := tracer.Start(ctx.Context, observability.SpanToolExecution,
		trace.WithAttributes(attribute.String(observability.AttrToolName, toolName)),
	)
	ctx.Context = spanCtx
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			err = nil
			result = ErrorResult(fmt.Sprintf("handler panic: %v", rec))
			span.RecordError(fmt.Errorf("panic: %v", rec))
			span.SetStatus(codes.Error, "handler panic")
			recordMetrics(spanCtx, toolName, time.Since(start), fmt.Errorf("panic"))
		}
	}()

	def, lookupErr := r.Lookup(toolName)
	if lookupErr != nil {
		span.RecordError(lookupErr)
		span.SetStatus(codes.Error, "tool not found")
		recordMetrics(spanCtx, toolName, time.Since(start), lookupErr)
		return ToolResult{Status: StatusError, Reason: "unknown_tool"}, lookupErr
	}

	result, err = def.Handler(ctx, args)
	duration := time.Since(start)

	var metricErr error
	if err != nil {
		metricErr = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if result.Status == StatusError {
		metricErr = fmt.Errorf("%s", result.Reason)
		span.SetStatus(codes.Error, result.Reason)
	} else {
		span.SetStatus(codes.Ok, "success")
	}
	recordMetrics(spanCtx, toolName, duration, metricErr)

	span.SetAttributes(
		attribute.String("tool.status", string(result.Status)),
		attribute.Int64("tool.duration_ms", duration.Milliseconds()),
	)

	return result, err
}

func recordMetrics(ctx context.Context, toolName string, duration time.Duration, err error) {
	metrics := observability.GetGlobalMetrics()
	if metrics != nil {
		metrics.RecordToolExecution(ctx, toolName, duration, err)
	}
}
