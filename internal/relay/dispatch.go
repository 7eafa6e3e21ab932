package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/pkg/metrics"
	"github.com/oakwoodlegal/intake-agent/pkg/otel"
)

const unknownSentinel = "unknown"

// FunctionHandler is one business operation callable by the agent
type FunctionHandler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Registry maps agent-visible function names to handlers
type Registry map[string]FunctionHandler

// Dispatcher resolves FunctionCallRequest messages against the registry.
// Every invocation gets exactly one response, the agent pairs them by id.
type Dispatcher struct {
	registry Registry
	log      *zap.Logger
}

func NewDispatcher(registry Registry, log *zap.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, log: log}
}

// Handle parses a raw FunctionCallRequest and returns one response per
// invocation. A request list that cannot be parsed at all still yields a
// single fallback response with sentinel id/name, so the agent is never
// left waiting.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) []functionCallResponse {
	var req functionCallRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		d.log.Error("Malformed function call request", zap.Error(err))
		return []functionCallResponse{{
			Type:    "FunctionCallResponse",
			ID:      unknownSentinel,
			Name:    unknownSentinel,
			Content: errorContent(fmt.Sprintf("malformed function call request: %v", err)),
		}}
	}

	responses := make([]functionCallResponse, 0, len(req.Functions))
	for _, fn := range req.Functions {
		// capture id and name before anything can fail so the response
		// always echoes this invocation, never a stale one
		id, name := fn.ID, fn.Name
		if id == "" {
			id = unknownSentinel
		}
		if name == "" {
			name = unknownSentinel
		}

		args := parseArguments(fn.Arguments)
		content := d.invoke(ctx, id, name, args)

		responses = append(responses, functionCallResponse{
			Type:    "FunctionCallResponse",
			ID:      id,
			Name:    name,
			Content: content,
		})
	}
	return responses
}

// invoke runs one registered function, converting every failure mode
// (unknown name, returned error, panic) into an error payload
func (d *Dispatcher) invoke(ctx context.Context, id, name string, args map[string]interface{}) string {
	handler, ok := d.registry[name]
	if !ok {
		d.log.Warn("Unknown function requested", zap.String("function", name))
		metrics.RecordFunctionCall(name, false)
		return errorContent(fmt.Sprintf("Unknown function: %s", name))
	}

	content, err := otel.WithFunctionSpan(ctx, name, id, func(spanCtx context.Context) (out string, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("function panic: %v", r)
			}
		}()

		result, err := handler(spanCtx, args)
		if err != nil {
			return "", err
		}
		encoded, err := json.Marshal(result)
		if err != nil {
			return "", fmt.Errorf("encode result: %w", err)
		}
		return string(encoded), nil
	})
	if err != nil {
		d.log.Error("Function call failed",
			zap.String("function", name),
			zap.String("call_id", id),
			zap.Error(err),
		)
		metrics.RecordFunctionCall(name, false)
		return errorContent(err.Error())
	}

	metrics.RecordFunctionCall(name, true)
	d.log.Info("Function call completed",
		zap.String("function", name),
		zap.String("call_id", id),
	)
	return content
}

func errorContent(msg string) string {
	encoded, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return `{"error":"internal error"}`
	}
	return string(encoded)
}
