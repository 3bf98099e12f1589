// Package oracle acquires roll records from the external generative service.
// Nothing about the die is computed here: the service's JSON reply is decoded,
// optionally validated and returned, or the failure is classified.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"quantumdie/internal/logging"
	"quantumdie/internal/roll"
	"quantumdie/internal/telemetry"
	"quantumdie/internal/usage"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// slowCallThreshold is the collaborator latency above which a call is logged
// as a warning.
const slowCallThreshold = 15 * time.Second

// Roller performs single roll requests against a Collaborator. The validation
// flag may be toggled while requests are in flight.
type Roller struct {
	collab   Collaborator
	validate atomic.Bool
	tracker  *usage.Tracker
}

// NewRoller creates a roller. With validate set, records that break the
// declared shape are rejected as schema violations; otherwise they are
// accepted verbatim.
func NewRoller(collab Collaborator, validate bool) *Roller {
	r := &Roller{collab: collab}
	r.validate.Store(validate)
	return r
}

// SetTracker attaches a usage tracker. Without one the tracker carried by the
// request context, if any, is used.
func (r *Roller) SetTracker(t *usage.Tracker) {
	r.tracker = t
}

// SetValidate toggles record validation.
func (r *Roller) SetValidate(v bool) {
	r.validate.Store(v)
}

// Validating reports whether records are currently validated.
func (r *Roller) Validating() bool {
	return r.validate.Load()
}

// RequestRoll invokes the collaborator exactly once and returns the decoded
// record. Errors are always *Failure.
func (r *Roller) RequestRoll(ctx context.Context, useQEC bool) (roll.Record, error) {
	reqID := uuid.NewString()
	log := logging.WithRequestID(logging.CategoryOracle, reqID).WithField("qec", useQEC)

	ctx, span := telemetry.Tracer().Start(ctx, "oracle.RequestRoll")
	defer span.End()
	span.SetAttributes(
		attribute.String("qdie.request_id", reqID),
		attribute.Bool("qdie.qec", useQEC),
	)

	fail := func(err error) (roll.Record, error) {
		f := Classify(err)
		span.RecordError(f)
		span.SetStatus(codes.Error, f.Kind.String())
		log.Warn("roll failed kind=%s: %v", f.Kind, f.Err)
		return roll.Record{}, f
	}

	timer := logging.StartTimer(logging.CategoryOracle, "RequestRoll")
	resp, err := r.collab.Generate(ctx, Request{
		Prompt: BuildPrompt(useQEC),
		Schema: BuildSchema(useQEC),
	})
	timer.StopWithThreshold(slowCallThreshold)
	if err != nil {
		return fail(err)
	}

	r.track(ctx, resp, useQEC)
	if logging.IsDebugMode() {
		log.Debug("raw response model=%s: %s", resp.Model, resp.Text)
	}
	span.SetAttributes(
		attribute.Int("qdie.prompt_tokens", resp.PromptTokens),
		attribute.Int("qdie.output_tokens", resp.OutputTokens),
	)

	rec, err := ParseRecord(resp.Text)
	if err != nil {
		return fail(err)
	}

	if r.validate.Load() {
		if err := rec.Validate(); err != nil {
			return fail(err)
		}
		if useQEC && rec.QEC == nil {
			return fail(&roll.ValidationError{Violations: []roll.Violation{{Field: "qec", Reason: "missing"}}})
		}
	}

	span.SetAttributes(attribute.Int("qdie.roll", rec.Roll))
	log.Info("roll acquired value=%d qubit=%s", rec.Roll, rec.QubitState)
	return rec, nil
}

func (r *Roller) track(ctx context.Context, resp Response, useQEC bool) {
	tracker := r.tracker
	if tracker == nil {
		tracker = usage.FromContext(ctx)
	}
	if tracker == nil {
		return
	}
	op := "roll"
	if useQEC {
		op = "roll_qec"
	}
	tracker.Track(ctx, usage.UsageEvent{
		Model:         resp.Model,
		InputTokens:   resp.PromptTokens,
		OutputTokens:  resp.OutputTokens,
		OperationType: op,
	})
}

// ParseRecord decodes the service reply. Surrounding whitespace and an
// optional markdown code fence are tolerated.
func ParseRecord(text string) (roll.Record, error) {
	var rec roll.Record
	body := stripCodeFence(strings.TrimSpace(text))
	if body == "" {
		return rec, fmt.Errorf("parse roll: empty response")
	}
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return rec, fmt.Errorf("parse roll: %w", err)
	}
	return rec, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string, e.g. ```json
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
