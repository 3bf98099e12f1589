package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quantumdie/internal/config"
	"quantumdie/internal/logging"
	"quantumdie/internal/roll"
	"quantumdie/internal/usage"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeCollaborator struct {
	calls    int
	requests []Request
	reply    func(call int) (Response, error)
}

func (f *fakeCollaborator) Generate(_ context.Context, req Request) (Response, error) {
	f.calls++
	f.requests = append(f.requests, req)
	return f.reply(f.calls)
}

func replyWith(rec roll.Record) func(int) (Response, error) {
	return func(int) (Response, error) {
		data, err := json.Marshal(rec)
		if err != nil {
			return Response{}, err
		}
		return Response{Text: string(data), PromptTokens: 120, OutputTokens: 40, Model: "gemini-test"}, nil
	}
}

func TestRequestRoll_Success(t *testing.T) {
	want := roll.Collapsed(6)
	fake := &fakeCollaborator{reply: replyWith(want)}
	r := NewRoller(fake, true)

	got, err := r.RequestRoll(context.Background(), false)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, fake.calls)
	assert.NotContains(t, fake.requests[0].Schema.Properties, "qec")
}

func TestRequestRoll_QECRequestsBlock(t *testing.T) {
	want := roll.Collapsed(5)
	want.QEC = &roll.QEC{PhysicalRolls: []int{5, 2, 5}, ErrorOccurred: true, WasCorrected: true}
	fake := &fakeCollaborator{reply: replyWith(want)}

	got, err := NewRoller(fake, true).RequestRoll(context.Background(), true)
	require.NoError(t, err)
	require.NotNil(t, got.QEC)
	assert.Equal(t, 5, got.QEC.LogicalResult())

	req := fake.requests[0]
	assert.Contains(t, req.Schema.Properties, "qec")
	assert.Contains(t, req.Schema.Required, "qec")
	assert.Contains(t, req.Prompt, "physicalRolls")
}

func TestRequestRoll_CodeFenceTolerated(t *testing.T) {
	data, err := json.Marshal(roll.Collapsed(3))
	require.NoError(t, err)
	fake := &fakeCollaborator{reply: func(int) (Response, error) {
		return Response{Text: "\n```json\n" + string(data) + "\n```\n"}, nil
	}}

	got, err := NewRoller(fake, true).RequestRoll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Roll)
}

func TestRequestRoll_Failures(t *testing.T) {
	inconsistent := roll.Collapsed(2)
	inconsistent.FaceDown = 2

	tests := []struct {
		name     string
		validate bool
		reply    func(int) (Response, error)
		kind     Kind
		message  string
	}{
		{
			name:    "transport error",
			reply:   func(int) (Response, error) { return Response{}, errors.New("connection reset") },
			kind:    KindTransportOrParse,
			message: "connection reset",
		},
		{
			name:    "rate limited by text",
			reply:   func(int) (Response, error) { return Response{}, errors.New("Error 429, Status: RESOURCE_EXHAUSTED") },
			kind:    KindRateLimited,
			message: RateLimitMessage,
		},
		{
			name: "rate limited by api error",
			reply: func(int) (Response, error) {
				return Response{}, fmt.Errorf("gemini generate: %w", genai.APIError{Code: 429, Status: "Too Many Requests"})
			},
			kind:    KindRateLimited,
			message: RateLimitMessage,
		},
		{
			name:  "missing credential",
			reply: func(int) (Response, error) { return Response{}, fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingCredential) },
			kind:  KindConfigurationMissing,
		},
		{
			name:  "malformed json",
			reply: func(int) (Response, error) { return Response{Text: "{roll: two"}, nil },
			kind:  KindTransportOrParse,
		},
		{
			name:  "empty reply",
			reply: func(int) (Response, error) { return Response{Text: "  "}, nil },
			kind:  KindTransportOrParse,
		},
		{
			name:     "schema violation",
			validate: true,
			reply:    replyWith(inconsistent),
			kind:     KindSchemaViolation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCollaborator{reply: tt.reply}
			_, err := NewRoller(fake, tt.validate).RequestRoll(context.Background(), false)
			require.Error(t, err)

			var f *Failure
			require.True(t, errors.As(err, &f))
			assert.Equal(t, tt.kind, f.Kind)
			if tt.message != "" {
				assert.Equal(t, tt.message, f.Message())
			}
			assert.Equal(t, 1, fake.calls, "no retries")
		})
	}
}

func TestRequestRoll_ValidationDisabledAcceptsVerbatim(t *testing.T) {
	odd := roll.Collapsed(2)
	odd.FaceDown = 2
	fake := &fakeCollaborator{reply: replyWith(odd)}

	got, err := NewRoller(fake, false).RequestRoll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, got.FaceDown)
}

func TestRequestRoll_SetValidateWhileRolling(t *testing.T) {
	bad := roll.Collapsed(2)
	bad.FaceDown = 2
	collab := CollaboratorFunc(func(context.Context, Request) (Response, error) {
		data, err := json.Marshal(bad)
		return Response{Text: string(data), Model: "gemini-test"}, err
	})
	r := NewRoller(collab, true)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_, _ = r.RequestRoll(context.Background(), false)
		}
	}()
	for i := 0; i < 100; i++ {
		r.SetValidate(i%2 == 0)
	}
	<-done

	r.SetValidate(false)
	assert.False(t, r.Validating())
	_, err := r.RequestRoll(context.Background(), false)
	assert.NoError(t, err)

	r.SetValidate(true)
	_, err = r.RequestRoll(context.Background(), false)
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, KindSchemaViolation, f.Kind)
}

func TestRequestRoll_DebugLogsRawResponse(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, logging.Initialize(ws, logging.Options{DebugMode: true, Level: "debug"}))
	t.Cleanup(func() { _ = logging.Initialize(ws, logging.Options{}) })

	fake := &fakeCollaborator{reply: replyWith(roll.Collapsed(4))}
	_, err := NewRoller(fake, true).RequestRoll(context.Background(), false)
	require.NoError(t, err)
	logging.CloseAll()

	matches, err := filepath.Glob(filepath.Join(ws, ".qdie", "logs", "*_oracle.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "raw response model=gemini-test")
	assert.Contains(t, string(data), "RequestRoll completed in")
}

func TestRequestRoll_TracksUsage(t *testing.T) {
	tracker, err := usage.NewTracker(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracker.Close() })

	fake := &fakeCollaborator{reply: replyWith(roll.Collapsed(1))}
	r := NewRoller(fake, true)

	ctx := usage.NewContext(context.Background(), tracker)
	_, err = r.RequestRoll(ctx, false)
	require.NoError(t, err)
	_, err = r.RequestRoll(ctx, true)
	require.Error(t, err, "qec requested but absent")

	stats := tracker.Stats()
	assert.EqualValues(t, 2, stats.Calls)
	assert.EqualValues(t, 320, stats.TotalProject.Total)
	assert.EqualValues(t, 160, stats.ByOperation["roll_qec"].Total, "tokens count even when the record is rejected")
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))

	f := &Failure{Kind: KindCancelled}
	assert.Same(t, f, Classify(fmt.Errorf("wrapped: %w", f)))

	assert.Equal(t, KindCancelled, Classify(context.Canceled).Kind)
	assert.Equal(t, KindRateLimited, Classify(errors.New("quota RESOURCE_EXHAUSTED")).Kind)
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, RateLimitMessage, Message(errors.New("HTTP 429")))
}

func TestBuildSchema(t *testing.T) {
	s := BuildSchema(false)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Len(t, s.Required, 9)
	assert.Equal(t, genai.TypeArray, s.Properties["waveFunction"].Type)
	assert.Equal(t, genai.TypeNumber, s.Properties["waveFunction"].Items.Type)

	q := BuildSchema(true)
	assert.Len(t, q.Required, 10)
	assert.Equal(t, genai.TypeInteger, q.Properties["qec"].Properties["physicalRolls"].Items.Type)

	// Building the QEC variant must not leak into later plain schemas.
	assert.NotContains(t, BuildSchema(false).Required, "qec")
}

func TestBuildPrompt(t *testing.T) {
	assert.NotContains(t, BuildPrompt(false), "'qec'")
	assert.Contains(t, BuildPrompt(true), "'qec'")
	assert.Contains(t, BuildPrompt(false), "Return ONLY the raw JSON object")
}

func TestGeminiCollaborator_MissingCredential(t *testing.T) {
	cfg := config.OracleConfig{
		Model:             "gemini-2.5-flash",
		APIKeyEnv:         "QDIE_TEST_NO_SUCH_KEY",
		FallbackAPIKeyEnv: "QDIE_TEST_NO_SUCH_FALLBACK",
	}
	t.Setenv("QDIE_TEST_NO_SUCH_KEY", "")
	t.Setenv("QDIE_TEST_NO_SUCH_FALLBACK", "")

	_, err := NewRoller(NewGeminiCollaborator(cfg), true).RequestRoll(context.Background(), false)
	require.Error(t, err)
	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, KindConfigurationMissing, f.Kind)
}

func TestGeminiCollaborator_Live(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	cfg := config.DefaultConfig().Oracle
	cfg.Timeout = "60s"

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	rec, err := NewRoller(NewGeminiCollaborator(cfg), false).RequestRoll(ctx, true)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rec.Roll, 0)
	assert.Less(t, rec.Roll, roll.Faces)
}
