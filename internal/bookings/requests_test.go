package bookings

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequestValidate(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	valid := func() CreateRequest {
		return CreateRequest{
			ProviderID:      " prov-1 ",
			ClientID:        "client-1",
			StartTime:       wednesday(14, 0),
			DurationMinutes: 60,
			Extras:          []string{" parking "},
		}
	}

	req := valid()
	require.NoError(t, req.Validate(now))
	assert.Equal(t, "prov-1", req.ProviderID)
	assert.Equal(t, []string{"parking"}, req.Extras)

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		field  string
	}{
		{name: "missing provider", mutate: func(r *CreateRequest) { r.ProviderID = "" }, field: "provider_id"},
		{name: "missing client", mutate: func(r *CreateRequest) { r.ClientID = " " }, field: "client_id"},
		{name: "self booking", mutate: func(r *CreateRequest) { r.ClientID = "prov-1" }, field: "client_id"},
		{name: "too short", mutate: func(r *CreateRequest) { r.DurationMinutes = 14 }, field: "duration_minutes"},
		{name: "too long", mutate: func(r *CreateRequest) { r.DurationMinutes = MaxDurationMinutes + 1 }, field: "duration_minutes"},
		{name: "negative", mutate: func(r *CreateRequest) { r.DurationMinutes = -60 }, field: "duration_minutes"},
		{name: "missing start", mutate: func(r *CreateRequest) { r.StartTime = time.Time{} }, field: "start_time"},
		{name: "start now", mutate: func(r *CreateRequest) { r.StartTime = now }, field: "start_time"},
		{name: "long notes", mutate: func(r *CreateRequest) { r.Notes = strings.Repeat("x", MaxNotesLength+1) }, field: "notes"},
		{name: "duplicate extras", mutate: func(r *CreateRequest) { r.Extras = []string{"a", "a"} }, field: "extras"},
		{name: "blank extra", mutate: func(r *CreateRequest) { r.Extras = []string{""} }, field: "extras"},
		{name: "too many extras", mutate: func(r *CreateRequest) {
			r.Extras = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
		}, field: "extras"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			err := req.Validate(now)
			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestDurationBoundsInclusive(t *testing.T) {
	assert.NoError(t, validateDuration(MinDurationMinutes))
	assert.NoError(t, validateDuration(MaxDurationMinutes))
}

func TestCancelAndRescheduleRequests(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	cancel := CancelRequest{Reason: "  sick  "}
	require.NoError(t, cancel.Validate())
	assert.Equal(t, "sick", cancel.Reason)

	long := CancelRequest{Reason: strings.Repeat("r", 501)}
	assert.ErrorIs(t, long.Validate(), ErrValidation)

	past := RescheduleRequest{NewStartTime: now.Add(-time.Hour)}
	assert.ErrorIs(t, past.Validate(now), ErrValidation)

	ok := RescheduleRequest{NewStartTime: now.Add(time.Hour)}
	assert.NoError(t, ok.Validate(now))
}

func TestNewReference(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref := NewReference()
		require.Regexp(t, `^BK-[0-9A-HJKMNP-TV-Z]{8}$`, ref)
		seen[ref] = true
	}
	assert.Greater(t, len(seen), 990)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "ok", Classify(nil))
	assert.Equal(t, "validation", Classify(invalid("x", "bad")))
	assert.Equal(t, "resource_busy", Classify(ErrResourceBusy))
	assert.Equal(t, "error", Classify(errors.New("boom")))
}
