package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mondayNineToFive(providerID string) *Window {
	return &Window{
		ProviderID: providerID,
		Weekly: WeeklySchedule{
			Monday: &DaySchedule{Enabled: true, Ranges: []TimeRange{{Start: "09:00", End: "17:00"}}},
		},
	}
}

func TestWindowValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(w *Window)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Window) {}},
		{name: "missing provider", mutate: func(w *Window) { w.ProviderID = "" }, wantErr: true},
		{name: "bad timezone", mutate: func(w *Window) { w.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "known timezone", mutate: func(w *Window) { w.Timezone = "Africa/Nairobi" }},
		{name: "end before start", mutate: func(w *Window) {
			w.Weekly.Monday.Ranges = []TimeRange{{Start: "17:00", End: "09:00"}}
		}, wantErr: true},
		{name: "overlapping ranges", mutate: func(w *Window) {
			w.Weekly.Monday.Ranges = []TimeRange{{Start: "09:00", End: "12:00"}, {Start: "11:00", End: "13:00"}}
		}, wantErr: true},
		{name: "touching ranges allowed", mutate: func(w *Window) {
			w.Weekly.Monday.Ranges = []TimeRange{{Start: "13:00", End: "17:00"}, {Start: "09:00", End: "13:00"}}
		}},
		{name: "24:00 as end", mutate: func(w *Window) {
			w.Weekly.Monday.Ranges = []TimeRange{{Start: "20:00", End: "24:00"}}
		}},
		{name: "24:00 as start", mutate: func(w *Window) {
			w.Weekly.Monday.Ranges = []TimeRange{{Start: "24:00", End: "24:00"}}
		}, wantErr: true},
		{name: "malformed clock", mutate: func(w *Window) {
			w.Weekly.Monday.Ranges = []TimeRange{{Start: "9am", End: "17:00"}}
		}, wantErr: true},
		{name: "duplicate override", mutate: func(w *Window) {
			w.Overrides = []Override{{Date: "2024-01-08"}, {Date: "2024-01-08"}}
		}, wantErr: true},
		{name: "unavailable override with ranges", mutate: func(w *Window) {
			w.Overrides = []Override{{Date: "2024-01-08", Ranges: []TimeRange{{Start: "09:00", End: "10:00"}}}}
		}, wantErr: true},
		{name: "bad override date", mutate: func(w *Window) {
			w.Overrides = []Override{{Date: "08/01/2024", Available: true}}
		}, wantErr: true},
		{name: "vacation reversed", mutate: func(w *Window) {
			w.Vacations = []Vacation{{StartDate: "2024-02-10", EndDate: "2024-02-01"}}
		}, wantErr: true},
		{name: "single day vacation", mutate: func(w *Window) {
			w.Vacations = []Vacation{{StartDate: "2024-02-10", EndDate: "2024-02-10"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := mondayNineToFive("prov-1")
			tt.mutate(w)
			err := w.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidWindow))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestWindowLocationDefaultsToUTC(t *testing.T) {
	w := &Window{}
	assert.Equal(t, time.UTC, w.Location())

	w.Timezone = "America/New_York"
	assert.Equal(t, "America/New_York", w.Location().String())

	var nilWindow *Window
	assert.Equal(t, time.UTC, nilWindow.Location())
}

func TestParseClock(t *testing.T) {
	got, err := parseClock("09:30", false)
	require.NoError(t, err)
	assert.Equal(t, 570, got)

	got, err = parseClock("24:00", true)
	require.NoError(t, err)
	assert.Equal(t, endOfDay, got)

	_, err = parseClock("24:00", false)
	assert.Error(t, err)

	_, err = parseClock("25:00", true)
	assert.Error(t, err)
}
