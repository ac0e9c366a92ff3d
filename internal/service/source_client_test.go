package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jjenkins/parliament/internal/config"
	"github.com/jjenkins/parliament/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sittingJSON = `{
  "metadata": {"date": "05-03-2024", "sitting_no": 42, "parliament": 15, "session_no": 1, "volume_no": 95, "format": "new"},
  "sections": [
    {"category": "question", "section_type": "OA", "title": "Polyclinic Waiting Times",
     "content_html": "<p>asked the Minister for Health</p>", "order": 1,
     "speakers": [{"name": "Mr Tan", "constituency": "Tampines"}]},
    {"section_type": "OS", "title": "Statement", "order": 2}
  ],
  "present": [{"name": "Ms Lee", "constituency": "Jurong", "appointment": "Minister for Health"}],
  "absent": [{"name": "Dr Ng"}]
}`

func newTestSourceClient(url string) *SourceClient {
	return NewSourceClient(config.SourceConfig{
		BaseURL:        url + "/",
		Timeout:        5 * time.Second,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
	})
}

func TestFetchSittingByDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sittings/2024-03-05", r.URL.Path)
		w.Write([]byte(sittingJSON))
	}))
	defer srv.Close()

	raw, err := newTestSourceClient(srv.URL).FetchSittingByDate(context.Background(), day(5))
	require.NoError(t, err)
	require.NotNil(t, raw)

	assert.True(t, raw.Meta.Date.Equal(day(5)))
	assert.Equal(t, 42, raw.Meta.SittingNo)
	assert.Equal(t, "new", raw.Meta.Format)
	require.Len(t, raw.Sections, 2)
	assert.Equal(t, "<p>asked the Minister for Health</p>", raw.Sections[0].ContentHTML)
	assert.Equal(t, []model.RawMember{{Name: "Mr Tan", Constituency: "Tampines"}}, raw.Sections[0].Speakers)
	assert.Equal(t, model.CategoryOther, raw.Sections[1].Category)
	assert.Equal(t, "Minister for Health", raw.Present[0].Appointment)
	assert.Equal(t, "Dr Ng", raw.Absent[0].Name)
}

func TestFetchSittingByDate_NoSitting(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, ""},
		{"empty body", http.StatusOK, ""},
		{"null body", http.StatusOK, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			raw, err := newTestSourceClient(srv.URL).FetchSittingByDate(context.Background(), day(5))
			require.NoError(t, err)
			assert.Nil(t, raw)
		})
	}
}

func TestFetchSittingByDate_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sittingJSON))
	}))
	defer srv.Close()

	raw, err := newTestSourceClient(srv.URL).FetchSittingByDate(context.Background(), day(5))
	require.NoError(t, err)
	assert.NotNil(t, raw)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchSittingByDate_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestSourceClient(srv.URL).FetchSittingByDate(context.Background(), day(5))
	assert.ErrorContains(t, err, "failed after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchSittingByDate_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestSourceClient(srv.URL).FetchSittingByDate(context.Background(), day(5))
	assert.ErrorContains(t, err, "unexpected status code: 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchSittingByDate_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := newTestSourceClient(srv.URL).FetchSittingByDate(context.Background(), day(5))
	assert.ErrorContains(t, err, "failed to parse sitting response")
}

func TestParseSittingDate(t *testing.T) {
	fallback := day(9)
	assert.True(t, parseSittingDate("05-03-2024", fallback).Equal(day(5)))
	assert.True(t, parseSittingDate("2024-03-06", fallback).Equal(day(6)))
	assert.True(t, parseSittingDate("March 5", fallback).Equal(fallback))
}

func TestReportURL(t *testing.T) {
	assert.Equal(t, "https://example.test/report?date=05-03-2024", ReportURL("https://example.test/report?date=%s", day(5)))
	assert.Equal(t, "", ReportURL("", day(5)))
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"05-03-2024", "2024-03-05"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(day(5)), in)
	}

	_, err := ParseDate("5 March 2024")
	assert.Error(t, err)
}
