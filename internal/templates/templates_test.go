package templates

import (
	"bytes"
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/jjenkins/parliament/internal/model"
	"github.com/jjenkins/parliament/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

var march5 = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func TestHome_Empty(t *testing.T) {
	out := render(t, Home(HomeMetrics{}))
	assert.Contains(t, out, "<title>Overview | Hansard Browser</title>")
	assert.Contains(t, out, "No sittings have been ingested yet")
}

func TestHome_WithData(t *testing.T) {
	out := render(t, Home(HomeMetrics{
		HasData:       true,
		Sittings:      2,
		Sections:      7,
		LatestSitting: march5,
		Recent: []store.SittingWithCounts{
			{Sitting: model.Sitting{Date: march5}, SectionCount: 7, PresentCount: 80},
		},
	}))
	assert.Contains(t, out, `<strong>7</strong>Sections`)
	assert.Contains(t, out, `<a href="/sittings/2024-03-05">5 March 2024</a>`)
	assert.Contains(t, out, `<td>80</td>`)
}

func TestSittingDetail(t *testing.T) {
	out := render(t, SittingDetail(SittingPage{
		Sitting: &model.Sitting{Date: march5, URL: "https://example.test/r?d=05-03-2024&x=1"},
		Sections: []model.SectionListing{
			{Title: "Foo <Amendment> Bill", SectionType: "BP", BillID: sql.NullInt64{Int64: 9, Valid: true}},
			{
				Title:       "Polyclinic Waiting Times",
				SectionType: "OA",
				Ministry:    sql.NullString{String: "MOH", Valid: true},
				Summary:     sql.NullString{String: "This question concerns waits.", Valid: true},
			},
		},
		Attendance: []model.AttendanceRow{
			{Attendance: model.Attendance{Present: true}, MemberName: "Ms Lee"},
			{Attendance: model.Attendance{Present: false}, MemberName: "Dr Ng"},
		},
		Ministries: []model.Ministry{{Acronym: "MOH", Name: "Ministry of Health"}},
		Ministry:   "MOH",
	}))

	assert.Contains(t, out, `href="https://example.test/r?d=05-03-2024&amp;x=1"`)
	assert.Contains(t, out, `<a href="/bills/9">Foo &lt;Amendment&gt; Bill</a>`)
	assert.Contains(t, out, `<span class="tag">MOH</span> Polyclinic Waiting Times`)
	assert.Contains(t, out, "This question concerns waits.")
	assert.Contains(t, out, `<option value="MOH" selected>`)
	assert.Contains(t, out, "1 of 2 members present")
	assert.NotContains(t, out, "<Amendment>")
}

func TestBills(t *testing.T) {
	out := render(t, Bills([]model.BillWithStats{{
		Bill: model.Bill{
			ID:               3,
			Title:            "Foo Bill",
			FirstReadingDate: sql.NullTime{Time: march5, Valid: true},
		},
		Ministry:     sql.NullString{String: "MOF", Valid: true},
		SectionCount: 2,
	}}))
	assert.Contains(t, out, `<a href="/bills/3">Foo Bill</a>`)
	assert.Contains(t, out, `<td>MOF</td>`)
	assert.Contains(t, out, `<a href="/sittings/2024-03-05">5 Mar 2024</a>`)

	assert.Contains(t, render(t, Bills(nil)), "No bills found.")
}

func TestBillDetail_WithoutFirstReading(t *testing.T) {
	out := render(t, BillDetail(&model.Bill{Title: "Bar Bill"}, nil, []model.SectionListing{
		{SittingDate: march5, SectionType: "BP", Title: "Bar Bill"},
	}))
	assert.Contains(t, out, "First reading not recorded.")
	assert.Contains(t, out, `<td>BP</td>`)
}

func TestMinistryDetail(t *testing.T) {
	m := &model.Ministry{Acronym: "MOH", Name: "Ministry of Health"}
	out := render(t, MinistryDetail(m, []model.SectionListing{{SittingDate: march5, SectionType: "OA", Title: "Waits"}}))
	assert.Contains(t, out, `href="/sittings/2024-03-05?ministry=MOH"`)

	assert.Contains(t, render(t, MinistryDetail(m, nil)), "No sections attributed yet.")
}

func TestSittingDetail_SanitizesReportURL(t *testing.T) {
	out := render(t, SittingDetail(SittingPage{
		Sitting: &model.Sitting{Date: march5, URL: "javascript:alert(1)"},
	}))
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "about:invalid#TemplFailedSanitizationURL")
	assert.NotContains(t, out, "<h2>Attendance</h2>")
}
