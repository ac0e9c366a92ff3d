package handlers

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/parliament/internal/model"
	"github.com/jjenkins/parliament/internal/service"
	"github.com/jjenkins/parliament/internal/store"
	"github.com/jjenkins/parliament/internal/store/storetest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	app    *fiber.App
	billID int64
}

// newFixture stores one sitting with a health question and a bill reading
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storetest.Open(t)
	ctx := context.Background()

	st := &model.Sitting{Date: storetest.Date(2024, 3, 5), URL: "https://example.test/report"}
	require.NoError(t, store.NewSittingStore(db).UpsertSitting(ctx, st))

	mohID, ok, err := store.NewMinistryStore(db).FindByAcronym(ctx, "MOH")
	require.NoError(t, err)
	require.True(t, ok)

	bill := &model.Bill{
		Title:            "Foo Bill",
		MinistryID:       sql.NullInt64{Int64: mohID, Valid: true},
		FirstReadingDate: sql.NullTime{Time: st.Date, Valid: true},
	}
	_, err = store.NewBillStore(db).InsertIfAbsent(ctx, bill)
	require.NoError(t, err)
	bill, err = store.NewBillStore(db).FindByTitle(ctx, "Foo Bill")
	require.NoError(t, err)

	sections := store.NewSectionStore(db)
	require.NoError(t, sections.Insert(ctx, &model.Section{
		SittingID:   st.ID,
		MinistryID:  sql.NullInt64{Int64: mohID, Valid: true},
		Category:    model.CategoryQuestion,
		SectionType: "OA",
		Title:       "Polyclinic Waiting Times",
		Order:       1,
	}))
	require.NoError(t, sections.Insert(ctx, &model.Section{
		SittingID:   st.ID,
		BillID:      sql.NullInt64{Int64: bill.ID, Valid: true},
		Category:    model.CategoryBill,
		SectionType: model.SectionTypeFirstReading,
		Title:       "Foo Bill",
		Order:       2,
	}))
	require.NoError(t, sections.Insert(ctx, &model.Section{
		SittingID:   st.ID,
		Category:    "statement",
		SectionType: "OS",
		Title:       "Personal Explanation",
		Order:       3,
	}))

	app := fiber.New()
	Register(app, db, zap.NewNop())

	reg := prometheus.NewRegistry()
	reg.MustRegister(service.NewStatsCollector(service.NewStatsService(db), zap.NewNop()))
	app.Get("/metrics", MetricsHandler(reg))

	return &fixture{app: app, billID: bill.ID}
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHome(t *testing.T) {
	f := newFixture(t)
	status, body := f.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<strong>3</strong>Sections`)
	assert.Contains(t, body, `/sittings/2024-03-05`)
}

func TestSittingDetail(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/sittings/2024-03-05", "/sittings/05-03-2024"} {
		status, body := f.get(t, path)
		assert.Equal(t, http.StatusOK, status, path)
		assert.Contains(t, body, "Polyclinic Waiting Times", path)
		assert.Contains(t, body, "Personal Explanation", path)
	}
}

func TestSittingDetail_MinistryFilter(t *testing.T) {
	f := newFixture(t)
	status, body := f.get(t, "/sittings/2024-03-05?ministry=moh")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Polyclinic Waiting Times")
	assert.NotContains(t, body, "Personal Explanation")
	assert.NotContains(t, body, `<a href="/bills/`)
}

func TestSittingDetail_Errors(t *testing.T) {
	f := newFixture(t)

	status, _ := f.get(t, "/sittings/yesterday")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.get(t, "/sittings/2024-03-06")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSittings(t *testing.T) {
	f := newFixture(t)
	status, body := f.get(t, "/sittings?limit=0")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "5 Mar 2024")
}

func TestBills(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/bills")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Foo Bill")

	status, body = f.get(t, "/bills/"+strconv.FormatInt(f.billID, 10))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Ministry of Health")
	assert.Contains(t, body, "First read on")
	assert.Contains(t, body, "<td>BI</td>")

	status, _ = f.get(t, "/bills/abc")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.get(t, "/bills/9999")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMinistries(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/ministries")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Ministry of Health")

	status, body = f.get(t, "/ministries/moh")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Polyclinic Waiting Times")

	status, _ = f.get(t, "/ministries/XYZ")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	status, body := f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "parliament_store_sections 3")
}
