package service

import (
	"context"
	"testing"
	"time"

	"github.com/jjenkins/parliament/internal/model"
	"github.com/jjenkins/parliament/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func insertSection(t *testing.T, env *testEnv, sittingID int64, title string, createdAt time.Time) int64 {
	t.Helper()
	var id int64
	err := env.db.QueryRow(`
		INSERT INTO sections (sitting_id, section_type, section_title, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		sittingID, "OA", title, createdAt).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedDuplicates(t *testing.T, env *testEnv) (sittingID int64, ids []int64) {
	t.Helper()
	st := &model.Sitting{Date: day(3)}
	require.NoError(t, store.NewSittingStore(env.db).UpsertSitting(context.Background(), st))

	base := time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC)
	ids = []int64{
		insertSection(t, env, st.ID, "Dup", base.Add(time.Minute)),
		insertSection(t, env, st.ID, "Dup", base),
		insertSection(t, env, st.ID, "Dup", base.Add(2*time.Minute)),
		insertSection(t, env, st.ID, "Dup", base.Add(2*time.Minute)),
		insertSection(t, env, st.ID, "Unique", base),
	}
	return st.ID, ids
}

func survivors(t *testing.T, env *testEnv) []int64 {
	t.Helper()
	rows, err := env.db.Query(`SELECT id FROM sections ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	return ids
}

func TestDedupSections_KeepsEarliest(t *testing.T) {
	env := newTestEnv(t)
	_, ids := seedDuplicates(t, env)
	r := NewReconciler(env.db, zap.NewNop())

	report, err := r.DedupSections(context.Background(), SectionDedupOptions{Start: day(1), End: day(5)})
	require.NoError(t, err)

	assert.Equal(t, 1, report.SittingsScanned)
	assert.Len(t, report.Duplicates, 3)
	assert.Equal(t, int64(3), report.Deleted)
	assert.Equal(t, []int64{ids[1], ids[4]}, survivors(t, env))
}

func TestDedupSections_KeepNewestBreaksTiesByID(t *testing.T) {
	env := newTestEnv(t)
	_, ids := seedDuplicates(t, env)
	r := NewReconciler(env.db, zap.NewNop())

	report, err := r.DedupSections(context.Background(), SectionDedupOptions{Start: day(3), KeepNewest: true})
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.Deleted)
	assert.Equal(t, []int64{ids[2], ids[4]}, survivors(t, env))
}

func TestDedupSections_DryRunDeletesNothing(t *testing.T) {
	env := newTestEnv(t)
	_, ids := seedDuplicates(t, env)
	r := NewReconciler(env.db, zap.NewNop())

	report, err := r.DedupSections(context.Background(), SectionDedupOptions{Start: day(3), DryRun: true})
	require.NoError(t, err)

	assert.Len(t, report.Duplicates, 3)
	assert.Zero(t, report.Deleted)
	assert.Len(t, survivors(t, env), len(ids))
}

func TestDedupSections_OutsideRangeUntouched(t *testing.T) {
	env := newTestEnv(t)
	_, ids := seedDuplicates(t, env)
	r := NewReconciler(env.db, zap.NewNop())

	report, err := r.DedupSections(context.Background(), SectionDedupOptions{Start: day(10), End: day(12)})
	require.NoError(t, err)

	assert.Zero(t, report.SittingsScanned)
	assert.Len(t, survivors(t, env), len(ids))
}

func TestDedupSections_CascadesSpeakers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, ids := seedDuplicates(t, env)

	memberID, err := env.resolver.ResolveMember(ctx, "Mr Tan")
	require.NoError(t, err)
	require.NoError(t, env.resolver.LinkSpeaker(ctx, ids[0], memberID, "", ""))

	_, err = NewReconciler(env.db, zap.NewNop()).DedupSections(ctx, SectionDedupOptions{Start: day(3)})
	require.NoError(t, err)
	assert.Equal(t, 0, env.count(t, `SELECT COUNT(*) FROM section_speakers`))
}

func insertBill(t *testing.T, env *testEnv, title string, createdAt time.Time) int64 {
	t.Helper()
	var id int64
	err := env.db.QueryRow(`INSERT INTO bills (title, created_at) VALUES ($1, $2) RETURNING id`,
		title, createdAt).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestMergeBills(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	st := &model.Sitting{Date: day(3)}
	require.NoError(t, store.NewSittingStore(env.db).UpsertSitting(ctx, st))
	moh, err := env.resolver.ResolveMinistry(ctx, "MOH")
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := insertBill(t, env, "Foo Bill", base)
	busy := insertBill(t, env, "foo bill ", base.Add(time.Hour))
	spare := insertBill(t, env, "FOO BILL", base.Add(2*time.Hour))
	other := insertBill(t, env, "Bar Bill", base)

	// the busier bill becomes master despite being newer
	for _, billID := range []int64{busy, busy, older} {
		_, err := env.db.Exec(`INSERT INTO sections (sitting_id, bill_id, section_type, section_title) VALUES ($1, $2, $3, $4)`,
			st.ID, billID, model.SectionTypeSecondReading, "Foo Bill")
		require.NoError(t, err)
	}

	_, err = env.db.Exec(`UPDATE bills SET ministry_id = $1, first_reading_date = $2, first_reading_sitting_id = $3 WHERE id = $4`,
		moh.Int64, st.Date, st.ID, older)
	require.NoError(t, err)
	_, err = env.db.Exec(`UPDATE bills SET summary = $1 WHERE id = $2`, "spare summary", spare)
	require.NoError(t, err)

	r := NewReconciler(env.db, zap.NewNop())

	groups, err := r.InspectBills(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, busy, groups[0].Master.ID)
	require.Len(t, groups[0].Duplicates, 2)
	assert.Equal(t, older, groups[0].Duplicates[0].ID)

	report, err := r.MergeBills(ctx, BillMergeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Merged)
	assert.ElementsMatch(t, []int64{older, spare}, report.DeletedIDs)
	assert.Equal(t, int64(1), report.Groups[0].SectionsMoved)

	assert.Equal(t, 2, env.count(t, `SELECT COUNT(*) FROM bills`))
	assert.Equal(t, 3, env.count(t, `SELECT COUNT(*) FROM sections WHERE bill_id = $1`, busy))
	assert.Equal(t, 0, env.count(t, `
		SELECT COUNT(*) FROM sections s LEFT JOIN bills b ON b.id = s.bill_id
		WHERE s.bill_id IS NOT NULL AND b.id IS NULL`))

	master, err := store.NewBillStore(env.db).GetByID(ctx, busy)
	require.NoError(t, err)
	assert.Equal(t, moh, master.MinistryID)
	assert.True(t, master.FirstReadingDate.Time.Equal(st.Date))
	assert.Equal(t, st.ID, master.FirstReadingSittingID.Int64)
	assert.Equal(t, "spare summary", master.Summary.String)

	untouched, err := store.NewBillStore(env.db).GetByID(ctx, other)
	require.NoError(t, err)
	assert.NotNil(t, untouched)

	// a second pass finds nothing to do
	again, err := r.MergeBills(ctx, BillMergeOptions{})
	require.NoError(t, err)
	assert.Zero(t, again.Merged)
}

func TestMergeBills_DryRun(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	insertBill(t, env, "Foo Bill", base)
	insertBill(t, env, "foo bill", base.Add(time.Hour))

	report, err := NewReconciler(env.db, zap.NewNop()).MergeBills(context.Background(), BillMergeOptions{DryRun: true})
	require.NoError(t, err)

	assert.Len(t, report.Groups, 1)
	assert.Zero(t, report.Merged)
	assert.Equal(t, 2, env.count(t, `SELECT COUNT(*) FROM bills`))
}

func TestMergeInto_NeverOverwritesMasterFacts(t *testing.T) {
	master := store.BillCandidate{Bill: model.Bill{ID: 1}}
	master.Summary.String, master.Summary.Valid = "mine", true

	dup := store.BillCandidate{Bill: model.Bill{ID: 2}}
	dup.Summary.String, dup.Summary.Valid = "theirs", true
	dup.MinistryID.Int64, dup.MinistryID.Valid = 7, true

	merged := mergeInto(BillMergeGroup{Master: master, Duplicates: []store.BillCandidate{dup}})
	assert.Equal(t, "mine", merged.Summary.String)
	assert.Equal(t, int64(7), merged.MinistryID.Int64)
}
