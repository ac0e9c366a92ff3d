package service

import (
	"context"
	"sync"
	"testing"

	"github.com/jjenkins/parliament/internal/model"
	"github.com/jjenkins/parliament/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMember_ReturnsSameID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.resolver.ResolveMember(ctx, "Ms Lee")
	require.NoError(t, err)
	second, err := env.resolver.ResolveMember(ctx, "Ms Lee")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := env.resolver.ResolveMember(ctx, "Ms  Lee")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestResolveMember_ConcurrentCallersShareOneRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const n = 16
	ids := make([]int64, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], errs[i] = env.resolver.ResolveMember(ctx, "Mr Tan")
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM members WHERE name = $1`, "Mr Tan"))
}

func TestResolveMinistry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.resolver.ResolveMinistry(ctx, "MOH")
	require.NoError(t, err)
	assert.True(t, id.Valid)

	again, err := env.resolver.ResolveMinistry(ctx, "MOH")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	for _, acronym := range []string{"", "NOPE"} {
		got, err := env.resolver.ResolveMinistry(ctx, acronym)
		require.NoError(t, err)
		assert.False(t, got.Valid, acronym)
	}
}

func TestResolveBill_BackfillIsMonotonic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sittings := store.NewSittingStore(env.db)
	bills := store.NewBillStore(env.db)

	early := &model.Sitting{Date: day(1)}
	require.NoError(t, sittings.UpsertSitting(ctx, early))
	late := &model.Sitting{Date: day(20)}
	require.NoError(t, sittings.UpsertSitting(ctx, late))

	moh, err := env.resolver.ResolveMinistry(ctx, "MOH")
	require.NoError(t, err)
	mof, err := env.resolver.ResolveMinistry(ctx, "MOF")
	require.NoError(t, err)

	// a second reading seen first creates a bare bill
	id, err := env.resolver.ResolveBill(ctx, BillRef{Title: "Foo Bill"})
	require.NoError(t, err)

	b, err := bills.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, b.MinistryID.Valid)
	assert.False(t, b.FirstReadingDate.Valid)

	// the first reading fills both facts in
	got, err := env.resolver.ResolveBill(ctx, BillRef{
		Title: "Foo Bill", MinistryID: moh,
		FirstReadingDate: early.Date, FirstReadingSittingID: early.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, id, got)

	// later references never overwrite
	got, err = env.resolver.ResolveBill(ctx, BillRef{
		Title: "Foo Bill", MinistryID: mof,
		FirstReadingDate: late.Date, FirstReadingSittingID: late.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, id, got)

	b, err = bills.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, moh, b.MinistryID)
	assert.True(t, b.FirstReadingDate.Time.Equal(early.Date))
	assert.Equal(t, early.ID, b.FirstReadingSittingID.Int64)
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM bills`))
}

func TestResolveBill_NewBillCarriesAllFacts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	st := &model.Sitting{Date: day(2)}
	require.NoError(t, store.NewSittingStore(env.db).UpsertSitting(ctx, st))
	mot, err := env.resolver.ResolveMinistry(ctx, "MOT")
	require.NoError(t, err)

	id, err := env.resolver.ResolveBill(ctx, BillRef{
		Title: "Rapid Transit Bill", MinistryID: mot,
		FirstReadingDate: st.Date, FirstReadingSittingID: st.ID,
	})
	require.NoError(t, err)

	b, err := store.NewBillStore(env.db).GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, mot, b.MinistryID)
	assert.Equal(t, st.ID, b.FirstReadingSittingID.Int64)
}

func TestWritePool_BoundsInFlight(t *testing.T) {
	pool := NewWritePool(2)
	assert.Equal(t, 2, pool.Size())

	var mu sync.Mutex
	inFlight, peak := 0, 0
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Do(context.Background(), func(ctx context.Context) error {
				mu.Lock()
				inFlight++
				peak = max(peak, inFlight)
				mu.Unlock()

				<-release

				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil
			})
		}()
	}

	close(release)
	wg.Wait()
	assert.LessOrEqual(t, peak, 2)
	assert.Equal(t, DefaultWriteConcurrency, NewWritePool(0).Size())
}

func TestWritePool_CancelledContext(t *testing.T) {
	pool := NewWritePool(1)
	ctx, cancel := context.WithCancel(context.Background())

	hold := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func(ctx context.Context) error {
			close(hold)
			<-done
			return nil
		})
	}()
	<-hold

	cancel()
	called := false
	err := pool.Do(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	close(done)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
