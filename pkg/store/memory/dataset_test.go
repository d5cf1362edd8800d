package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"storepulse/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2023, 1, 25, 12, 0, 0, 0, time.UTC)

func obs(storeID string, hours int, status model.StoreStatus) model.Observation {
	return model.Observation{StoreID: storeID, Timestamp: base.Add(time.Duration(hours) * time.Hour), Status: status}
}

func TestDataset_EmptyHasNoReference(t *testing.T) {
	d := NewDataset()
	_, err := d.GetMaxObservationTimestamp(context.Background())
	assert.True(t, errors.Is(err, model.ErrNoObservations))

	ids, err := d.ListAllStoreIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDataset_Catalog(t *testing.T) {
	ctx := context.Background()
	d := NewDataset()
	require.NoError(t, d.SaveObservations(ctx, []model.Observation{
		obs("b", 0, model.StoreStatusActive),
		obs("a", 5, model.StoreStatusInactive),
	}))
	require.NoError(t, d.SaveBusinessHourRules(ctx, []model.BusinessHourRule{
		{StoreID: "c", DayOfWeek: 0, StartTimeLocal: "09:00:00", EndTimeLocal: "12:00:00"},
	}))
	require.NoError(t, d.SaveTimezones(ctx, []model.TimezoneMapping{
		{StoreID: "d", Timezone: "Asia/Tokyo"},
		{StoreID: "a", Timezone: "America/Denver"},
	}))

	ids, err := d.ListAllStoreIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)

	latest, err := d.GetMaxObservationTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, base.Add(5*time.Hour), latest)

	tz, ok, err := d.GetTimezone(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "America/Denver", tz)

	_, ok, err = d.GetTimezone(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	rules, err := d.GetBusinessHourRules(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, rules)

	require.NoError(t, d.Reset(ctx))
	ids, _ = d.ListAllStoreIDs(ctx)
	assert.Empty(t, ids)
}

func TestDataset_GetObservationsIncludesNeighbours(t *testing.T) {
	ctx := context.Background()
	d := NewDataset()
	require.NoError(t, d.SaveObservations(ctx, []model.Observation{
		obs("s1", 10, model.StoreStatusActive),
		obs("s1", -10, model.StoreStatusActive),
		obs("s1", -20, model.StoreStatusInactive),
		obs("s1", 2, model.StoreStatusInactive),
		obs("s1", 20, model.StoreStatusInactive),
		obs("s2", 0, model.StoreStatusActive),
	}))

	got, err := d.GetObservations(ctx, "s1", base, base.Add(5*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, base.Add(-10*time.Hour), got[0].Timestamp)
	assert.Equal(t, base.Add(2*time.Hour), got[1].Timestamp)
	assert.Equal(t, base.Add(10*time.Hour), got[2].Timestamp)

	// Nothing inside the range still yields both neighbours
	got, err = d.GetObservations(ctx, "s1", base.Add(11*time.Hour), base.Add(12*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = d.GetObservations(ctx, "missing", base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDataset_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDataset()
	assert.Error(t, d.Ping(ctx))
	_, err := d.ListAllStoreIDs(ctx)
	assert.Error(t, err)
}
