package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityType(t *testing.T) {
	for _, et := range AllEntityTypes {
		parsed, err := ParseEntityType(" " + string(et) + " ")
		require.NoError(t, err)
		assert.Equal(t, et, parsed)
	}

	_, err := ParseEntityType("coupons")
	assert.Error(t, err)

	_, err = ParseEntityTypes([]string{"orders", "ORDERS"})
	assert.Error(t, err)
}

func TestEntityTypeBackend(t *testing.T) {
	assert.Equal(t, BackendWooCommerce, EntityOrders.Backend())
	assert.Equal(t, BackendWooCommerce, EntityCustomers.Backend())
	assert.Equal(t, BackendWordPress, EntityMedia.Backend())
	assert.Equal(t, "orders,media", JoinEntityTypes([]EntityType{EntityOrders, EntityMedia}))
}

func TestEntityID(t *testing.T) {
	id, err := EntityID(json.RawMessage(`{"id": 4211, "name": "Mug"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(4211), id)

	_, err = EntityID(json.RawMessage(`{"name": "no id"}`))
	assert.Error(t, err)
}

func TestSyncMetadataApply(t *testing.T) {
	m := NewSyncMetadata(7, EntityProducts)
	m.Error = "boom"
	m.TotalCount = 10

	syncing := SyncStateSyncing
	empty := ""
	m.Apply(SyncMetadataUpdate{Status: &syncing, Error: &empty})

	assert.Equal(t, SyncStateSyncing, m.Status)
	assert.Empty(t, m.Error)
	assert.Equal(t, 10, m.TotalCount, "unspecified fields are preserved")
	assert.Nil(t, m.LastSync)
}

func TestBatchSessionJSON(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewBatchSession("abc", now, 5)
	s.MarkProcessed(3, now)
	s.MarkProcessed(1, now)
	s.MarkFailed(4, now)
	s.MarkFailed(1, now)
	s.MarkProcessed(1, now.Add(time.Minute))

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []interface{}{float64(1), float64(3)}, raw["processedProductIds"])
	assert.Equal(t, []interface{}{float64(4)}, raw["failedProductIds"])
	assert.Equal(t, float64(5), raw["totalProducts"])
	assert.Equal(t, "active", raw["status"])
	assert.Contains(t, raw, "startedAt")
	assert.Contains(t, raw, "lastUpdatedAt")

	var decoded BatchSession
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.IsProcessed(1))
	assert.True(t, decoded.IsProcessed(3))
	assert.False(t, decoded.IsProcessed(4))
	assert.Len(t, decoded.FailedItemIDs, 1)
	assert.True(t, decoded.LastUpdatedAt.Equal(now.Add(time.Minute)))
}
