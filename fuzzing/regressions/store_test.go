package regressions

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, limit int) *Store {
	store, err := OpenStore(filepath.Join(t.TempDir(), "regressions.db"), limit)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRecord(seed int64, checkName string) *Record {
	return &Record{
		ContractID: "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM.counter",
		Mode:       "invariant",
		CheckName:  checkName,
		Seed:       seed,
		Sequence: []RecordedCall{
			{Function: "increment", Caller: "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", Arguments: []string{"u5"}, BlockAdvance: 3},
		},
	}
}

// TestSaveAndListRoundTrip checks a record persists and reads back intact.
func TestSaveAndListRoundTrip(t *testing.T) {
	store := openTestStore(t, 0)
	record := testRecord(42, "invariant-counter-bounded")
	require.NoError(t, store.Save(record))
	assert.NotEmpty(t, record.ID)

	records, err := store.List(record.ContractID, record.Mode)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.CheckName, records[0].CheckName)
	assert.Equal(t, record.Seed, records[0].Seed)
	require.Len(t, records[0].Sequence, 1)
	assert.Equal(t, "increment", records[0].Sequence[0].Function)
	assert.Equal(t, []string{"u5"}, records[0].Sequence[0].Arguments)
	assert.Equal(t, uint64(3), records[0].Sequence[0].BlockAdvance)
}

// TestSaveDedupsBySeedAndCheck checks refinding the same failure under the same seed stores nothing new.
func TestSaveDedupsBySeedAndCheck(t *testing.T) {
	store := openTestStore(t, 0)
	require.NoError(t, store.Save(testRecord(42, "invariant-counter-bounded")))
	require.NoError(t, store.Save(testRecord(42, "invariant-counter-bounded")))
	require.NoError(t, store.Save(testRecord(43, "invariant-counter-bounded")))

	records, err := store.List("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM.counter", "invariant")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

// TestBucketsSeparateModes checks invariant and property records do not mix.
func TestBucketsSeparateModes(t *testing.T) {
	store := openTestStore(t, 0)
	invariantRecord := testRecord(1, "invariant-counter-bounded")
	require.NoError(t, store.Save(invariantRecord))

	propertyRecord := testRecord(1, "test-increment-monotone")
	propertyRecord.Mode = "property"
	require.NoError(t, store.Save(propertyRecord))

	invariantRecords, err := store.List(invariantRecord.ContractID, "invariant")
	require.NoError(t, err)
	require.Len(t, invariantRecords, 1)
	assert.Equal(t, "invariant-counter-bounded", invariantRecords[0].CheckName)

	propertyRecords, err := store.List(propertyRecord.ContractID, "property")
	require.NoError(t, err)
	require.Len(t, propertyRecords, 1)
	assert.Equal(t, "test-increment-monotone", propertyRecords[0].CheckName)
}

// TestRetentionEvictsOldest checks the bucket bound drops the oldest records first.
func TestRetentionEvictsOldest(t *testing.T) {
	store := openTestStore(t, 3)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(testRecord(int64(i), fmt.Sprintf("invariant-check-%d", i))))
	}

	records, err := store.List("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM.counter", "invariant")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "invariant-check-2", records[0].CheckName)
	assert.Equal(t, "invariant-check-4", records[2].CheckName)
}
