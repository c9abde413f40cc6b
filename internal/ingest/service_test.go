package ingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/ridewise/internal/embedding"
	"github.com/hyperjump/ridewise/internal/enrich"
	"github.com/hyperjump/ridewise/internal/indexer"
	"github.com/hyperjump/ridewise/internal/storage"
	"github.com/hyperjump/ridewise/internal/workbook"
	"github.com/hyperjump/ridewise/test/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newService(t *testing.T, logger *zap.Logger) (*Service, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	svc := NewService(
		workbook.NewParser(workbook.DefaultSheetNames(), logger),
		enrich.NewEnricher("Trip_Date_and_Time", enrich.WithLocation(time.UTC), enrich.WithLogger(logger)),
		indexer.NewBuilder(embedding.NewHashEmbedder(64)),
		store,
		logger,
	)
	return svc, store
}

func standardWorkbook(t *testing.T, ids ...string) []byte {
	t.Helper()
	var trips, checkins [][]interface{}
	for i, id := range ids {
		trips = append(trips, fixtures.Trip(id, 44927.0+float64(i), 2, "Airport", "Downtown"))
		checkins = append(checkins, []interface{}{id, "U" + id})
	}
	data, err := fixtures.Workbook(
		fixtures.TripSheet(trips...),
		fixtures.CheckInSheet(checkins...),
		fixtures.DemographicsSheet([]interface{}{"U" + ids[0], 30}),
	)
	require.NoError(t, err)
	return data
}

func TestIngest_Publishes(t *testing.T) {
	svc, store := newService(t, zap.NewNop())
	res, err := svc.Ingest(context.Background(), bytes.NewReader(standardWorkbook(t, "T1", "T2")), "upload.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.NotEmpty(t, res.Generation)
	assert.Equal(t, 1, res.Stats.WithAge)
	assert.Empty(t, res.Missing)

	snap, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, res.Generation, snap.Generation)
	assert.Equal(t, "upload.xlsx", snap.Source)
	assert.Equal(t, 2, snap.Index.Size())
	assert.Equal(t, "UT1", snap.Records[0].Value(enrich.FieldCheckedInUserID))
	assert.Equal(t, 2023, snap.Records[0].Value(enrich.FieldTripYear))
}

func TestIngest_SecondUploadReplacesFirst(t *testing.T) {
	svc, store := newService(t, zap.NewNop())
	ctx := context.Background()
	_, err := svc.Ingest(ctx, bytes.NewReader(standardWorkbook(t, "OLD1", "OLD2")), "a.xlsx")
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, bytes.NewReader(standardWorkbook(t, "NEW1")), "b.xlsx")
	require.NoError(t, err)

	snap, _ := store.Current()
	matches, err := snap.Index.Query(ctx, "OLD1 trip", 20)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "NEW1", matches[0].Document.Record.Value("Trip_ID"))
}

func TestIngest_FailureKeepsPreviousSnapshot(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	svc, store := newService(t, zap.New(core))
	ctx := context.Background()
	first, err := svc.Ingest(ctx, bytes.NewReader(standardWorkbook(t, "T1")), "good.xlsx")
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, strings.NewReader("not a workbook"), "bad.xlsx")
	require.Error(t, err)
	snap, _ := store.Current()
	assert.Equal(t, first.Generation, snap.Generation)
	assert.Equal(t, 1, logs.FilterMessage("ingest failed").Len())
}

func TestIngest_MissingSheets(t *testing.T) {
	svc, store := newService(t, zap.NewNop())
	data, err := fixtures.Workbook(fixtures.TripSheet(fixtures.Trip("T1", 44927.0, 1, "A", "B")))
	require.NoError(t, err)
	res, err := svc.Ingest(context.Background(), bytes.NewReader(data), "partial.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	assert.Len(t, res.Missing, 2)
	snap, _ := store.Current()
	v, ok := snap.Records[0].Get(enrich.FieldAge)
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestLoadDefault(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc, store := newService(t, zap.New(core))
	ctx := context.Background()

	res, err := svc.LoadDefault(ctx, filepath.Join(t.TempDir(), "absent.xlsx"))
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.False(t, store.Ready())
	assert.Equal(t, 1, logs.FilterMessage("default workbook not found; waiting for upload").Len())

	path := filepath.Join(t.TempDir(), "rides.xlsx")
	require.NoError(t, os.WriteFile(path, standardWorkbook(t, "T1"), 0o644))
	res, err = svc.LoadDefault(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Rows)
	assert.True(t, store.Ready())
}

func TestReloadFile_SkipsUnchangedContent(t *testing.T) {
	svc, store := newService(t, zap.NewNop())
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rides.xlsx")
	require.NoError(t, os.WriteFile(path, standardWorkbook(t, "T1"), 0o644))

	first, err := svc.ReloadFile(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.NotEmpty(t, first.Digest)

	again, err := svc.ReloadFile(ctx, path)
	require.NoError(t, err)
	assert.Nil(t, again)
	snap, _ := store.Current()
	assert.Equal(t, first.Generation, snap.Generation)

	require.NoError(t, os.WriteFile(path, standardWorkbook(t, "T1", "T2"), 0o644))
	changed, err := svc.ReloadFile(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, changed)
	assert.Equal(t, 2, changed.Rows)
	assert.NotEqual(t, first.Digest, changed.Digest)
}
