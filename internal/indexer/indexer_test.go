package indexer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/ridewise/internal/embedding"
	"github.com/hyperjump/ridewise/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(kv ...interface{}) *models.Record {
	r := models.NewRecord(len(kv) / 2)
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{"Airport", "Airport"},
		{30.0, "30"},
		{44927.0, "44927"},
		{12.5, "12.5"},
		{-73.98513, "-73.98513"},
		{0.1, "0.1"},
		{1e21, "1e+21"},
		{true, "true"},
		{false, "false"},
		{2023, "2023"},
		{int64(1672531200000), "1672531200000"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFlattenRecord(t *testing.T) {
	rec := record("Trip_ID", "T1", "Age", nil, "Total_Passengers", 3.0, "Pick_Up_Address", "Airport")
	got := FlattenRecord(rec)
	want := "Trip_ID: T1; Total_Passengers: 3; Pick_Up_Address: Airport"
	if got != want {
		t.Errorf("FlattenRecord = %q, want %q", got, want)
	}
	if FlattenRecord(models.NewRecord(0)) != "" {
		t.Error("empty record should flatten to empty string")
	}
}

// batchRecorder records the batch sizes it receives.
type batchRecorder struct {
	*embedding.HashEmbedder
	batches []int
	queries int
	err     error
}

func (b *batchRecorder) Embed(ctx context.Context, text string) ([]float32, error) {
	b.queries++
	return b.HashEmbedder.Embed(ctx, text)
}

func (b *batchRecorder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	b.batches = append(b.batches, len(texts))
	if b.err != nil {
		return nil, b.err
	}
	return b.HashEmbedder.EmbedBatch(ctx, texts)
}

func TestBuilder_BatchesAndOrder(t *testing.T) {
	rec := &batchRecorder{HashEmbedder: embedding.NewHashEmbedder(64)}
	records := make([]*models.Record, 5)
	for i := range records {
		records[i] = record("Trip_ID", float64(i))
	}
	idx, err := NewBuilder(rec, WithBatchSize(2)).Build(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, rec.batches)
	require.Equal(t, 5, idx.Size())
	assert.Equal(t, "trip-000000", idx.Documents()[0].ID)
	assert.Equal(t, "trip-000004", idx.Documents()[4].ID)
	assert.Same(t, records[3], idx.Documents()[3].Record)
}

func TestBuilder_EmbedErrorFailsBuild(t *testing.T) {
	rec := &batchRecorder{HashEmbedder: embedding.NewHashEmbedder(8), err: errors.New("quota exceeded")}
	_, err := NewBuilder(rec).Build(context.Background(), []*models.Record{record("Trip_ID", "T1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestIndex_Query(t *testing.T) {
	records := []*models.Record{
		record("Trip_ID", "T1", "Pick_Up_Address", "Stadium", "Drop_Off_Address", "Harbor"),
		record("Trip_ID", "T2", "Pick_Up_Address", "Airport", "Drop_Off_Address", "Downtown"),
		record("Trip_ID", "T3", "Pick_Up_Address", "University", "Drop_Off_Address", "Mall"),
	}
	idx, err := NewBuilder(embedding.NewHashEmbedder(256)).Build(context.Background(), records)
	require.NoError(t, err)

	matches, err := idx.Query(context.Background(), "airport downtown", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "T2", matches[0].Document.Record.Value("Trip_ID"))
	assert.Equal(t, 1, matches[0].Rank)
	assert.Equal(t, 2, matches[1].Rank)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	assert.False(t, math.IsNaN(matches[0].Score))

	all, err := idx.Query(context.Background(), "anything", 20)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestIndex_EmptyQuerySkipsEmbedder(t *testing.T) {
	rec := &batchRecorder{HashEmbedder: embedding.NewHashEmbedder(8)}
	idx, err := NewBuilder(rec).Build(context.Background(), nil)
	require.NoError(t, err)
	matches, err := idx.Query(context.Background(), "trips", 20)
	require.NoError(t, err)
	assert.Nil(t, matches)
	assert.Zero(t, rec.queries)
	assert.Empty(t, rec.batches)
}

func TestBuild_FreshIndexEachTime(t *testing.T) {
	b := NewBuilder(embedding.NewHashEmbedder(32))
	first, err := b.Build(context.Background(), []*models.Record{record("Trip_ID", "OLD")})
	require.NoError(t, err)
	second, err := b.Build(context.Background(), []*models.Record{record("Trip_ID", "NEW")})
	require.NoError(t, err)

	matches, err := second.Query(context.Background(), "OLD", 20)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "NEW", matches[0].Document.Record.Value("Trip_ID"))
	assert.Equal(t, 1, first.Size())
}
