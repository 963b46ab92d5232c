package mirror

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNeo4j struct {
	writes []string
	raws   []string
	closed bool
}

func (f *fakeNeo4j) RunWrite(_ context.Context, query string, _ map[string]any) error {
	f.writes = append(f.writes, query)
	return nil
}

func (f *fakeNeo4j) RunRaw(_ context.Context, query string, _ map[string]any) error {
	f.raws = append(f.raws, query)
	return nil
}

func (f *fakeNeo4j) Close(context.Context) error {
	f.closed = true
	return nil
}

func TestNeo4jStoreLifecycle(t *testing.T) {
	db := &fakeNeo4j{}
	store := NewNeo4jStore(db, "", 1)

	collection, err := store.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Listing", collection)
	assert.Len(t, db.raws, 2)

	failed, err := store.DeleteByIDs(context.Background(), collection, []string{"1", "2"})
	require.NoError(t, err)
	assert.Empty(t, failed)

	failed, err = store.InsertItems(context.Background(), collection, []Record{
		{ID: "1", Data: map[string]any{"Title": "Suite"}},
		{ID: "2", Data: map[string]any{"Title": "Office"}},
	})
	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, db.writes, 4)
	assert.True(t, strings.Contains(db.writes[0], "DETACH DELETE"))
	assert.True(t, strings.Contains(db.writes[3], "CREATE (n:Listing"))

	var _ Closer = store
	require.NoError(t, store.Close(context.Background()))
	assert.True(t, db.closed)
}
