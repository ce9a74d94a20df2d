package migrate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-scheduler/internal/db"
)

type boolRow struct{ v bool }

func (r boolRow) Scan(dest ...any) error {
	*(dest[0].(*bool)) = r.v
	return nil
}

type fakeQuerier struct {
	applied map[string]bool
	execs   []string
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) error {
	f.execs = append(f.execs, sql)
	if strings.HasPrefix(sql, "INSERT INTO schema_migrations") {
		f.applied[args[0].(string)] = true
	}
	return nil
}

func (f *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) db.Row {
	return boolRow{v: f.applied[args[0].(string)]}
}

func (f *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (db.Rows, error) {
	return nil, nil
}

func TestFilesSorted(t *testing.T) {
	files, err := Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql", "0002_scheduling.sql"}, files)
}

func TestUpSkipsApplied(t *testing.T) {
	q := &fakeQuerier{applied: map[string]bool{"0001_init.sql": true}}
	require.NoError(t, Up(context.Background(), q))

	assert.True(t, q.applied["0002_scheduling.sql"])
	joined := strings.Join(q.execs, "\n")
	assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS meeting_requests")
	assert.NotContains(t, joined, "CREATE TABLE IF NOT EXISTS messages")

	before := len(q.execs)
	require.NoError(t, Up(context.Background(), q))
	assert.Equal(t, before+1, len(q.execs), "second run only ensures the bookkeeping table")
}
