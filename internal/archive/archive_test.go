package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warroom/extension/internal/config"
	"github.com/warroom/extension/pkg/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSqlite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	s, err := New(db, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRun(n int, winner core.FactionID) *Run {
	started := time.Date(2026, 3, 1, 12, 0, n, 0, time.UTC)
	return &Run{
		SessionID:   fmt.Sprintf("session-%d", n),
		StartedAt:   started,
		EndedAt:     started.Add(time.Minute),
		OriginLabel: "DEFAULT",
		OriginLon:   -74.006,
		OriginLat:   40.7128,
		Ticks:       int64(3600 + n),
		AlertLevel:  int(core.MaxAlert),
		Winner:      string(winner),
		Launches:    5,
		Impacts:     5,
		Casualties:  12,
	}
}

func TestSaveAndRecent(t *testing.T) {
	s := newTestStore(t)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Save(testRun(i, core.Europe)))
	}

	runs, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "session-3", runs[0].SessionID)
	assert.Equal(t, "session-2", runs[1].SessionID)
	assert.Equal(t, int64(3603), runs[0].Ticks)
	assert.InDelta(t, 40.7128, runs[0].OriginLat, 1e-9)
}

func TestSave_SessionOnce(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(testRun(1, "")))
	err := s.Save(testRun(1, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session-1")
}

func TestFactionTallies(t *testing.T) {
	s := newTestStore(t)

	r := testRun(1, core.Asia)
	r.Factions = EncodeFactions(map[core.FactionID]FactionTally{
		core.Asia:   {Alive: 4, Lost: 1, Fired: 3},
		core.Russia: {Lost: 6, Fired: 2},
	})
	require.NoError(t, s.Save(r))

	runs, err := s.Recent(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	tallies, err := runs[0].FactionTallies()
	require.NoError(t, err)
	assert.Equal(t, FactionTally{Alive: 4, Lost: 1, Fired: 3}, tallies[core.Asia])
	assert.Equal(t, FactionTally{Lost: 6, Fired: 2}, tallies[core.Russia])
}

func TestFactionTallies_Empty(t *testing.T) {
	tallies, err := Run{}.FactionTallies()
	require.NoError(t, err)
	assert.Empty(t, tallies)

	assert.Equal(t, "{}", string(EncodeFactions(nil)))
}

func TestWins(t *testing.T) {
	s := newTestStore(t)

	winners := []core.FactionID{core.Europe, "", core.Europe, core.Asia}
	for i, w := range winners {
		require.NoError(t, s.Save(testRun(i, w)))
	}

	wins, err := s.Wins()
	require.NoError(t, err)
	assert.Equal(t, map[core.FactionID]int{core.Europe: 2, core.Asia: 1}, wins)
}

func TestOpen(t *testing.T) {
	t.Run("sqlite creates the directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "warroom.db")
		s, err := Open(config.ArchiveConfig{Driver: "sqlite", Path: path}, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("in memory", func(t *testing.T) {
		s, err := Open(config.ArchiveConfig{Driver: "sqlite"}, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		require.NoError(t, s.Save(testRun(1, core.Africa)))
		runs, err := s.Recent(10)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(config.ArchiveConfig{Driver: "mysql"}, zerolog.Nop())
		assert.ErrorIs(t, err, ErrUnknownDriver)
	})
}
