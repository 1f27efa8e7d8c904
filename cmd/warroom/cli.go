package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/warroom/extension/internal/archive"
	"github.com/warroom/extension/internal/dispatcher"
	"github.com/warroom/extension/internal/session"
	"github.com/warroom/extension/internal/sim"
	"github.com/warroom/extension/internal/util"
	"github.com/warroom/extension/pkg/core"
)

// readCommands dispatches one command per input line until r is exhausted
// or ctx is done. Results and errors are written to out.
func readCommands(ctx context.Context, r io.Reader, out io.Writer, d *dispatcher.Dispatcher) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		command, args, ok := util.ParseCommandLine(scanner.Text())
		if !ok {
			if strings.TrimSpace(scanner.Text()) != "" {
				fmt.Fprintln(out, "not a command:", scanner.Text())
			}
			continue
		}
		result, err := d.Dispatch(dispatcher.Event{
			Command:   command,
			Args:      args,
			Timestamp: time.Now(),
		})
		switch {
		case err != nil:
			fmt.Fprintf(out, "%s error: %v\n", command, err)
		case result != nil:
			fmt.Fprintf(out, "%s %v\n", command, result)
		}
	}
}

// tallyRecorder counts simulation events for the end-of-run report.
type tallyRecorder struct {
	mu       sync.Mutex
	counts   tallyCounts
	lost     map[core.FactionID]int
	launched map[core.FactionID]int
}

type tallyCounts struct {
	Launches      int
	Impacts       int
	Casualties    int
	Mobilizations int
	Escalations   int
}

var _ sim.Recorder = (*tallyRecorder)(nil)

func newTallyRecorder() *tallyRecorder {
	return &tallyRecorder{
		lost:     make(map[core.FactionID]int),
		launched: make(map[core.FactionID]int),
	}
}

func (t *tallyRecorder) RecordLaunch(e core.LaunchEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts.Launches++
	t.launched[e.Faction]++
}

func (t *tallyRecorder) RecordImpact(e core.ImpactEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts.Impacts++
	t.counts.Casualties += e.Casualties
	if e.Escalated {
		t.counts.Escalations++
	}
}

func (t *tallyRecorder) RecordMobilization(core.MobilizationEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts.Mobilizations++
}

func (t *tallyRecorder) RecordDestroyed(e core.DestroyedEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lost[e.Faction]++
}

func (t *tallyRecorder) RecordAlert(core.AlertEvent)     {}
func (t *tallyRecorder) RecordVictory(core.VictoryEvent) {}

type tallySnapshot struct {
	tallyCounts
	Lost     map[core.FactionID]int
	Launched map[core.FactionID]int
}

func (t *tallyRecorder) snapshot() tallySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := tallySnapshot{
		tallyCounts: t.counts,
		Lost:        make(map[core.FactionID]int, len(t.lost)),
		Launched:    make(map[core.FactionID]int, len(t.launched)),
	}
	for k, v := range t.lost {
		s.Lost[k] = v
	}
	for k, v := range t.launched {
		s.Launched[k] = v
	}
	return s
}

// report is the headless end-of-run summary.
type report struct {
	Session   string
	Origin    session.Origin
	Ticks     uint64
	SimTime   time.Duration
	WallTime  time.Duration
	Alert     core.AlertLevel
	Winner    core.FactionID
	Survivors map[core.FactionID]int
	Tally     tallySnapshot
}

func buildReport(f core.Frame, t tallySnapshot, tickRate int, wall time.Duration, sess *session.Context) report {
	r := report{
		Ticks:     f.Tick,
		WallTime:  wall,
		Alert:     f.AlertLevel,
		Winner:    f.Winner,
		Survivors: f.LiveUnitsByFaction(),
		Tally:     t,
	}
	if tickRate > 0 {
		r.SimTime = time.Duration(f.Tick) * time.Second / time.Duration(tickRate)
	}
	if sess != nil {
		r.Session = sess.ID()
		r.Origin = sess.Origin()
	}
	return r
}

func printReport(w io.Writer, r report) {
	fmt.Fprintf(w, "SESSION    %s\n", r.Session)
	if r.Origin.City != "" {
		fmt.Fprintf(w, "ORIGIN     %s (%s)\n", r.Origin.City, r.Origin.Label)
	} else {
		fmt.Fprintf(w, "ORIGIN     %.4f, %.4f (%s)\n", r.Origin.Lon, r.Origin.Lat, r.Origin.Label)
	}
	fmt.Fprintf(w, "TICKS      %s (%s simulated, %s wall)\n",
		humanize.Comma(int64(r.Ticks)), r.SimTime.Round(time.Millisecond), r.WallTime.Round(time.Millisecond))
	fmt.Fprintf(w, "DEFCON     %d // %s\n", int(r.Alert), r.Alert.Label())

	if r.Winner != "" {
		fmt.Fprintf(w, "OUTCOME    UNCONTESTED DOMINANCE SECURED BY %s\n", r.Winner)
	} else {
		fmt.Fprintln(w, "OUTCOME    UNRESOLVED")
	}

	fmt.Fprintf(w, "LAUNCHES   %s\n", humanize.Comma(int64(r.Tally.Launches)))
	fmt.Fprintf(w, "IMPACTS    %s (%s escalations)\n", humanize.Comma(int64(r.Tally.Impacts)), humanize.Comma(int64(r.Tally.Escalations)))
	fmt.Fprintf(w, "CASUALTIES %s\n", humanize.Comma(int64(r.Tally.Casualties)))

	for _, id := range r.factionIDs() {
		fmt.Fprintf(w, "  %-6s %s alive, %s lost, %s fired\n", id,
			humanize.Comma(int64(r.Survivors[id])),
			humanize.Comma(int64(r.Tally.Lost[id])),
			humanize.Comma(int64(r.Tally.Launched[id])))
	}
}

// factionIDs lists every faction that had units, in name order.
func (r report) factionIDs() []core.FactionID {
	seen := make(map[core.FactionID]bool)
	for id := range r.Survivors {
		seen[id] = true
	}
	for id := range r.Tally.Lost {
		seen[id] = true
	}
	ids := make([]core.FactionID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// archiveRun converts a report into its archive row.
func archiveRun(r report, started, ended time.Time) *archive.Run {
	tallies := make(map[core.FactionID]archive.FactionTally)
	for _, id := range r.factionIDs() {
		tallies[id] = archive.FactionTally{
			Alive: r.Survivors[id],
			Lost:  r.Tally.Lost[id],
			Fired: r.Tally.Launched[id],
		}
	}
	return &archive.Run{
		SessionID:     r.Session,
		StartedAt:     started.UTC(),
		EndedAt:       ended.UTC(),
		OriginLabel:   r.Origin.Label,
		OriginCity:    r.Origin.City,
		OriginLon:     r.Origin.Lon,
		OriginLat:     r.Origin.Lat,
		Ticks:         int64(r.Ticks),
		AlertLevel:    int(r.Alert),
		Winner:        string(r.Winner),
		Launches:      r.Tally.Launches,
		Impacts:       r.Tally.Impacts,
		Escalations:   r.Tally.Escalations,
		Casualties:    r.Tally.Casualties,
		Mobilizations: r.Tally.Mobilizations,
		Factions:      archive.EncodeFactions(tallies),
	}
}

func printHistory(w io.Writer, runs []archive.Run, wins map[core.FactionID]int) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no archived runs")
		return
	}
	for _, run := range runs {
		outcome := "UNRESOLVED"
		if run.Winner != "" {
			outcome = "WON BY " + run.Winner
		}
		fmt.Fprintf(w, "%s  %s  %s ticks  %s casualties  %s\n",
			run.StartedAt.Format("2006-01-02 15:04"),
			run.SessionID,
			humanize.Comma(run.Ticks),
			humanize.Comma(int64(run.Casualties)),
			outcome)
	}

	ids := make([]string, 0, len(wins))
	for id := range wins {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s %d", id, wins[core.FactionID(id)]))
	}
	if len(parts) > 0 {
		fmt.Fprintln(w, "WINS", strings.Join(parts, ", "))
	}
}
