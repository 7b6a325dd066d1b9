package radar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travigo/transit-radar/pkg/gtfstime"
	"github.com/travigo/transit-radar/pkg/radarid"
	"github.com/travigo/transit-radar/pkg/timetable"
)

func mustBuild(t *testing.T, b *timetable.Builder) *timetable.Index {
	t.Helper()
	idx, err := b.Build()
	require.NoError(t, err)
	return idx
}

func baseConfig(origin radarid.StationID, durationSeconds int) Config {
	return Config{
		Origin:      origin,
		Day:         gtfstime.ServiceDay{Weekday: gtfstime.Monday},
		QueryTime:   600,
		Duration:    durationSeconds,
		Modes:       timetable.AllModes(),
		TransferCap: 600,
	}
}

// S1: single line forward.
func TestSingleLineForward(t *testing.T) {
	b := timetable.NewBuilder()
	stationA := b.AddStation("A", "A", timetable.Coordinates{})
	stopA := b.AddStop("A", "A", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	stopB := b.AddStop("B", "B", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")
	stopC := b.AddStop("C", "C", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")

	b.AddRoute("R1", "R1", "R1", timetable.ModeSuburbanRail, "", "")
	_, err := b.AddTrip("T1", "R1", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("T1", "A", 0, 600, 600))
	require.NoError(t, b.AddStopTime("T1", "B", 1, 720, 720))
	require.NoError(t, b.AddStopTime("T1", "C", 2, 840, 840))

	idx := mustBuild(t, b)

	tree, err := Search(idx, baseConfig(stationA, 300))
	require.NoError(t, err)

	assert.Equal(t, gtfstime.Seconds(600), tree.EarliestAtStop[stopA])
	assert.Equal(t, gtfstime.Seconds(720), tree.EarliestAtStop[stopB])
	assert.Equal(t, gtfstime.Seconds(840), tree.EarliestAtStop[stopC])
}

// S2: transfer.
func TestTransferOntoAnotherTrip(t *testing.T) {
	b := timetable.NewBuilder()
	stationA := b.AddStation("A", "A", timetable.Coordinates{})
	b.AddStop("A", "A", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	b.AddStop("B", "B", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")
	b.AddStop("C", "C", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")
	stopD := b.AddStop("D", "D", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")

	b.AddRoute("R1", "R1", "R1", timetable.ModeSuburbanRail, "", "")
	_, err := b.AddTrip("T1", "R1", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("T1", "A", 0, 600, 600))
	require.NoError(t, b.AddStopTime("T1", "B", 1, 720, 720))
	require.NoError(t, b.AddStopTime("T1", "C", 2, 840, 840))

	b.AddRoute("R2", "R2", "R2", timetable.ModeSuburbanRail, "", "")
	_, err = b.AddTrip("T2", "R2", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("T2", "B", 0, 780, 780))
	require.NoError(t, b.AddStopTime("T2", "D", 1, 900, 900))

	require.NoError(t, b.AddTransfer("B", "B", 60))

	idx := mustBuild(t, b)

	tree, err := Search(idx, baseConfig(stationA, 360))
	require.NoError(t, err)

	assert.Equal(t, gtfstime.Seconds(900), tree.EarliestAtStop[stopD])
	assert.Equal(t, gtfstime.Seconds(300), tree.EarliestAtStop[stopD]-600)
}

// S3: domination - only the faster trip's leg survives as predecessor for B.
func TestDominationKeepsOnlyFastestPredecessor(t *testing.T) {
	b := timetable.NewBuilder()
	stationA := b.AddStation("A", "A", timetable.Coordinates{})
	b.AddStop("A", "A", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	stopB := b.AddStop("B", "B", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")

	b.AddRoute("R1", "R1", "R1", timetable.ModeSuburbanRail, "", "")
	fastTrip, err := b.AddTrip("Fast", "R1", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("Fast", "A", 0, 600, 600))
	require.NoError(t, b.AddStopTime("Fast", "B", 1, 720, 720))

	_, err = b.AddTrip("Slow", "R1", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("Slow", "A", 0, 600, 605))
	require.NoError(t, b.AddStopTime("Slow", "B", 1, 780, 780))

	idx := mustBuild(t, b)

	tree, err := Search(idx, baseConfig(stationA, 300))
	require.NoError(t, err)

	assert.Equal(t, gtfstime.Seconds(720), tree.EarliestAtStop[stopB])
	pred := tree.Predecessor[stopB]
	require.Equal(t, PredecessorTripLeg, pred.Kind)
	assert.Equal(t, fastTrip, pred.Trip)
}

// S4: no service on the queried weekday yields only the origin.
func TestEmptyDayReturnsOnlyOrigin(t *testing.T) {
	b := timetable.NewBuilder()
	stationA := b.AddStation("A", "A", timetable.Coordinates{})
	stopA := b.AddStop("A", "A", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	b.AddStop("B", "B", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")

	b.AddRoute("R1", "R1", "R1", timetable.ModeSuburbanRail, "", "")
	_, err := b.AddTrip("T1", "R1", gtfstime.NewWeekdaySet(gtfstime.Saturday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("T1", "A", 0, 600, 600))
	require.NoError(t, b.AddStopTime("T1", "B", 1, 720, 720))

	idx := mustBuild(t, b)

	tree, err := Search(idx, baseConfig(stationA, 300))
	require.NoError(t, err)

	assert.Len(t, tree.EarliestAtStop, 1)
	assert.Contains(t, tree.EarliestAtStop, stopA)
}

// S5: mode filter - only the rail leg survives when modes={rail}.
func TestModeFilterExcludesOtherModes(t *testing.T) {
	b := timetable.NewBuilder()
	stationA := b.AddStation("A", "A", timetable.Coordinates{})
	b.AddStop("A", "A", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	stopB := b.AddStop("B", "B", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")

	b.AddRoute("Bus", "Bus", "Bus", timetable.ModeBus, "", "")
	_, err := b.AddTrip("BusTrip", "Bus", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("BusTrip", "A", 0, 600, 600))
	require.NoError(t, b.AddStopTime("BusTrip", "B", 1, 650, 650))

	b.AddRoute("Rail", "Rail", "Rail", timetable.ModeSuburbanRail, "", "")
	railTrip, err := b.AddTrip("RailTrip", "Rail", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("RailTrip", "A", 0, 600, 600))
	require.NoError(t, b.AddStopTime("RailTrip", "B", 1, 720, 720))

	idx := mustBuild(t, b)

	cfg := baseConfig(stationA, 300)
	cfg.Modes = timetable.ModeFilter(0).With(timetable.ModeSuburbanRail)

	tree, err := Search(idx, cfg)
	require.NoError(t, err)

	assert.Equal(t, gtfstime.Seconds(720), tree.EarliestAtStop[stopB])
	assert.Equal(t, railTrip, tree.Predecessor[stopB].Trip)
}

// S6 / B2: a stop reached at exactly the budget is included, one second
// beyond is not.
func TestBudgetEdgeInclusiveAtExactDeadline(t *testing.T) {
	b := timetable.NewBuilder()
	stationA := b.AddStation("A", "A", timetable.Coordinates{})
	b.AddStop("A", "A", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	stopB := b.AddStop("B", "B", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")
	stopC := b.AddStop("C", "C", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")

	b.AddRoute("R1", "R1", "R1", timetable.ModeSuburbanRail, "", "")
	_, err := b.AddTrip("T1", "R1", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("T1", "A", 0, 600, 600))
	require.NoError(t, b.AddStopTime("T1", "B", 1, 900, 900)) // exactly +300s
	require.NoError(t, b.AddStopTime("T1", "C", 2, 901, 901)) // +301s

	idx := mustBuild(t, b)

	tree, err := Search(idx, baseConfig(stationA, 300))
	require.NoError(t, err)

	assert.Contains(t, tree.EarliestAtStop, stopB)
	assert.NotContains(t, tree.EarliestAtStop, stopC)
}

// B1: a zero-minute budget returns only the origin platforms.
func TestZeroDurationReturnsOnlyOriginPlatforms(t *testing.T) {
	b := timetable.NewBuilder()
	stationA := b.AddStation("A", "A", timetable.Coordinates{})
	platform1 := b.AddStop("A1", "A1", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	platform2 := b.AddStop("A2", "A2", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	b.AddStop("B", "B", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")

	b.AddRoute("R1", "R1", "R1", timetable.ModeSuburbanRail, "", "")
	_, err := b.AddTrip("T1", "R1", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("T1", "A1", 0, 601, 601))
	require.NoError(t, b.AddStopTime("T1", "B", 1, 720, 720))

	idx := mustBuild(t, b)

	tree, err := Search(idx, baseConfig(stationA, 0))
	require.NoError(t, err)

	assert.Len(t, tree.EarliestAtStop, 2)
	assert.Contains(t, tree.EarliestAtStop, platform1)
	assert.Contains(t, tree.EarliestAtStop, platform2)
}

// B3: a trip departing exactly at query_time from the origin is boardable.
func TestTripDepartingExactlyAtQueryTimeIsBoardable(t *testing.T) {
	b := timetable.NewBuilder()
	stationA := b.AddStation("A", "A", timetable.Coordinates{})
	b.AddStop("A", "A", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	stopB := b.AddStop("B", "B", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")

	b.AddRoute("R1", "R1", "R1", timetable.ModeSuburbanRail, "", "")
	_, err := b.AddTrip("T1", "R1", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("T1", "A", 0, 600, 600))
	require.NoError(t, b.AddStopTime("T1", "B", 1, 660, 660))

	idx := mustBuild(t, b)

	tree, err := Search(idx, baseConfig(stationA, 60))
	require.NoError(t, err)

	assert.Equal(t, gtfstime.Seconds(660), tree.EarliestAtStop[stopB])
}

// B4: the implicit zero-duration self-transfer is always available at the
// origin, even with no declared transfers.
func TestSelfTransferAlwaysAvailableAtOrigin(t *testing.T) {
	b := timetable.NewBuilder()
	stationA := b.AddStation("A", "A", timetable.Coordinates{})
	stopA := b.AddStop("A", "A", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	b.AddStop("B", "B", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")
	idx := mustBuild(t, b)

	tree, err := Search(idx, baseConfig(stationA, 60))
	require.NoError(t, err)

	assert.Equal(t, gtfstime.Seconds(600), tree.EarliestAtStop[stopA])
}

// Supplemented slow-trip catch-up: a trip is first boarded at a
// downstream stop (Y, reached fast), then its upstream stop (X) is reached
// later and the trip is boarded again from there; the earliest arrivals at
// X, Y and the stop downstream of both must stay correct.
func TestSlowTripCatchUpReboardsFromEarlierStop(t *testing.T) {
	b := timetable.NewBuilder()
	stationA := b.AddStation("A", "A", timetable.Coordinates{})
	b.AddStop("A", "A", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	stopX := b.AddStop("X", "X", timetable.Coordinates{}, timetable.ModeSuburbanRail, "") // early position
	stopY := b.AddStop("Y", "Y", timetable.Coordinates{}, timetable.ModeSuburbanRail, "") // late position, reached directly and fast
	stopZ := b.AddStop("Z", "Z", timetable.Coordinates{}, timetable.ModeSuburbanRail, "") // downstream of both

	// A fast direct trip reaches Y quickly.
	b.AddRoute("Direct", "Direct", "Direct", timetable.ModeSuburbanRail, "", "")
	_, err := b.AddTrip("DirectTrip", "Direct", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("DirectTrip", "A", 0, 600, 600))
	require.NoError(t, b.AddStopTime("DirectTrip", "Y", 1, 610, 610))

	// A slow trip reaches X only later, after Y has already been used to
	// board the shared onward trip below.
	b.AddRoute("Slow", "Slow", "Slow", timetable.ModeSuburbanRail, "", "")
	_, err = b.AddTrip("SlowTrip", "Slow", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("SlowTrip", "A", 0, 600, 650))
	require.NoError(t, b.AddStopTime("SlowTrip", "X", 1, 660, 660))

	// The shared trip: X (early position) -> Y (late position) -> Z.
	b.AddRoute("Shared", "Shared", "Shared", timetable.ModeSuburbanRail, "", "")
	_, err = b.AddTrip("SharedTrip", "Shared", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("SharedTrip", "X", 0, 700, 700))
	require.NoError(t, b.AddStopTime("SharedTrip", "Y", 1, 750, 750))
	require.NoError(t, b.AddStopTime("SharedTrip", "Z", 2, 800, 800))

	idx := mustBuild(t, b)

	tree, err := Search(idx, baseConfig(stationA, 250))
	require.NoError(t, err)

	assert.Equal(t, gtfstime.Seconds(610), tree.EarliestAtStop[stopY])
	assert.Equal(t, gtfstime.Seconds(660), tree.EarliestAtStop[stopX])
	assert.Equal(t, gtfstime.Seconds(800), tree.EarliestAtStop[stopZ])
}

// R2: narrowing the mode filter strictly shrinks (never grows) the set of
// reached stops.
func TestNarrowingModeFilterShrinksReachedStops(t *testing.T) {
	b := timetable.NewBuilder()
	stationA := b.AddStation("A", "A", timetable.Coordinates{})
	b.AddStop("A", "A", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	b.AddStop("B", "B", timetable.Coordinates{}, timetable.ModeBus, "")

	b.AddRoute("Bus", "Bus", "Bus", timetable.ModeBus, "", "")
	_, err := b.AddTrip("BusTrip", "Bus", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("BusTrip", "A", 0, 600, 600))
	require.NoError(t, b.AddStopTime("BusTrip", "B", 1, 650, 650))

	idx := mustBuild(t, b)

	all, err := Search(idx, baseConfig(stationA, 300))
	require.NoError(t, err)

	narrow := baseConfig(stationA, 300)
	narrow.Modes = timetable.ModeFilter(0).With(timetable.ModeSuburbanRail)
	restricted, err := Search(idx, narrow)
	require.NoError(t, err)

	for stop := range restricted.EarliestAtStop {
		assert.Contains(t, all.EarliestAtStop, stop)
	}
	assert.Less(t, len(restricted.EarliestAtStop), len(all.EarliestAtStop))
}

// P5: determinism across repeated invocations.
func TestSearchIsDeterministic(t *testing.T) {
	b := timetable.NewBuilder()
	stationA := b.AddStation("A", "A", timetable.Coordinates{})
	b.AddStop("A", "A", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	b.AddStop("B", "B", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")
	b.AddStop("C", "C", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")

	b.AddRoute("R1", "R1", "R1", timetable.ModeSuburbanRail, "", "")
	_, err := b.AddTrip("T1", "R1", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("T1", "A", 0, 600, 600))
	require.NoError(t, b.AddStopTime("T1", "B", 1, 720, 720))
	require.NoError(t, b.AddStopTime("T1", "C", 2, 840, 840))

	idx := mustBuild(t, b)
	cfg := baseConfig(stationA, 300)

	first, err := Search(idx, cfg)
	require.NoError(t, err)
	second, err := Search(idx, cfg)
	require.NoError(t, err)

	assert.Equal(t, first.EarliestAtStop, second.EarliestAtStop)
	assert.Equal(t, first.Predecessor, second.Predecessor)
}

func TestSearchRejectsUnknownOrigin(t *testing.T) {
	b := timetable.NewBuilder()
	b.AddStop("A", "A", timetable.Coordinates{}, timetable.ModeSuburbanRail, "")
	idx := mustBuild(t, b)

	_, err := Search(idx, baseConfig(radarid.StationID(99), 30))
	assert.ErrorIs(t, err, ErrUnknownOrigin)
}

func TestSearchRejectsMalformedRequest(t *testing.T) {
	b := timetable.NewBuilder()
	stationA := b.AddStation("A", "A", timetable.Coordinates{})
	b.AddStop("A", "A", timetable.Coordinates{}, timetable.ModeSuburbanRail, "A")
	idx := mustBuild(t, b)

	cfg := baseConfig(stationA, -5)
	_, err := Search(idx, cfg)
	assert.ErrorIs(t, err, ErrMalformedRequest)
}
