package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travigo/transit-radar/pkg/gtfstime"
	"github.com/travigo/transit-radar/pkg/radarid"
)

type threeStopFixture struct {
	idx        *Index
	stopA      radarid.StopID
	stopB      radarid.StopID
	stopC      radarid.StopID
}

func threeStopLine(t *testing.T) threeStopFixture {
	t.Helper()
	b := NewBuilder()

	stopA := b.AddStop("A", "Stop A", Coordinates{}, ModeSuburbanRail, "")
	stopB := b.AddStop("B", "Stop B", Coordinates{}, ModeSuburbanRail, "")
	stopC := b.AddStop("C", "Stop C", Coordinates{}, ModeSuburbanRail, "")

	b.AddRoute("R1", "S1", "S1 line", ModeSuburbanRail, "#ff0000", "solid")
	_, err := b.AddTrip("T1", "R1", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)

	require.NoError(t, b.AddStopTime("T1", "A", 0, gtfstime.FromHMS(10, 0, 0), gtfstime.FromHMS(10, 0, 0)))
	require.NoError(t, b.AddStopTime("T1", "B", 1, gtfstime.FromHMS(10, 2, 0), gtfstime.FromHMS(10, 2, 0)))
	require.NoError(t, b.AddStopTime("T1", "C", 2, gtfstime.FromHMS(10, 4, 0), gtfstime.FromHMS(10, 4, 0)))

	idx, err := b.Build()
	require.NoError(t, err)
	return threeStopFixture{idx: idx, stopA: stopA, stopB: stopB, stopC: stopC}
}

func TestBuildAssignsDenseHandlesAndSortsStopTimes(t *testing.T) {
	f := threeStopLine(t)

	assert.Equal(t, 3, f.idx.StopCount())
	trip := f.idx.Trip(0)
	require.Len(t, trip.StopTimes, 3)
	for i, st := range trip.StopTimes {
		assert.Equal(t, i, st.Position)
	}
}

func TestNextDeparturesOrdersAscendingAndFiltersWindow(t *testing.T) {
	f := threeStopLine(t)

	departures := f.idx.NextDepartures(f.stopA, gtfstime.FromHMS(9, 0, 0), gtfstime.FromHMS(11, 0, 0), AllModes(), gtfstime.Monday)
	require.Len(t, departures, 1)
	assert.Equal(t, 0, departures[0].Position)

	none := f.idx.NextDepartures(f.stopA, gtfstime.FromHMS(10, 0, 1), gtfstime.FromHMS(11, 0, 0), AllModes(), gtfstime.Monday)
	assert.Empty(t, none)
}

func TestNextDeparturesFiltersByWeekdayAndMode(t *testing.T) {
	f := threeStopLine(t)

	wrongDay := f.idx.NextDepartures(f.stopA, 0, gtfstime.FromHMS(23, 59, 59), AllModes(), gtfstime.Tuesday)
	assert.Empty(t, wrongDay)

	wrongMode := f.idx.NextDepartures(f.stopA, 0, gtfstime.FromHMS(23, 59, 59), ModeFilter(0).With(ModeBus), gtfstime.Monday)
	assert.Empty(t, wrongMode)
}

func TestTransfersFromIncludesImplicitSelfEdge(t *testing.T) {
	f := threeStopLine(t)

	edges := f.idx.TransfersFrom(f.stopA)
	require.Len(t, edges, 1)
	assert.Equal(t, f.stopA, edges[0].To)
	assert.Equal(t, 0, edges[0].Seconds)
}

func TestTransfersFromFansOutToStationSiblings(t *testing.T) {
	b := NewBuilder()
	b.AddStation("HUB", "Hub", Coordinates{})
	hub1 := b.AddStop("HUB-1", "Hub platform 1", Coordinates{}, ModeBus, "HUB")
	hub2 := b.AddStop("HUB-2", "Hub platform 2", Coordinates{}, ModeTram, "HUB")
	stopX := b.AddStop("X", "Somewhere else", Coordinates{}, ModeBus, "")
	require.NoError(t, b.AddTransfer("X", "HUB-1", 90))

	b.AddRoute("R1", "S1", "S1 line", ModeBus, "", "")
	_, err := b.AddTrip("T1", "R1", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("T1", "X", 0, 0, 0))
	require.NoError(t, b.AddStopTime("T1", "HUB-1", 1, 100, 100))

	idx, err := b.Build()
	require.NoError(t, err)

	edges := idx.TransfersFrom(stopX)
	destinations := map[radarid.StopID]int{}
	for _, e := range edges {
		destinations[e.To] = e.Seconds
	}
	assert.Equal(t, 0, destinations[stopX]) // implicit self-edge
	assert.Equal(t, 90, destinations[hub1])
	assert.Equal(t, 90, destinations[hub2])
}

func TestBuildRejectsTripsWithFewerThanTwoStopTimes(t *testing.T) {
	b := NewBuilder()
	b.AddStop("A", "Stop A", Coordinates{}, ModeBus, "")
	b.AddRoute("R1", "S1", "S1 line", ModeBus, "", "")
	_, err := b.AddTrip("T1", "R1", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("T1", "A", 0, 0, 0))

	_, err = b.Build()
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestBuildRejectsNonMonotonicStopTimes(t *testing.T) {
	b := NewBuilder()
	b.AddStop("A", "Stop A", Coordinates{}, ModeBus, "")
	b.AddStop("B", "Stop B", Coordinates{}, ModeBus, "")
	b.AddRoute("R1", "S1", "S1 line", ModeBus, "", "")
	_, err := b.AddTrip("T1", "R1", gtfstime.NewWeekdaySet(gtfstime.Monday))
	require.NoError(t, err)
	require.NoError(t, b.AddStopTime("T1", "A", 0, 100, 100))
	require.NoError(t, b.AddStopTime("T1", "B", 1, 50, 50))

	_, err = b.Build()
	assert.ErrorIs(t, err, ErrInvalidIndex)
}
