package gtfsload

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/paulcager/osgridref"
	"github.com/rs/zerolog/log"

	"github.com/travigo/transit-radar/pkg/gtfstime"
	"github.com/travigo/transit-radar/pkg/timetable"
)

// DefaultMinTransferSeconds is the within-station transfer duration applied
// between sibling platforms that transfers.txt leaves undeclared.
const DefaultMinTransferSeconds = 120

// Load reads the GTFS static feed found as loose files under dir (the
// directory named by radarconfig.Environment.GTFSDir) and builds an Index.
// Only stops.txt, routes.txt, trips.txt, stop_times.txt, calendar.txt and
// transfers.txt are consulted; calendar_dates.txt service exceptions are out
// of scope. lineColoursPath is the optional RADAR_LINE_COLOURS_FILE
// supplement; pass "" to skip it.
func Load(dir, lineColoursPath string) (*timetable.Index, error) {
	feed, err := readFeed(dir)
	if err != nil {
		return nil, err
	}

	b := timetable.NewBuilder()
	if err := loadStops(b, feed.stops); err != nil {
		return nil, err
	}
	if err := loadRoutes(b, feed.routes); err != nil {
		return nil, err
	}
	weekdays, err := loadCalendar(feed.calendars)
	if err != nil {
		return nil, err
	}
	if err := loadTrips(b, feed.trips, weekdays); err != nil {
		return nil, err
	}
	if err := loadStopTimes(b, feed.stopTimes); err != nil {
		return nil, err
	}
	if err := loadTransfers(b, feed.transfers, feed.stops); err != nil {
		return nil, err
	}
	backfillStopModes(b, feed)

	if err := LoadLineColours(b, lineColoursPath); err != nil {
		return nil, err
	}

	return b.Build()
}

// LoadLineColours applies the optional RADAR_LINE_COLOURS_FILE supplement
// to routes already registered on b. It must be called
// before b.Build().
func LoadLineColours(b *timetable.Builder, path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("gtfsload: opening line colours file: %w", err)
	}
	defer file.Close()

	var rows []csvLineColour
	if err := unmarshalCSV(file, &rows); err != nil {
		return fmt.Errorf("gtfsload: parsing line colours file: %w", err)
	}
	for _, row := range rows {
		b.SetRouteColour(row.RouteShortName, row.Colour, row.Dash)
	}
	return nil
}

type feed struct {
	stops     []csvStop
	routes    []csvRoute
	trips     []csvTrip
	stopTimes []csvStopTime
	calendars []csvCalendar
	transfers []csvTransfer
}

// readFeed unmarshals the recognised GTFS text files found directly under
// dir, tolerating missing optional files (transfers.txt, calendar.txt).
func readFeed(dir string) (feed, error) {
	var f feed

	required := map[string]interface{}{
		"stops.txt":      &f.stops,
		"routes.txt":     &f.routes,
		"trips.txt":      &f.trips,
		"stop_times.txt": &f.stopTimes,
	}
	optional := map[string]interface{}{
		"calendar.txt":   &f.calendars,
		"transfers.txt":  &f.transfers,
	}

	for name, destination := range required {
		if err := readCSVFile(filepath.Join(dir, name), destination); err != nil {
			return feed{}, fmt.Errorf("gtfsload: loading %s: %w", name, err)
		}
	}
	for name, destination := range optional {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			log.Info().Str("file", name).Msg("gtfsload: optional file not present in feed")
			continue
		}
		if err := readCSVFile(path, destination); err != nil {
			return feed{}, fmt.Errorf("gtfsload: loading %s: %w", name, err)
		}
	}

	return f, nil
}

func readCSVFile(path string, destination interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	log.Info().Str("file", filepath.Base(path)).Msg("gtfsload: loading file")
	return unmarshalCSV(file, destination)
}

// unmarshalCSV configures gocsv to tolerate ragged rows some real-world
// GTFS exports produce.
func unmarshalCSV(reader io.Reader, destination interface{}) error {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})
	return gocsv.Unmarshal(reader, destination)
}

func loadStops(b *timetable.Builder, stops []csvStop) error {
	// Register every station-type stop first, so that AddStop's
	// parentExtID lookups below always resolve to a station the Builder
	// already knows the name and location of (timetable.Builder.AddStop's
	// documented contract: a non-empty parentExtID may be registered
	// "previously or later", but a station synthesised only implicitly by
	// AddStop never gets a name - see the second pass's synthesise step).
	parents := map[string]bool{}
	for _, s := range stops {
		loc := resolveCoordinates(s)
		if s.Type == locationTypeStation {
			b.AddStation(s.ID, s.Name, loc)
		}
		if s.Parent != "" {
			parents[s.Parent] = true
		}
	}

	// A feed may reference a parent_station that never appears as its own
	// location_type=1 row (malformed, but not rare in the wild). Synthesise
	// a station for it from its own id so Builder.AddStop's contract still
	// holds and Build doesn't silently leave a nameless station behind.
	known := map[string]bool{}
	for _, s := range stops {
		if s.Type == locationTypeStation {
			known[s.ID] = true
		}
	}
	for parent := range parents {
		if !known[parent] {
			b.AddStation(parent, parent, timetable.Coordinates{})
		}
	}

	for _, s := range stops {
		if s.Type == locationTypeStation {
			continue
		}
		loc := resolveCoordinates(s)
		mode := timetable.ModeOther
		b.AddStop(s.ID, s.Name, loc, mode, s.Parent)
	}
	return nil
}

// resolveCoordinates prefers stop_lat/stop_lon, falling back to an OS grid
// reference conversion for the NaPTAN easting/northing extension columns
// (mirrors pkg/naptan/location.go's UpdateCoordinates).
func resolveCoordinates(s csvStop) timetable.Coordinates {
	if s.Lat != 0 || s.Lon != 0 {
		return timetable.Coordinates{Lat: s.Lat, Lon: s.Lon}
	}
	if s.Easting == "" || s.Northing == "" {
		return timetable.Coordinates{}
	}

	gridRef, err := osgridref.ParseOsGridRef(fmt.Sprintf("%s,%s", s.Easting, s.Northing))
	if err != nil {
		log.Warn().Str("stop", s.ID).Err(err).Msg("gtfsload: invalid OS grid reference")
		return timetable.Coordinates{}
	}
	lat, lon := gridRef.ToLatLon()
	return timetable.Coordinates{Lat: lat, Lon: lon}
}

// backfillStopModes assigns each stop the mode of the first route seen
// calling at it. GTFS carries mode on routes.txt's route_type, not on
// stops.txt, so this can only run once trips and stop_times are both read.
func backfillStopModes(b *timetable.Builder, f feed) {
	routeModeByID := map[string]timetable.Mode{}
	for _, r := range f.routes {
		routeModeByID[r.ID] = timetable.ModeFromGTFSRouteType(r.Type)
	}
	routeByTrip := map[string]string{}
	for _, t := range f.trips {
		routeByTrip[t.ID] = t.RouteID
	}

	seen := map[string]bool{}
	for _, st := range f.stopTimes {
		if seen[st.StopID] {
			continue
		}
		routeID, ok := routeByTrip[st.TripID]
		if !ok {
			continue
		}
		mode, ok := routeModeByID[routeID]
		if !ok {
			continue
		}
		b.SetStopMode(st.StopID, mode)
		seen[st.StopID] = true
	}
}

func loadRoutes(b *timetable.Builder, routes []csvRoute) error {
	for _, r := range routes {
		mode := timetable.ModeFromGTFSRouteType(r.Type)
		b.AddRoute(r.ID, r.ShortName, r.LongName, mode, r.Colour, "solid")
	}
	return nil
}

func loadCalendar(calendars []csvCalendar) (map[string]gtfstime.WeekdaySet, error) {
	weekdays := map[string]gtfstime.WeekdaySet{}
	for _, c := range calendars {
		var days []gtfstime.Weekday
		if c.Monday == 1 {
			days = append(days, gtfstime.Monday)
		}
		if c.Tuesday == 1 {
			days = append(days, gtfstime.Tuesday)
		}
		if c.Wednesday == 1 {
			days = append(days, gtfstime.Wednesday)
		}
		if c.Thursday == 1 {
			days = append(days, gtfstime.Thursday)
		}
		if c.Friday == 1 {
			days = append(days, gtfstime.Friday)
		}
		if c.Saturday == 1 {
			days = append(days, gtfstime.Saturday)
		}
		if c.Sunday == 1 {
			days = append(days, gtfstime.Sunday)
		}
		weekdays[c.ServiceID] = gtfstime.NewWeekdaySet(days...)
	}
	return weekdays, nil
}

func loadTrips(b *timetable.Builder, trips []csvTrip, weekdays map[string]gtfstime.WeekdaySet) error {
	for _, t := range trips {
		if _, err := b.AddTrip(t.ID, t.RouteID, weekdays[t.ServiceID]); err != nil {
			return fmt.Errorf("trip %q: %w", t.ID, err)
		}
	}
	return nil
}

func loadStopTimes(b *timetable.Builder, stopTimes []csvStopTime) error {
	for _, st := range stopTimes {
		arrival, err := gtfstime.ParseSeconds(st.ArrivalTime)
		if err != nil {
			return fmt.Errorf("stop_time %s/%s: %w", st.TripID, st.StopID, err)
		}
		departure, err := gtfstime.ParseSeconds(st.DepartureTime)
		if err != nil {
			return fmt.Errorf("stop_time %s/%s: %w", st.TripID, st.StopID, err)
		}
		if err := b.AddStopTime(st.TripID, st.StopID, st.StopSequence, arrival, departure); err != nil {
			return fmt.Errorf("stop_time %s/%s: %w", st.TripID, st.StopID, err)
		}
	}
	return nil
}

// loadTransfers registers every declared transfers.txt edge, then fans a
// default DefaultMinTransferSeconds transfer out between every pair of
// sibling platforms at a multi-stop station that transfers.txt left
// undeclared.
func loadTransfers(b *timetable.Builder, transfers []csvTransfer, stops []csvStop) error {
	declared := map[[2]string]bool{}
	for _, t := range transfers {
		seconds := DefaultMinTransferSeconds
		if t.MinTransferTime != "" {
			if parsed, err := gtfstime.ParseSeconds(normaliseDuration(t.MinTransferTime)); err == nil {
				seconds = int(parsed)
			}
		}
		if err := b.AddTransfer(t.FromStopID, t.ToStopID, seconds); err != nil {
			return fmt.Errorf("transfer %s->%s: %w", t.FromStopID, t.ToStopID, err)
		}
		declared[[2]string{t.FromStopID, t.ToStopID}] = true
	}

	siblingsByStation := map[string][]string{}
	for _, s := range stops {
		if s.Type == locationTypeStation || s.Parent == "" {
			continue
		}
		siblingsByStation[s.Parent] = append(siblingsByStation[s.Parent], s.ID)
	}

	for _, siblings := range siblingsByStation {
		for _, from := range siblings {
			for _, to := range siblings {
				if from == to || declared[[2]string{from, to}] {
					continue
				}
				if err := b.AddTransfer(from, to, DefaultMinTransferSeconds); err != nil {
					return fmt.Errorf("implicit transfer %s->%s: %w", from, to, err)
				}
			}
		}
	}
	return nil
}

// normaliseDuration turns transfers.txt's plain seconds count into the
// H:MM:SS form gtfstime.ParseSeconds expects.
func normaliseDuration(rawSeconds string) string {
	var total int
	if _, err := fmt.Sscanf(rawSeconds, "%d", &total); err != nil {
		return "0:00:00"
	}
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
