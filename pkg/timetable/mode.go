package timetable

// Mode is the class of vehicle operating a route.
type Mode uint8

const (
	ModeOther Mode = iota
	ModeSuburbanRail
	ModeSubwayMetro
	ModeTram
	ModeBus
	ModeFerry
	ModeRegionalRail
)

func (m Mode) String() string {
	switch m {
	case ModeSuburbanRail:
		return "SuburbanRail"
	case ModeSubwayMetro:
		return "SubwayMetro"
	case ModeTram:
		return "Tram"
	case ModeBus:
		return "Bus"
	case ModeFerry:
		return "Ferry"
	case ModeRegionalRail:
		return "RegionalRail"
	default:
		return "Other"
	}
}

// ModeFromGTFSRouteType maps a GTFS route_type code (see
// https://gtfs.org/schedule/reference/#routestxt, including its extended
// hierarchy) onto the modes this system distinguishes.
func ModeFromGTFSRouteType(routeType int) Mode {
	switch routeType {
	case 0, 900: // Tram, TramService
		return ModeTram
	case 1, 400: // Subway/Metro, UrbanRailway
		return ModeSubwayMetro
	case 2, 100, 109: // Rail, RailwayService, SuburbanRailway
		return ModeSuburbanRail
	case 3, 700, 702, 704, 705, 710, 712, 713: // Bus, BusService, related extended codes
		return ModeBus
	case 4, 1000, 1200: // Ferry, WaterTransportService
		return ModeFerry
	case 101, 102, 103, 106: // high speed / long distance / regional rail
		return ModeRegionalRail
	default:
		return ModeOther
	}
}

// ModeFilter is a set of allowed Modes.
type ModeFilter uint16

// AllModes allows every mode.
func AllModes() ModeFilter {
	return ^ModeFilter(0)
}

// With returns the filter with m added.
func (f ModeFilter) With(m Mode) ModeFilter {
	return f | (1 << uint(m))
}

// Allows reports whether m passes the filter.
func (f ModeFilter) Allows(m Mode) bool {
	return f&(1<<uint(m)) != 0
}
