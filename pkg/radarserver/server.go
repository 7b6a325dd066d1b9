package radarserver

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"

	"github.com/travigo/transit-radar/pkg/gtfstime"
	"github.com/travigo/transit-radar/pkg/radar"
	"github.com/travigo/transit-radar/pkg/radarconfig"
	"github.com/travigo/transit-radar/pkg/radarresult"
)

// SetupServer builds the fiber app: a station search endpoint backing a
// type-ahead box, and the radar endpoint itself. cutoffSeconds is the
// service-day boundary, read once from radarconfig.Environment at startup
// rather than on every request.
func SetupServer(store *Store, respCache *ResponseCache, cutoffSeconds int) *fiber.App {
	app := fiber.New()
	app.Use(NewLogger())

	group := app.Group("/radar")
	group.Get("/stations", newStationsHandler(store))
	group.Get("/:origin", newRadarHandler(store, respCache, cutoffSeconds))

	return app
}

func newStationsHandler(store *Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		idx, stations := store.Current()
		if idx == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "feed not loaded yet",
			})
		}

		query := c.Query("q")
		limit := stationsearchLimit(c)
		ids := stations.Search(query, limit)

		views := make([]fiber.Map, 0, len(ids))
		for _, id := range ids {
			station := idx.Station(id)
			views = append(views, fiber.Map{
				"name": station.Name,
			})
		}
		return c.JSON(views)
	}
}

func newRadarHandler(store *Store, respCache *ResponseCache, cutoffSeconds int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		idx, _ := store.Current()
		if idx == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "feed not loaded yet",
			})
		}

		originExtID := c.Params("origin")
		origin, ok := idx.StationByExternalID(originExtID)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "unknown origin station",
			})
		}

		modes, err := radarconfig.ParseModes(c.Query("modes"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		durationMinutes, err := radarconfig.ParseDurationMinutes(c.Query("duration_minutes"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		transferCap, err := radarconfig.ParseTransferCapSeconds(c.Query("transfer_cap_seconds"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		instant, err := radarconfig.ParseTime(c.Query("time"), time.Now)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		cacheKey := responseCacheKey(originExtID, instant, durationMinutes, c.Query("modes"), transferCap)
		if respCache != nil {
			if cached, ok := respCache.Get(c.Context(), cacheKey); ok {
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				return c.Send(cached)
			}
		}

		day, queryTime := gtfstime.Normalise(instant, cutoffSeconds)

		tree, err := radar.Search(idx, radar.Config{
			Origin:      origin,
			Day:         day,
			QueryTime:   queryTime,
			Duration:    durationMinutes * 60,
			Modes:       modes,
			TransferCap: transferCap,
		})
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		result := radarresult.Project(idx, tree, day)

		reduced, err := sheriff.Marshal(&sheriff.Options{Groups: []string{"basic"}}, &result)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "could not reduce result",
			})
		}
		body, err := json.Marshal(reduced)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "could not encode result",
			})
		}

		if respCache != nil {
			respCache.Set(c.Context(), cacheKey, body)
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}
}

func stationsearchLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", 0)
	if limit <= 0 {
		return 10
	}
	return limit
}
