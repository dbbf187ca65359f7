package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mavillena/aemet-track/internal/climate"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *climate.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/climate/summary", func(c *fiber.Ctx) error {
		summary, err := service.Summary(c.Context())
		if err != nil {
			if errors.Is(err, climate.ErrNotStored) {
				return fiber.NewError(fiber.StatusNotFound, "no summary available yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load summary")
		}
		return c.JSON(summary)
	})

	v1.Get("/climate/summary/day", func(c *fiber.Ctx) error {
		var req dayQuery
		if err := c.QueryParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summary, err := service.Summary(c.Context())
		if err != nil {
			if errors.Is(err, climate.ErrNotStored) {
				return fiber.NewError(fiber.StatusNotFound, "no summary available yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load summary")
		}

		day := *req.Day
		return c.JSON(fiber.Map{
			"day":       day,
			"tmax":      summary.TMax[day],
			"tmed":      summary.TMed[day],
			"tmin":      summary.TMin[day],
			"prec":      summary.Prec[day],
			"recordMax": summary.RecordMax[day],
			"recordMin": summary.RecordMin[day],
		})
	})

	v1.Get("/climate/comparison", func(c *fiber.Ctx) error {
		cmp, err := service.Comparison(c.Context(), time.Now())
		if err != nil {
			if errors.Is(err, climate.ErrNotStored) {
				return fiber.NewError(fiber.StatusNotFound, "no summary available yet")
			}
			return fiber.NewError(fiber.StatusBadGateway, "failed to build comparison")
		}
		return c.JSON(cmp)
	})

	v1.Get("/climate/records", func(c *fiber.Ctx) error {
		cmp, err := service.Comparison(c.Context(), time.Now())
		if err != nil {
			if errors.Is(err, climate.ErrNotStored) {
				return fiber.NewError(fiber.StatusNotFound, "no summary available yet")
			}
			return fiber.NewError(fiber.StatusBadGateway, "failed to build comparison")
		}
		return c.JSON(fiber.Map{
			"year":           cmp.Current.Year,
			"newRecordHighs": cmp.NewRecordHighs,
			"newRecordLows":  cmp.NewRecordLows,
		})
	})
}

// dayQuery holds the query parameters for the single-day endpoint.
// Day is a pointer so that a missing parameter is distinguishable from
// day zero (Jan 1).
type dayQuery struct {
	Day *int `query:"day" validate:"required,min=0,max=364"`
}
