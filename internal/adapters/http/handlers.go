package http

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// CreateAnalysisHandler analyses the GPX document in the request body.
//
//	POST /v1/analyses?variant=minimal|extended&name=ride
func CreateAnalysisHandler(deps *Dependencies, parallel bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		variant := domain.Variant(c.Query("variant", string(domain.VariantExtended)))
		opts, err := domain.OptionsFor(variant)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		opts.ParallelAxes = parallel

		body := c.Body()
		if len(body) == 0 {
			return errBadRequest(c, "request body must be a GPX document")
		}

		name := trackName(c.Query("name"))
		a, err := deps.Analyses.Analyze(c.UserContext(), bytes.NewReader(body), name, opts)
		if err != nil {
			return writeError(c, err)
		}

		c.Location("/v1/analyses/" + a.ID)
		return c.Status(fiber.StatusCreated).JSON(a)
	}
}

// ListAnalysesHandler returns analysis summaries, newest first.
func ListAnalysesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := pageParams(c, 20, 100)

		items, total, err := deps.Analyses.List(c.UserContext(), offset, limit)
		if err != nil {
			return writeError(c, err)
		}
		if items == nil {
			items = []domain.AnalysisSummary{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: items, Pagination: pg})
	}
}

// GetAnalysisHandler returns a stored analysis with its series.
func GetAnalysisHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := deps.Analyses.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(a)
	}
}

// AnalysisCSVHandler returns a stored analysis as CSV.
func AnalysisCSVHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var buf bytes.Buffer
		if err := deps.Analyses.ExportCSV(c.UserContext(), id, &buf); err != nil {
			return writeError(c, err)
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.csv"`, id))
		return c.Send(buf.Bytes())
	}
}

// trackName strips directories and the .gpx extension from a client-supplied
// name.
func trackName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == "/" {
		return "upload"
	}
	return name
}
