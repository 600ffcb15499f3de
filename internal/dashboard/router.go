package dashboard

import (
	_ "embed"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jgoulah/velocount/internal/render"
	"github.com/jgoulah/velocount/pkg/models"
	"github.com/jgoulah/velocount/pkg/response"
)

//go:embed static/index.html
var indexHTML []byte

// MapResponse is the payload of GET /api/v1/map
type MapResponse struct {
	Month   string          `json:"month"`
	Rows    []models.MapRow `json:"rows"`
	Missing []string        `json:"missing"`
	Deck    render.Deck     `json:"deck"`
}

type animationRequest struct {
	Speed string `json:"speed" binding:"required"`
}

// NewRouter wires the dashboard API
func NewRouter(svc *Service, anim *Animator, hub *Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), Logger(), CORS())

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})

	r.GET("/health", func(c *gin.Context) {
		ds := svc.Dataset()
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"snapshot":   ds.SnapshotID.String(),
			"fetched_at": ds.FetchedAt.Format(time.RFC3339),
		})
	})

	r.GET("/ws", func(c *gin.Context) {
		var first interface{}
		if frame, ok := anim.Current(); ok {
			first = frame
		}
		hub.Serve(c.Writer, c.Request, first)
	})

	api := r.Group("/api/v1")
	{
		api.GET("/months", func(c *gin.Context) {
			months := svc.Dataset().Months()
			names := make([]string, len(months))
			for i, m := range months {
				names[i] = m.String()
			}
			response.Success(c, gin.H{"months": names})
		})

		api.GET("/locations", func(c *gin.Context) {
			ds := svc.Dataset()
			response.Success(c, gin.H{
				"locations": ds.Locations,
				"unmatched": ds.Unmatched(),
			})
		})

		api.GET("/map", func(c *gin.Context) {
			m, err := monthParam(c)
			if err != nil {
				response.BadRequest(c, err.Error())
				return
			}

			ds := svc.Dataset()
			rows := ds.MapRows(m.Year, m.Month)
			response.Success(c, MapResponse{
				Month:   m.String(),
				Rows:    rows,
				Missing: ds.Missing(m.Year, m.Month),
				Deck:    render.NewDeck(rows),
			})
		})

		api.GET("/counters/:name/series", func(c *gin.Context) {
			ds := svc.Dataset()
			name := c.Param("name")

			series := ds.Series(name)
			loc, hasLocation := ds.Location(name)
			if len(series) == 0 && !hasLocation {
				response.NotFound(c, fmt.Sprintf("unknown counter %q", name))
				return
			}

			data := gin.H{"counter": name, "series": series}
			if hasLocation {
				data["counter"] = loc.Name
				data["location"] = loc
			}
			response.Success(c, data)
		})

		api.POST("/refresh", func(c *gin.Context) {
			ds, err := svc.Refresh(c.Request.Context())
			if err != nil {
				response.BadGateway(c, err.Error())
				return
			}
			response.Success(c, gin.H{
				"snapshot":   ds.SnapshotID.String(),
				"fetched_at": ds.FetchedAt.Format(time.RFC3339),
				"months":     len(ds.Months()),
			})
		})

		api.GET("/animation", func(c *gin.Context) {
			response.Success(c, animationStatus(anim))
		})

		api.PUT("/animation", func(c *gin.Context) {
			var req animationRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				response.BadRequest(c, err.Error())
				return
			}
			speed, err := ParseSpeed(req.Speed)
			if err != nil {
				response.BadRequest(c, err.Error())
				return
			}
			anim.SetSpeed(speed)
			response.Success(c, animationStatus(anim))
		})
	}

	return r
}

func animationStatus(anim *Animator) gin.H {
	speed := anim.Speed()
	status := gin.H{
		"speed":       speed,
		"interval_ms": speed.Interval().Milliseconds(),
	}
	if frame, ok := anim.Current(); ok {
		status["month"] = frame.Month
	}
	return status
}

// monthParam accepts ?month=YYYY-MM or ?year=YYYY&month=M
func monthParam(c *gin.Context) (models.Month, error) {
	monthStr := c.Query("month")
	yearStr := c.Query("year")

	if yearStr == "" {
		if monthStr == "" {
			return models.Month{}, fmt.Errorf("month is required (YYYY-MM)")
		}
		return models.ParseMonth(monthStr)
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return models.Month{}, fmt.Errorf("invalid year %q", yearStr)
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return models.Month{}, fmt.Errorf("invalid month %q", monthStr)
	}

	m := models.Month{Year: year, Month: month}
	if !m.Valid() {
		return models.Month{}, fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	return m, nil
}
