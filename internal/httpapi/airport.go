package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/flightwx/internal/airport"
	"github.com/yungbote/flightwx/internal/platform/apierr"
	"github.com/yungbote/flightwx/internal/platform/dbctx"
)

type AirportHandler struct {
	repo airport.Repo
}

func NewAirportHandler(repo airport.Repo) *AirportHandler {
	return &AirportHandler{repo: repo}
}

func (h *AirportHandler) Register(r gin.IRouter) {
	r.GET("/", h.All)
	r.GET("/list", h.List)
	r.GET("/airport/:id", h.ByID)
}

// All returns the catalog as a JSON array ordered by ICAO.
func (h *AirportHandler) All(c *gin.Context) {
	airports, err := h.repo.List(dbctx.New(c.Request.Context()))
	if err != nil {
		RespondError(c, err)
		return
	}
	if airports == nil {
		airports = []*airport.Airport{}
	}
	RespondOK(c, airports)
}

func (h *AirportHandler) List(c *gin.Context) {
	airports, err := h.repo.List(dbctx.New(c.Request.Context()))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(airport.FormatList(airports)))
}

func (h *AirportHandler) ByID(c *gin.Context) {
	id := c.Param("id")
	ap, err := h.repo.Get(dbctx.New(c.Request.Context()), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	if ap == nil {
		RespondError(c, apierr.NotFound("not_found", fmt.Errorf("airport %s not found", id)))
		return
	}
	RespondOK(c, ap)
}
