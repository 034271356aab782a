package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/flightwx/internal/weather"
)

type WeatherHandler struct {
	svc *weather.Service
}

func NewWeatherHandler(svc *weather.Service) *WeatherHandler {
	return &WeatherHandler{svc: svc}
}

func (h *WeatherHandler) Register(r gin.IRouter) {
	r.GET("/", h.DefaultMetar)
	r.GET("/metar/:id", h.Metar)
	r.GET("/taf/:id", h.Taf)
}

func (h *WeatherHandler) DefaultMetar(c *gin.Context) {
	h.metar(c, weather.DefaultStation)
}

func (h *WeatherHandler) Metar(c *gin.Context) {
	h.metar(c, c.Param("id"))
}

func (h *WeatherHandler) metar(c *gin.Context, id string) {
	m, err := h.svc.Metar(c.Request.Context(), id)
	if err != nil {
		RespondError(c, upstreamError(err))
		return
	}
	RespondOK(c, m)
}

func (h *WeatherHandler) Taf(c *gin.Context) {
	t, err := h.svc.Taf(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, upstreamError(err))
		return
	}
	RespondOK(c, t)
}
