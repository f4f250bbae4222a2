package roomhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"metaverse2d/internal/ws"
)

// RoomLister is satisfied by *ws.Registry.
type RoomLister interface {
	Stats() []ws.RoomStats
}

type Handler struct {
	rooms RoomLister
}

func New(rooms RoomLister) *Handler { return &Handler{rooms: rooms} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/healthz", h.health)
	r.GET("/rooms", h.list)
}

// @Summary		Liveness probe
// @Tags			Ops
// @Success		200	{object}	HealthResponse
// @Router			/healthz [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// @Summary		List live rooms
// @Description	Returns every space that currently has connected users, with its occupant count.
// @Tags			Rooms
// @Success		200	{array}	RoomResponse
// @Router			/rooms [get]
func (h *Handler) list(c *gin.Context) {
	stats := h.rooms.Stats()
	out := make([]RoomResponse, 0, len(stats))
	for _, s := range stats {
		out = append(out, RoomResponse{SpaceID: s.SpaceID, Occupants: s.Occupants})
	}
	c.JSON(http.StatusOK, out)
}
