package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"city_parking/internal/api/middleware"
	"city_parking/internal/domain"
	"city_parking/internal/service"
)

type ParkingLotHandler struct {
	lotService *service.LotService
}

func NewParkingLotHandler(ls *service.LotService) *ParkingLotHandler {
	return &ParkingLotHandler{lotService: ls}
}

// POST /parking-lots
func (h *ParkingLotHandler) CreateLot(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	var dto domain.CreateParkingLotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := h.lotService.CreateLot(c.Request.Context(), caller, dto)
	if err != nil {
		respondError(c, err, "could not create parking lot")
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// GET /parking-lots
func (h *ParkingLotHandler) ListLots(c *gin.Context) {
	lots, err := h.lotService.ListLots(c.Request.Context())
	if err != nil {
		respondError(c, err, "could not list parking lots")
		return
	}
	c.JSON(http.StatusOK, lots)
}

// GET /parking-lots/:id
func (h *ParkingLotHandler) GetLot(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot id"})
		return
	}

	detail, err := h.lotService.GetLot(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "could not fetch parking lot")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// PUT /parking-lots/:id
func (h *ParkingLotHandler) UpdateLot(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot id"})
		return
	}

	var dto domain.UpdateParkingLotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := h.lotService.EditLot(c.Request.Context(), caller, id, dto)
	if err != nil {
		respondError(c, err, "could not update parking lot")
		return
	}
	c.JSON(http.StatusOK, lot)
}

// DELETE /parking-lots/:id
func (h *ParkingLotHandler) DeleteLot(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot id"})
		return
	}

	if err := h.lotService.DeleteLot(c.Request.Context(), caller, id); err != nil {
		respondError(c, err, "could not delete parking lot")
		return
	}
	c.Status(http.StatusNoContent)
}
