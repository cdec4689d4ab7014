package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"city_parking/internal/api/middleware"
	"city_parking/internal/domain"
	"city_parking/internal/repository"
	"city_parking/internal/service"
)

type ReservationHandler struct {
	reservationService *service.ReservationService
}

func NewReservationHandler(rs *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: rs}
}

// POST /reservations
func (h *ReservationHandler) Reserve(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	var dto domain.ReserveSpotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.reservationService.Reserve(c.Request.Context(), caller, dto)
	if err != nil {
		respondError(c, err, "could not reserve a spot")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"reservation_id": res.ID,
		"booking_ref":    res.BookingRef,
		"spot_number":    res.SpotNumber,
		"hourly_rate":    res.HourlyRate,
		"reservation":    res,
	})
}

// POST /reservations/:id/release
func (h *ReservationHandler) Release(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	receipt, err := h.reservationService.Release(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, err, "could not release the reservation")
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// GET /reservations/active
func (h *ReservationHandler) Active(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	res, err := h.reservationService.ActiveReservation(c.Request.Context(), caller)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active reservation"})
			return
		}
		respondError(c, err, "could not fetch active reservation")
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /users/:id/reservations
func (h *ReservationHandler) History(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	history, err := h.reservationService.History(c.Request.Context(), caller, userID)
	if err != nil {
		respondError(c, err, "could not fetch reservation history")
		return
	}
	c.JSON(http.StatusOK, history)
}
