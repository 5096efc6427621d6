package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"healthcare_app_echo/internal/models"
	"healthcare_app_echo/internal/services"
)

const doctorCacheTTL = 5 * time.Minute

type DoctorHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewDoctorHandler(db *gorm.DB, cache *services.RedisCache) *DoctorHandler {
	return &DoctorHandler{db: db, cache: cache}
}

// List returns all doctors, cached briefly since the roster rarely changes
func (h *DoctorHandler) List(c echo.Context) error {
	fetch := func() ([]models.Doctor, error) {
		var doctors []models.Doctor
		err := h.db.Order("name").Find(&doctors).Error
		return doctors, err
	}

	var doctors []models.Doctor
	var err error
	if h.cache != nil {
		doctors, err = services.GetOrSet(h.cache, c.Request().Context(), "doctors:all", doctorCacheTTL, fetch)
	} else {
		doctors, err = fetch()
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch doctors")
	}

	return c.JSON(http.StatusOK, doctors)
}

// Search filters doctors by specialty and/or location
func (h *DoctorHandler) Search(c echo.Context) error {
	specialty := c.QueryParam("specialty")
	location := c.QueryParam("location")

	fetch := func() ([]models.Doctor, error) {
		query := h.db.Model(&models.Doctor{})
		if specialty != "" {
			query = query.Where("specialty ILIKE ?", "%"+specialty+"%")
		}
		if location != "" {
			query = query.Where("location ILIKE ?", "%"+location+"%")
		}

		var doctors []models.Doctor
		err := query.Order("name").Find(&doctors).Error
		return doctors, err
	}

	var doctors []models.Doctor
	var err error
	if h.cache != nil {
		key := fmt.Sprintf("doctors:search:%s:%s", specialty, location)
		doctors, err = services.GetOrSet(h.cache, c.Request().Context(), key, doctorCacheTTL, fetch)
	} else {
		doctors, err = fetch()
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to search doctors")
	}

	return c.JSON(http.StatusOK, doctors)
}
