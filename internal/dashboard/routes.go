package dashboard

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/shiftline/internal/clock"
	"github.com/zulandar/shiftline/internal/models"
	"github.com/zulandar/shiftline/internal/schedule"
	"gorm.io/gorm"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, clk clock.Clock) {
	api := router.Group("/api")
	api.GET("/health", handleHealth)
	api.GET("/users/:id/calendar", handleUserCalendar(db, clk))
	api.GET("/locations/:id/calendar", handleLocationCalendar(db, clk))
	api.GET("/locations/:id/day", handleDaySlots(db, clk))
	api.GET("/requests", handleRequestList(db))
	api.GET("/requests/:id", handleRequestDetail(db))
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// yearMonth reads ?year= and ?month=, defaulting to the current month.
func yearMonth(c *gin.Context, clk clock.Clock) (int, time.Month, bool) {
	now := clk.Now()
	year, month := now.Year(), now.Month()

	if y := c.Query("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad year"})
			return 0, 0, false
		}
		year = n
	}
	if m := c.Query("month"); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil || n < 1 || n > 12 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad month"})
			return 0, 0, false
		}
		month = time.Month(n)
	}
	return year, month, true
}

// handleUserCalendar renders one user's month: day → merged status.
func handleUserCalendar(db *gorm.DB, clk clock.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad user id"})
			return
		}
		year, month, ok := yearMonth(c, clk)
		if !ok {
			return
		}

		days, err := schedule.UserMonthStatus(db, userID, year, month, clk.Location())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id": userID,
			"year":    year,
			"month":   int(month),
			"days":    days,
		})
	}
}

// handleLocationCalendar renders a location's month across all staff.
func handleLocationCalendar(db *gorm.DB, clk clock.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		year, month, ok := yearMonth(c, clk)
		if !ok {
			return
		}

		days, err := schedule.LocationMonthStatus(db, c.Param("id"), year, month, clk.Location())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"location_id": c.Param("id"),
			"year":        year,
			"month":       int(month),
			"days":        days,
		})
	}
}

// handleDaySlots lists a location's slots for ?date=YYYY-MM-DD.
func handleDaySlots(db *gorm.DB, clk clock.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, err := time.ParseInLocation("2006-01-02", c.Query("date"), clk.Location())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}

		slots, err := schedule.DaySlots(db, c.Param("id"), date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"location_id": c.Param("id"),
			"date":        date.Format("2006-01-02"),
			"slots":       slots,
		})
	}
}

// handleRequestList lists requests, optionally filtered by ?status= and
// ?type=, newest first.
func handleRequestList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Model(&models.ShiftRequest{})
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}
		if typ := c.Query("type"); typ != "" {
			q = q.Where("type = ?", typ)
		}

		var reqs []models.ShiftRequest
		if err := q.Order("created_at DESC, id DESC").Find(&reqs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"requests": reqs})
	}
}

// handleRequestDetail returns one request with its linked slot.
func handleRequestDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request id"})
			return
		}

		var req models.ShiftRequest
		if err := db.Preload("Slot").First(&req, uint(id)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, req)
	}
}
