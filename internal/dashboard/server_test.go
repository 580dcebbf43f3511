package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zulandar/shiftline/internal/clock"
	"github.com/zulandar/shiftline/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.ShiftSlot{}, &models.ShiftRequest{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	clk := clock.NewFixed(time.Date(2024, time.July, 1, 10, 0, 0, 0, time.UTC))
	srv := httptest.NewServer(NewRouter(db, clk))
	t.Cleanup(srv.Close)
	return srv, db
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]interface{} {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return body
}

func seedSlot(t *testing.T, db *gorm.DB, userID int64, day int, status string) {
	t.Helper()
	err := db.Create(&models.ShiftSlot{
		UserID: userID, LocationID: "loc-1",
		Date:     time.Date(2024, time.July, day, 0, 0, 0, 0, time.UTC),
		StartMin: 570, EndMin: 1080,
		Status: status, Source: "plan",
	}).Error
	if err != nil {
		t.Fatalf("seed slot: %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	body := getJSON(t, srv.URL+"/api/health", http.StatusOK)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestUserCalendar(t *testing.T) {
	srv, db := newTestServer(t)
	seedSlot(t, db, 1, 5, models.SlotApproved)
	seedSlot(t, db, 1, 5, models.SlotDraft)
	seedSlot(t, db, 1, 12, models.SlotDraft)
	seedSlot(t, db, 2, 20, models.SlotApproved)

	body := getJSON(t, srv.URL+"/api/users/1/calendar?year=2024&month=7", http.StatusOK)
	days := body["days"].(map[string]interface{})
	if days["5"] != models.SlotApproved {
		t.Errorf("day 5 = %v, want approved (priority merge)", days["5"])
	}
	if days["12"] != models.SlotDraft {
		t.Errorf("day 12 = %v, want draft", days["12"])
	}
	if _, ok := days["20"]; ok {
		t.Error("day 20 belongs to another user")
	}
}

func TestUserCalendar_DefaultsToCurrentMonth(t *testing.T) {
	srv, db := newTestServer(t)
	seedSlot(t, db, 1, 5, models.SlotApproved)

	body := getJSON(t, srv.URL+"/api/users/1/calendar", http.StatusOK)
	if body["year"].(float64) != 2024 || body["month"].(float64) != 7 {
		t.Errorf("defaulted to %v-%v, want 2024-7", body["year"], body["month"])
	}
}

func TestLocationCalendar(t *testing.T) {
	srv, db := newTestServer(t)
	seedSlot(t, db, 1, 5, models.SlotDraft)
	seedSlot(t, db, 2, 5, models.SlotApproved)

	body := getJSON(t, srv.URL+"/api/locations/loc-1/calendar?year=2024&month=7", http.StatusOK)
	days := body["days"].(map[string]interface{})
	if days["5"] != models.SlotApproved {
		t.Errorf("day 5 = %v, want approved across users", days["5"])
	}
}

func TestDaySlots(t *testing.T) {
	srv, db := newTestServer(t)
	seedSlot(t, db, 1, 5, models.SlotApproved)

	body := getJSON(t, srv.URL+"/api/locations/loc-1/day?date=2024-07-05", http.StatusOK)
	slots := body["slots"].([]interface{})
	if len(slots) != 1 {
		t.Fatalf("slots = %d, want 1", len(slots))
	}

	getJSON(t, srv.URL+"/api/locations/loc-1/day?date=tuesday", http.StatusBadRequest)
}

func TestRequestListAndDetail(t *testing.T) {
	srv, db := newTestServer(t)
	db.Create(&models.ShiftRequest{
		Type: models.RequestCover, InitiatorID: 1,
		Date:     time.Date(2024, time.July, 5, 0, 0, 0, 0, time.UTC),
		StartMin: 570, EndMin: 1080, LocationID: "loc-1",
		Status: models.StatusWaitTM,
	})
	db.Create(&models.ShiftRequest{
		Type: models.RequestSwap, InitiatorID: 2,
		Date:     time.Date(2024, time.July, 6, 0, 0, 0, 0, time.UTC),
		StartMin: 570, EndMin: 1080, LocationID: "loc-1",
		Status: models.StatusApproved,
	})

	body := getJSON(t, srv.URL+"/api/requests?status=wait_tm", http.StatusOK)
	reqs := body["requests"].([]interface{})
	if len(reqs) != 1 {
		t.Fatalf("filtered requests = %d, want 1", len(reqs))
	}

	detail := getJSON(t, srv.URL+"/api/requests/1", http.StatusOK)
	if detail["Type"] != models.RequestCover {
		t.Errorf("Type = %v, want cover", detail["Type"])
	}

	getJSON(t, srv.URL+"/api/requests/99", http.StatusNotFound)
}
