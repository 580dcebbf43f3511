package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/zulandar/shiftline/internal/clock"
	"github.com/zulandar/shiftline/internal/models"
	"github.com/zulandar/shiftline/internal/request"
	"gorm.io/gorm"
)

func newCommandHarness(t *testing.T) (*CommandHandler, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	clk := clock.NewFixed(time.Date(2024, time.July, 1, 10, 0, 0, 0, time.UTC))
	requests, err := request.NewService(request.ServiceOpts{DB: db, Clock: clk})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h, err := NewCommandHandler(CommandHandlerOpts{DB: db, Clock: clk, Requests: requests})
	if err != nil {
		t.Fatalf("NewCommandHandler: %v", err)
	}
	return h, db
}

func manager() *models.User {
	return &models.User{ID: 10, DisplayName: "Marta", Role: models.RoleManager, Status: models.AccountApproved}
}

func seller() *models.User {
	return &models.User{ID: 1, DisplayName: "Anya", Role: models.RoleSeller, Status: models.AccountApproved}
}

func TestExecute_UnknownCommand(t *testing.T) {
	h, _ := newCommandHarness(t)
	if _, err := h.Execute(seller(), "interpretive dance"); err != errUnknownCommand {
		t.Errorf("err = %v, want errUnknownCommand", err)
	}
}

func TestExecute_ManagerGate(t *testing.T) {
	h, _ := newCommandHarness(t)
	for _, cmd := range []string{"requests", "approve 1", "reject 1", "free 05.07 09:00 18:00", "staff", "day loc-1 05.07"} {
		reply, err := h.Execute(seller(), cmd)
		if err != nil {
			t.Fatalf("Execute(%q): %v", cmd, err)
		}
		if !strings.Contains(reply, "managers") {
			t.Errorf("Execute(%q) = %q, want manager gate", cmd, reply)
		}
	}
}

func TestRequestsListAndDecide(t *testing.T) {
	h, db := newCommandHarness(t)
	db.Create(&models.ShiftRequest{
		Type: models.RequestCover, InitiatorID: 1,
		Date:     time.Date(2024, time.July, 5, 0, 0, 0, 0, time.UTC),
		StartMin: 570, EndMin: 1080, LocationID: "loc-1",
		Status: models.StatusWaitTM,
	})

	reply, err := h.Execute(manager(), "requests")
	if err != nil {
		t.Fatalf("requests: %v", err)
	}
	if !strings.Contains(reply, "#1 cover") || !strings.Contains(reply, "09:30–18:00") {
		t.Errorf("reply = %q, want listed request", reply)
	}

	reply, err = h.Execute(manager(), "approve 1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !strings.Contains(reply, "approved") {
		t.Errorf("reply = %q, want approved", reply)
	}

	reply, _ = h.Execute(manager(), "requests")
	if !strings.Contains(reply, "No requests") {
		t.Errorf("reply = %q, want empty list", reply)
	}
}

func TestCancelCommand_OwnershipGate(t *testing.T) {
	h, db := newCommandHarness(t)
	db.Create(&models.ShiftRequest{
		Type: models.RequestCover, InitiatorID: 1,
		Date:     time.Date(2024, time.July, 5, 0, 0, 0, 0, time.UTC),
		StartMin: 570, EndMin: 1080, LocationID: "loc-1",
		Status: models.StatusWaitTM,
	})

	stranger := &models.User{ID: 5, Role: models.RoleSeller, Status: models.AccountApproved}
	reply, err := h.Execute(stranger, "cancel 1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !strings.Contains(reply, "author or a manager") {
		t.Errorf("reply = %q, want ownership gate", reply)
	}

	reply, err = h.Execute(seller(), "cancel 1")
	if err != nil {
		t.Fatalf("cancel by author: %v", err)
	}
	if !strings.Contains(reply, "canceled") {
		t.Errorf("reply = %q, want cancellation", reply)
	}

	var req models.ShiftRequest
	db.First(&req)
	if req.Status != models.StatusCanceled {
		t.Errorf("status = %q, want canceled", req.Status)
	}
}

func TestFreeCommand(t *testing.T) {
	h, db := newCommandHarness(t)
	db.Create(&models.User{ID: 1, DisplayName: "Anya", Role: models.RoleSeller, Status: models.AccountApproved})
	db.Create(&models.User{ID: 2, DisplayName: "Boris", Role: models.RoleSeller, Status: models.AccountApproved})
	db.Create(&models.ShiftSlot{
		UserID: 2, LocationID: "loc-1",
		Date:     time.Date(2024, time.July, 5, 0, 0, 0, 0, time.UTC),
		StartMin: 540, EndMin: 1080,
		Status: models.SlotApproved, Source: "plan",
	})

	reply, err := h.Execute(manager(), "free 05.07 10:00 14:00")
	if err != nil {
		t.Fatalf("free: %v", err)
	}
	if !strings.Contains(reply, "Anya") || strings.Contains(reply, "Boris") {
		t.Errorf("reply = %q, want Anya free and Boris busy", reply)
	}

	reply, _ = h.Execute(manager(), "free 05.07")
	if !strings.Contains(reply, "Usage") {
		t.Errorf("reply = %q, want usage hint", reply)
	}
}

func TestDayCommand(t *testing.T) {
	h, db := newCommandHarness(t)
	db.Create(&models.ShiftSlot{
		UserID: 1, LocationID: "loc-1",
		Date:     time.Date(2024, time.July, 5, 0, 0, 0, 0, time.UTC),
		StartMin: 570, EndMin: 1080,
		Status: models.SlotApproved, Source: "plan",
	})

	reply, err := h.Execute(manager(), "day loc-1 05.07")
	if err != nil {
		t.Fatalf("day: %v", err)
	}
	if !strings.Contains(reply, "09:30–18:00 user 1") {
		t.Errorf("reply = %q, want the slot line", reply)
	}

	reply, _ = h.Execute(manager(), "day loc-2 05.07")
	if !strings.Contains(reply, "No slots") {
		t.Errorf("reply = %q, want empty day", reply)
	}
}

func TestStaffCommands(t *testing.T) {
	h, db := newCommandHarness(t)
	db.Create(&models.User{ID: 7, DisplayName: "Vera", Role: models.RoleSeller, Status: models.AccountPending})

	reply, err := h.Execute(manager(), "staff")
	if err != nil {
		t.Fatalf("staff: %v", err)
	}
	if !strings.Contains(reply, "Vera") {
		t.Errorf("reply = %q, want pending account listed", reply)
	}

	if _, err := h.Execute(manager(), "staff approve 7"); err != nil {
		t.Fatalf("staff approve: %v", err)
	}
	var user models.User
	db.First(&user, 7)
	if user.Status != models.AccountApproved {
		t.Errorf("status = %q, want approved", user.Status)
	}

	if _, err := h.Execute(manager(), "staff role 7 senior"); err != nil {
		t.Fatalf("staff role: %v", err)
	}
	db.First(&user, 7)
	if user.Role != models.RoleSenior {
		t.Errorf("role = %q, want senior", user.Role)
	}

	reply, _ = h.Execute(manager(), "staff")
	if !strings.Contains(reply, "No accounts") {
		t.Errorf("reply = %q, want empty pending list", reply)
	}
}
