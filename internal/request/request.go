// Package request implements the approval lifecycle for cover and swap
// requests, keeping the linked shift slot's status synchronized.
package request

import (
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/shiftline/internal/clock"
	"github.com/zulandar/shiftline/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned for an unknown request id.
	ErrNotFound = errors.New("request: not found")
	// ErrSlotNotFound is returned when swap creation finds no matching slot.
	ErrSlotNotFound = errors.New("request: no matching slot for swap")
	// ErrSlotBusy is returned when the matched slot is already parked
	// under another live swap request.
	ErrSlotBusy = errors.New("request: slot already has a pending swap")
	// ErrInvalidTransition is returned for a disallowed status change,
	// including any transition out of a terminal state.
	ErrInvalidTransition = errors.New("request: invalid status transition")
)

// ValidTransitions maps each request status to its valid next statuses.
// Statuses with no entry are terminal and never transition further.
var ValidTransitions = map[string][]string{
	models.StatusInitiated: {models.StatusWaitPeer, models.StatusWaitTM, models.StatusCanceled},
	models.StatusWaitPeer:  {models.StatusWaitTM, models.StatusRejected, models.StatusCanceled, models.StatusExpired},
	models.StatusWaitTM: {
		models.StatusApprovedTM, models.StatusApproved,
		models.StatusRejected, models.StatusRejectedTM,
		models.StatusCanceled, models.StatusExpired,
	},
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status string) bool {
	_, ok := ValidTransitions[status]
	return !ok
}

func isValidTransition(from, to string) bool {
	for _, v := range ValidTransitions[from] {
		if v == to {
			return true
		}
	}
	return false
}

// Notifier delivers fire-and-forget messages to the chat transport.
// Delivery failures are the port's problem, never the caller's.
type Notifier interface {
	Notify(userID int64, text string, actions ...string)
}

// Service drives request lifecycle transitions.
type Service struct {
	db     *gorm.DB
	clock  clock.Clock
	notify Notifier
}

// ServiceOpts holds parameters for creating a Service.
type ServiceOpts struct {
	DB       *gorm.DB
	Clock    clock.Clock // defaults to the local system clock
	Notifier Notifier    // optional; nil disables notifications
}

// NewService creates a Service.
func NewService(opts ServiceOpts) (*Service, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("request: service: db is required")
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New(nil)
	}
	return &Service{db: opts.DB, clock: clk, notify: opts.Notifier}, nil
}

// CoverOpts holds parameters for creating a cover request.
type CoverOpts struct {
	InitiatorID int64
	Date        time.Time
	StartMin    int
	EndMin      int
	LocationID  string
	Comment     string
}

// CreateCover creates a cover request. There is no peer step: the
// request goes straight to waiting for the manager.
func (s *Service) CreateCover(opts CoverOpts) (*models.ShiftRequest, error) {
	if opts.EndMin <= opts.StartMin {
		return nil, fmt.Errorf("request: cover: end %d must be after start %d", opts.EndMin, opts.StartMin)
	}

	req := models.ShiftRequest{
		Type:        models.RequestCover,
		InitiatorID: opts.InitiatorID,
		Date:        clock.Midnight(opts.Date),
		StartMin:    opts.StartMin,
		EndMin:      opts.EndMin,
		LocationID:  opts.LocationID,
		Status:      models.StatusWaitTM,
		Comment:     opts.Comment,
	}
	if err := s.db.Create(&req).Error; err != nil {
		return nil, fmt.Errorf("request: create cover: %w", err)
	}

	s.notifyManagers(fmt.Sprintf("New cover request #%d for %s", req.ID, req.Date.Format("02.01.2006")),
		fmt.Sprintf("approve:%d", req.ID), fmt.Sprintf("reject:%d", req.ID))
	return &req, nil
}

// SwapOpts holds parameters for creating a swap request.
type SwapOpts struct {
	InitiatorID int64
	PeerID      int64
	Date        time.Time
	StartMin    int
	EndMin      int
	LocationID  string
	Comment     string
}

// CreateSwap creates a swap request against the initiator's existing
// slot for the given date/time/location. The slot is parked in
// pending_swap and linked to the request; the request waits for the
// peer. Fails with ErrSlotNotFound if no such slot exists, and with
// ErrSlotBusy if the slot is already held by another swap request.
func (s *Service) CreateSwap(opts SwapOpts) (*models.ShiftRequest, error) {
	if opts.EndMin <= opts.StartMin {
		return nil, fmt.Errorf("request: swap: end %d must be after start %d", opts.EndMin, opts.StartMin)
	}

	date := clock.Midnight(opts.Date)
	var req models.ShiftRequest

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var slot models.ShiftSlot
		result := tx.Where(
			"user_id = ? AND date = ? AND start_min = ? AND end_min = ? AND location_id = ? AND status <> ?",
			opts.InitiatorID, date, opts.StartMin, opts.EndMin, opts.LocationID, models.SlotCanceled,
		).First(&slot)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrSlotNotFound
		}
		if result.Error != nil {
			return fmt.Errorf("find slot: %w", result.Error)
		}
		// A parked slot belongs to exactly one live request; parking it
		// again would steal the link and corrupt prev_status.
		if slot.Status == models.SlotPendingSwap {
			return ErrSlotBusy
		}

		req = models.ShiftRequest{
			Type:        models.RequestSwap,
			InitiatorID: opts.InitiatorID,
			FromUserID:  &opts.InitiatorID,
			ToUserID:    &opts.PeerID,
			Date:        date,
			StartMin:    opts.StartMin,
			EndMin:      opts.EndMin,
			LocationID:  opts.LocationID,
			Status:      models.StatusWaitPeer,
			Comment:     opts.Comment,
			SlotID:      &slot.ID,
		}
		if err := tx.Create(&req).Error; err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		if err := tx.Model(&models.ShiftSlot{}).Where("id = ?", slot.ID).
			Updates(map[string]interface{}{
				"prev_status": slot.Status,
				"status":      models.SlotPendingSwap,
				"request_id":  req.ID,
			}).Error; err != nil {
			return fmt.Errorf("park slot: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) || errors.Is(err, ErrSlotBusy) {
			return nil, err
		}
		return nil, fmt.Errorf("request: create swap: %w", err)
	}

	if s.notify != nil {
		s.notify.Notify(opts.PeerID,
			fmt.Sprintf("Swap request #%d: take the %s shift on %s?", req.ID, opts.LocationID, date.Format("02.01.2006")),
			fmt.Sprintf("accept:%d", req.ID), fmt.Sprintf("decline:%d", req.ID))
	}
	return &req, nil
}

// PeerAccept records the proposed peer's acceptance; the request moves
// on to the manager.
func (s *Service) PeerAccept(requestID uint, peerID int64) (*models.ShiftRequest, error) {
	req, err := s.Get(requestID)
	if err != nil {
		return nil, err
	}
	if req.ToUserID == nil || *req.ToUserID != peerID {
		return nil, fmt.Errorf("request: %d: user %d is not the proposed peer", requestID, peerID)
	}
	if err := s.transition(req, models.StatusWaitTM, nil); err != nil {
		return nil, err
	}

	s.notifyManagers(fmt.Sprintf("Swap request #%d accepted by peer, awaiting approval", req.ID),
		fmt.Sprintf("approve:%d", req.ID), fmt.Sprintf("reject:%d", req.ID))
	return req, nil
}

// PeerDecline records the peer's refusal and releases the slot back to
// its prior status.
func (s *Service) PeerDecline(requestID uint, peerID int64) (*models.ShiftRequest, error) {
	req, err := s.Get(requestID)
	if err != nil {
		return nil, err
	}
	if req.ToUserID == nil || *req.ToUserID != peerID {
		return nil, fmt.Errorf("request: %d: user %d is not the proposed peer", requestID, peerID)
	}
	if err := s.transition(req, models.StatusRejected, s.releaseSlot); err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.Notify(req.InitiatorID, fmt.Sprintf("Swap request #%d was declined by the peer", req.ID))
	}
	return req, nil
}

// Approve records manager approval. A swap resolves to APPROVED_TM and
// its slot becomes approved with the swap link cleared; a cover
// resolves to APPROVED.
func (s *Service) Approve(requestID uint) (*models.ShiftRequest, error) {
	req, err := s.Get(requestID)
	if err != nil {
		return nil, err
	}

	to := models.StatusApproved
	var slotFn func(tx *gorm.DB, req *models.ShiftRequest) error
	if req.Type == models.RequestSwap {
		to = models.StatusApprovedTM
		slotFn = s.approveSlot
	}
	if err := s.transition(req, to, slotFn); err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.Notify(req.InitiatorID, fmt.Sprintf("Request #%d approved", req.ID))
		if req.ToUserID != nil {
			s.notify.Notify(*req.ToUserID, fmt.Sprintf("Request #%d approved", req.ID))
		}
	}
	return req, nil
}

// Reject records manager rejection and releases any held slot. A swap
// resolves to REJECTED_TM, a cover to REJECTED.
func (s *Service) Reject(requestID uint) (*models.ShiftRequest, error) {
	req, err := s.Get(requestID)
	if err != nil {
		return nil, err
	}

	to := models.StatusRejected
	if req.Type == models.RequestSwap {
		to = models.StatusRejectedTM
	}
	if err := s.transition(req, to, s.releaseSlot); err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.Notify(req.InitiatorID, fmt.Sprintf("Request #%d rejected by the manager", req.ID))
	}
	return req, nil
}

// Cancel moves any non-terminal request to CANCELED and releases any
// held slot. Initiator and manager cancellation take the same path.
func (s *Service) Cancel(requestID uint) (*models.ShiftRequest, error) {
	req, err := s.Get(requestID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(req, models.StatusCanceled, s.releaseSlot); err != nil {
		return nil, err
	}
	return req, nil
}

// ExpireStale expires WAIT_* requests untouched past the retention
// horizon, releasing their slots. Returns how many were expired.
func (s *Service) ExpireStale(retention time.Duration) (int, error) {
	cutoff := s.clock.Now().Add(-retention)

	var stale []models.ShiftRequest
	if err := s.db.Where("status IN ? AND updated_at < ?",
		[]string{models.StatusWaitPeer, models.StatusWaitTM}, cutoff).
		Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("request: expire: load stale: %w", err)
	}

	expired := 0
	for i := range stale {
		if err := s.transition(&stale[i], models.StatusExpired, s.releaseSlot); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// Get retrieves a request by id.
func (s *Service) Get(requestID uint) (*models.ShiftRequest, error) {
	var req models.ShiftRequest
	if err := s.db.First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, requestID)
		}
		return nil, fmt.Errorf("request: get %d: %w", requestID, err)
	}
	return &req, nil
}

// ListFilters holds optional filters for listing requests.
type ListFilters struct {
	Status      string
	Type        string
	InitiatorID int64
}

// List returns requests matching the filters, newest first.
func (s *Service) List(filters ListFilters) ([]models.ShiftRequest, error) {
	q := s.db.Model(&models.ShiftRequest{})
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Type != "" {
		q = q.Where("type = ?", filters.Type)
	}
	if filters.InitiatorID != 0 {
		q = q.Where("initiator_id = ?", filters.InitiatorID)
	}

	var reqs []models.ShiftRequest
	if err := q.Order("created_at DESC, id DESC").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("request: list: %w", err)
	}
	return reqs, nil
}

// transition validates and applies a status change, running slotFn in
// the same transaction when provided. UpdatedAt is bumped on every
// transition; terminal transitions also stamp ResolvedAt.
func (s *Service) transition(req *models.ShiftRequest, to string, slotFn func(tx *gorm.DB, req *models.ShiftRequest) error) error {
	if !isValidTransition(req.Status, to) {
		return fmt.Errorf("%w: %q -> %q (request %d)", ErrInvalidTransition, req.Status, to, req.ID)
	}

	now := s.clock.Now()
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	if IsTerminal(to) {
		updates["resolved_at"] = now
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ShiftRequest{}).Where("id = ?", req.ID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		if slotFn != nil {
			if err := slotFn(tx, req); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("request: transition %d to %s: %w", req.ID, to, err)
	}

	req.Status = to
	req.UpdatedAt = now
	if IsTerminal(to) {
		req.ResolvedAt = &now
	}
	return nil
}

// releaseSlot restores a parked slot to its pre-swap status and clears
// the request link. No-op for requests that hold no slot.
func (s *Service) releaseSlot(tx *gorm.DB, req *models.ShiftRequest) error {
	if req.SlotID == nil {
		return nil
	}
	var slot models.ShiftSlot
	if err := tx.First(&slot, *req.SlotID).Error; err != nil {
		return fmt.Errorf("load slot %d: %w", *req.SlotID, err)
	}
	if slot.Status != models.SlotPendingSwap {
		return nil
	}
	restored := slot.PrevStatus
	if restored == "" {
		restored = models.SlotDraft
	}
	if err := tx.Model(&models.ShiftSlot{}).Where("id = ?", slot.ID).
		Updates(map[string]interface{}{
			"status":      restored,
			"prev_status": "",
			"request_id":  nil,
		}).Error; err != nil {
		return fmt.Errorf("release slot %d: %w", slot.ID, err)
	}
	return nil
}

// approveSlot finalizes a swap: the slot passes to the peer, becomes
// approved, and the swap link is cleared.
func (s *Service) approveSlot(tx *gorm.DB, req *models.ShiftRequest) error {
	if req.SlotID == nil {
		return nil
	}
	updates := map[string]interface{}{
		"status":      models.SlotApproved,
		"prev_status": "",
		"request_id":  nil,
	}
	if req.ToUserID != nil {
		updates["user_id"] = *req.ToUserID
	}
	if err := tx.Model(&models.ShiftSlot{}).Where("id = ?", *req.SlotID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("approve slot %d: %w", *req.SlotID, err)
	}
	return nil
}

// notifyManagers fans a message out to all approved managers.
func (s *Service) notifyManagers(text string, actions ...string) {
	if s.notify == nil {
		return
	}
	var managers []models.User
	if err := s.db.Where("role = ? AND status = ?", models.RoleManager, models.AccountApproved).
		Find(&managers).Error; err != nil {
		return
	}
	for _, m := range managers {
		s.notify.Notify(m.ID, text, actions...)
	}
}
