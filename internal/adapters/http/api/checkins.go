package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/courtmatch/internal/domain/model"
)

// CheckInDependencies defines the interface for play-day check-ins.
type CheckInDependencies interface {
	CheckIns(ctx context.Context, userID model.UserID, from, to time.Time) ([]model.CheckIn, error)
	SetCheckIn(ctx context.Context, userID model.UserID, date time.Time, patch *model.CheckInPatch) (model.CheckIn, error)
	ClearCheckIn(ctx context.Context, userID model.UserID, date time.Time) error
}

// CheckInsHandler serves the caller's check-in calendar.
type CheckInsHandler struct {
	deps CheckInDependencies
	now  func() time.Time
}

// NewCheckInsHandler creates a new check-ins handler.
func NewCheckInsHandler(deps CheckInDependencies) *CheckInsHandler {
	return &CheckInsHandler{deps: deps, now: time.Now}
}

type checkInResponse struct {
	Date      string  `json:"date"`
	Duration  int     `json:"duration"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

type checkInsResponse struct {
	CheckIns []checkInResponse `json:"checkins"`
}

type setCheckInResponse struct {
	OK    bool `json:"ok"`
	Value bool `json:"value"`
	checkInResponse
}

type clearCheckInResponse struct {
	OK    bool   `json:"ok"`
	Date  string `json:"date"`
	Value bool   `json:"value"`
}

func newCheckInResponse(c *model.CheckIn) checkInResponse {
	return checkInResponse{
		Date:      c.Date.Format(model.DateLayout),
		Duration:  c.DurationMinutes,
		StartTime: timeOfDayString(c.Start),
		EndTime:   timeOfDayString(c.End),
	}
}

func timeOfDayString(t *model.TimeOfDay) *string {
	if t == nil {
		return nil
	}
	s := t.String()
	return &s
}

// HandleCheckIns handles GET /checkins?month=YYYY-MM. The month defaults to
// the current one.
func (h *CheckInsHandler) HandleCheckIns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	me, err := callerID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	first, last := model.MonthBounds(h.now().UTC())
	if raw := r.URL.Query().Get("month"); raw != "" {
		if first, last, err = model.ParseMonth(raw); err != nil {
			writeServiceError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
	}

	list, err := h.deps.CheckIns(r.Context(), me, first, last)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := checkInsResponse{CheckIns: make([]checkInResponse, len(list))}
	for i := range list {
		out.CheckIns[i] = newCheckInResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// setCheckInRequest is the body of POST /checkins/set.
type setCheckInRequest struct {
	Date      string          `json:"date"`
	Value     json.RawMessage `json:"value"`
	Duration  optionalNumber  `json:"duration"`
	StartTime optionalNumber  `json:"start_time"`
	EndTime   optionalNumber  `json:"end_time"`
}

// HandleSetCheckIn handles POST /checkins/set. A truthy value creates or
// updates the day's check-in; anything else removes it.
func (h *CheckInsHandler) HandleSetCheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	me, err := callerID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req setCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		writeServiceError(w, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrBadRequest))
		return
	}
	if len(req.Value) == 0 || bytes.Equal(bytes.TrimSpace(req.Value), []byte("null")) {
		writeServiceError(w, fmt.Errorf("%w: value is required", ErrBadRequest))
		return
	}

	if !truthy(req.Value) {
		if err := h.deps.ClearCheckIn(r.Context(), me, date); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, clearCheckInResponse{OK: true, Date: date.Format(model.DateLayout), Value: false})
		return
	}

	patch, err := req.patch()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	c, err := h.deps.SetCheckIn(r.Context(), me, date, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setCheckInResponse{OK: true, Value: true, checkInResponse: newCheckInResponse(&c)})
}

func (req *setCheckInRequest) patch() (*model.CheckInPatch, error) {
	p := &model.CheckInPatch{SetStart: req.StartTime.set, SetEnd: req.EndTime.set}
	var err error
	if p.Start, err = parseOptionalTime(req.StartTime, "start_time"); err != nil {
		return nil, err
	}
	if p.End, err = parseOptionalTime(req.EndTime, "end_time"); err != nil {
		return nil, err
	}
	if req.Duration.set && req.Duration.raw != "" {
		n, err := strconv.Atoi(strings.TrimSpace(req.Duration.raw))
		if err != nil {
			return nil, fmt.Errorf("%w: duration must be an integer number of minutes", ErrBadRequest)
		}
		p.Duration = &n
	}
	return p, nil
}

// parseOptionalTime returns nil for an absent, null or empty time.
func parseOptionalTime(v optionalNumber, field string) (*model.TimeOfDay, error) {
	if !v.set || v.raw == "" {
		return nil, nil
	}
	t, err := model.ParseTimeOfDay(v.raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadRequest, field, err)
	}
	return &t, nil
}

// truthy reports whether a JSON value switches a day on. Booleans are taken
// as is; anything else must read as 1, true or yes.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	s := string(raw)
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		s = str
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
