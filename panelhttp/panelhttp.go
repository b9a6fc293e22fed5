// Package panelhttp exposes an interpreted panel and its capture session
// over HTTP, in the same route-table style as the rest of the module.
package panelhttp

import (
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"

	"goji.io/pat"

	"github.com/basler-lab/pylonpanel/capture"
	"github.com/basler-lab/pylonpanel/panel"
	"github.com/basler-lab/pylonpanel/pylon"
	"github.com/basler-lab/pylonpanel/server"
	"github.com/basler-lab/pylonpanel/server/middleware/locker"
)

// layoutT is the json body served for the whole panel
type layoutT struct {
	Features [][]string       `json:"features"`
	Actions  [][]string       `json:"actions"`
	Controls []*panel.Control `json:"controls"`
	Status   string           `json:"status"`
}

// userSetT is the json body for user set actions
type userSetT struct {
	Slot string `json:"slot"`
}

// HTTPPanel provides an HTTP interface to a panel and its capture
// session.  Capture actions take the lock so control writes bounce with
// 423 while the camera is streaming.
type HTTPPanel struct {
	Panel *panel.Panel

	Session *capture.Session

	Lock *locker.Locker

	RouteTable server.RouteTable
}

// NewHTTPPanel returns a new wrapper with the route table populated
func NewHTTPPanel(p *panel.Panel, s *capture.Session, l *locker.Locker) *HTTPPanel {
	h := &HTTPPanel{Panel: p, Session: s, Lock: l}
	h.RouteTable = server.RouteTable{
		pat.Get("/panel"):    h.GetPanel,
		pat.Get("/status"):   h.GetStatus,
		pat.Post("/refresh"): h.Refresh,

		pat.Get("/control/:name"):  h.GetControl,
		pat.Post("/control/:name"): h.SetControl,

		pat.Get("/user-sets"):             h.GetUserSets,
		pat.Post("/action/load-user-set"): h.LoadUserSet,
		pat.Post("/action/save-user-set"): h.SaveUserSet,

		pat.Post("/action/single-shot"):     h.SingleShot,
		pat.Post("/action/continuous-shot"): h.ContinuousShot,
		pat.Post("/action/stop"):            h.StopShot,
	}
	return h
}

// RT satisfies server.HTTPer
func (h *HTTPPanel) RT() server.RouteTable {
	return h.RouteTable
}

// GetPanel returns the arranged rows and every control on a GET request
func (h *HTTPPanel) GetPanel(w http.ResponseWriter, r *http.Request) {
	body := layoutT{
		Features: h.Panel.FeatureRows(),
		Actions:  h.Panel.ActionRows(),
		Controls: h.Panel.Controls(),
		Status:   h.Panel.Status(),
	}
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetStatus returns the status line on a GET request
func (h *HTTPPanel) GetStatus(w http.ResponseWriter, r *http.Request) {
	hp := server.HumanPayload{T: types.String, String: h.Panel.Status()}
	hp.EncodeAndRespond(w, r)
}

// Refresh reloads every control value from the camera on a POST request
func (h *HTTPPanel) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Panel.Refresh(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetControl returns one control's full state on a GET request
func (h *HTTPPanel) GetControl(w http.ResponseWriter, r *http.Request) {
	name := pat.Param(r, "name")
	c := h.Panel.Control(name)
	if c == nil {
		http.Error(w, fmt.Sprintf("no control named %q", name), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(c)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

/*SetControl updates one control's value on a POST request and applies it
to the camera immediately, as an interactive panel would.

The body schema depends on the control kind: {"f64": } for numeric
kinds, {"bool": } for booleans, {"str": } for choices.
*/
func (h *HTTPPanel) SetControl(w http.ResponseWriter, r *http.Request) {
	name := pat.Param(r, "name")
	c := h.Panel.Control(name)
	if c == nil {
		http.Error(w, fmt.Sprintf("no control named %q", name), http.StatusNotFound)
		return
	}
	var value interface{}
	switch {
	case c.Kind.Numeric():
		b := server.FloatT{}
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value = b.F64
	case c.Kind == panel.Boolean:
		b := server.BoolT{}
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value = b.Bool
	default:
		b := server.StrT{}
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value = b.Str
	}
	if err := h.Panel.SetValue(name, value); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Panel.ApplyPending(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetUserSets lists the selectable user set slots on a GET request
func (h *HTTPPanel) GetUserSets(w http.ResponseWriter, r *http.Request) {
	slots := pylon.UserSets()
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = string(s)
	}
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(out)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// LoadUserSet switches the camera to a stored slot on a POST request and
// refreshes the panel from it
func (h *HTTPPanel) LoadUserSet(w http.ResponseWriter, r *http.Request) {
	slot, ok := h.decodeSlot(w, r)
	if !ok {
		return
	}
	if err := h.Panel.LoadUserSet(slot); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// SaveUserSet stores the camera state into a slot on a POST request
func (h *HTTPPanel) SaveUserSet(w http.ResponseWriter, r *http.Request) {
	slot, ok := h.decodeSlot(w, r)
	if !ok {
		return
	}
	if err := h.Panel.SaveUserSet(slot); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *HTTPPanel) decodeSlot(w http.ResponseWriter, r *http.Request) (pylon.UserSet, bool) {
	b := userSetT{}
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	slot := pylon.UserSet(b.Slot)
	if !pylon.ValidUserSet(slot) {
		http.Error(w, fmt.Sprintf("unknown user set %q", b.Slot), http.StatusBadRequest)
		return "", false
	}
	return slot, true
}

// SingleShot grabs and records one frame on a POST request
func (h *HTTPPanel) SingleShot(w http.ResponseWriter, r *http.Request) {
	if !h.Lock.TryLock() {
		w.WriteHeader(http.StatusLocked)
		return
	}
	defer h.Lock.Unlock()
	if err := h.Session.SingleShot(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

/*ContinuousShot starts a streaming run on a POST request and returns
immediately with 202.  The run holds the lock until it ends, so control
writes bounce with 423 for its duration.

The buffering strategy may be selected with the strategy query
parameter: latest-image-only (default) or one-by-one.
*/
func (h *HTTPPanel) ContinuousShot(w http.ResponseWriter, r *http.Request) {
	strategy := pylon.LatestImageOnly
	switch r.URL.Query().Get("strategy") {
	case "", "latest-image-only":
	case "one-by-one":
		strategy = pylon.OneByOne
	default:
		http.Error(w, "strategy must be latest-image-only or one-by-one", http.StatusBadRequest)
		return
	}
	if !h.Lock.TryLock() {
		w.WriteHeader(http.StatusLocked)
		return
	}
	go func() {
		defer h.Lock.Unlock()
		err := h.Session.Continuous(strategy)
		if err != nil {
			h.Panel.SetStatus(fmt.Sprintf("streaming failed: %v", err))
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

// StopShot ends a streaming run on a POST request
func (h *HTTPPanel) StopShot(w http.ResponseWriter, r *http.Request) {
	h.Session.Stop()
	w.WriteHeader(http.StatusOK)
}
