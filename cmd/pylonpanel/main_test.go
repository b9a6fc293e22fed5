package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/basler-lab/pylonpanel/capture"
	"github.com/basler-lab/pylonpanel/display"
	"github.com/basler-lab/pylonpanel/panel"
	"github.com/basler-lab/pylonpanel/panelhttp"
	"github.com/basler-lab/pylonpanel/pylon"
	"github.com/basler-lab/pylonpanel/server/middleware/locker"
)

func testRouter(t *testing.T, mount string) (http.Handler, *locker.Locker) {
	t.Helper()
	cam := pylon.NewMockCamera()
	cfg := panel.Config{Features: []panel.FeatureDescriptor{
		{Name: "Gain", Kind: panel.NumericSlider},
	}}
	p, err := panel.Interpret(cfg, cam)
	if err != nil {
		t.Fatal(err)
	}
	lock := locker.New()
	sess := &capture.Session{Cam: cam, Panel: p, Surface: &display.FakeSurface{}}
	h := panelhttp.NewHTTPPanel(p, sess, lock)
	locker.Inject(h, lock)
	return buildRoutes(h, lock, mount), lock
}

// the assembled router must enforce the capture lock: control writes
// bounce with 423 while it is held, status stays readable
func TestRouterEnforcesLock(t *testing.T) {
	router, lock := testRouter(t, "/")
	lock.Lock()
	defer lock.Unlock()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/control/Gain", strings.NewReader(`{"f64": 5}`)))
	if rec.Code != http.StatusLocked {
		t.Errorf("control write while locked: status %d, expected 423", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status while locked: status %d, expected 200", rec.Code)
	}
}

func TestRouterServesUnlocked(t *testing.T) {
	router, _ := testRouter(t, "/")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/control/Gain", strings.NewReader(`{"f64": 5}`)))
	if rec.Code != http.StatusOK {
		t.Errorf("control write unlocked: status %d, expected 200", rec.Code)
	}
}

func TestRouterMountPrefix(t *testing.T) {
	router, _ := testRouter(t, "/camera")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/camera/panel", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("mounted panel route: status %d, expected 200", rec.Code)
	}
}

func TestSubmuxPath(t *testing.T) {
	cases := []struct{ in, expected string }{
		{"/", "/"},
		{"camera", "/camera"},
		{"/camera/", "/camera"},
	}
	for _, tc := range cases {
		if out := submuxPath(tc.in); out != tc.expected {
			t.Errorf("submuxPath(%q) = %q, expected %q", tc.in, out, tc.expected)
		}
	}
}
