package stellarium

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/starchime/starchime/internal/scheduler"
	"github.com/starchime/starchime/pkg/catalog"
	"github.com/starchime/starchime/pkg/config"
)

// fakeViewer records the remote-control calls a sync sequence makes.
type fakeViewer struct {
	mu       sync.Mutex
	fov      float64
	finds    []string // find queries in order
	focused  []string // focus targets in order
	slews    []string // j2000 vectors posted
	restored []string // fov values posted back
	known    map[string][]string
}

func (v *fakeViewer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/main/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"view":{"fov":%g}}`, v.fov)
	})
	mux.HandleFunc("/api/main/view", func(w http.ResponseWriter, r *http.Request) {
		v.mu.Lock()
		v.slews = append(v.slews, r.FormValue("j2000"))
		v.mu.Unlock()
	})
	mux.HandleFunc("/api/objects/find", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("str")
		v.mu.Lock()
		v.finds = append(v.finds, q)
		matches := v.known[q]
		v.mu.Unlock()
		if matches == nil {
			matches = []string{}
		}
		fmt.Fprint(w, toJSONList(matches))
	})
	mux.HandleFunc("/api/main/focus", func(w http.ResponseWriter, r *http.Request) {
		target := r.FormValue("target")
		v.mu.Lock()
		v.focused = append(v.focused, target)
		known := len(v.known[target]) > 0 || containsTarget(v.known, target)
		v.mu.Unlock()
		if !known {
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/api/main/fov", func(w http.ResponseWriter, r *http.Request) {
		v.mu.Lock()
		v.restored = append(v.restored, r.FormValue("fov"))
		v.mu.Unlock()
	})
	return mux
}

func containsTarget(known map[string][]string, target string) bool {
	for _, matches := range known {
		for _, m := range matches {
			if m == target {
				return true
			}
		}
	}
	return false
}

func toJSONList(items []string) string {
	out := "["
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%q", s)
	}
	return out + "]"
}

func newTestSink(t *testing.T, baseURL string) *Sink {
	t.Helper()
	cfg := &config.StellariumData{BaseURL: baseURL, Timeout: "2s"}
	data := config.ConfigData{Sinks: config.SinksData{Stellarium: cfg}}
	data.ApplyDefaults()
	s, err := New(cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func firingFor(star *catalog.Star) *scheduler.Firing {
	return &scheduler.Firing{Star: star}
}

func TestHandleTransitFullSequence(t *testing.T) {
	viewer := &fakeViewer{
		fov:   60,
		known: map[string][]string{"HIP 91262": {"Vega"}},
	}
	srv := httptest.NewServer(viewer.handler())
	defer srv.Close()

	sink := newTestSink(t, srv.URL)
	star := &catalog.Star{Name: "Vega", HIP: 91262, RADeg: 279.234, DecDeg: 38.784}

	if err := sink.HandleTransit(context.Background(), firingFor(star)); err != nil {
		t.Fatalf("HandleTransit: %v", err)
	}

	if len(viewer.slews) != 1 {
		t.Fatalf("slews = %d, expected 1", len(viewer.slews))
	}
	if len(viewer.finds) == 0 || viewer.finds[0] != "HIP 91262" {
		t.Errorf("first find query = %v, expected HIP 91262", viewer.finds)
	}
	if len(viewer.focused) != 1 || viewer.focused[0] != "Vega" {
		t.Errorf("focused = %v, expected [Vega]", viewer.focused)
	}
	// The field of view read at the start comes back unchanged at the end.
	if !reflect.DeepEqual(viewer.restored, []string{"60"}) {
		t.Errorf("restored fov = %v, expected [60]", viewer.restored)
	}
}

func TestHandleTransitNoMatchIsNotFatal(t *testing.T) {
	viewer := &fakeViewer{fov: 42.5, known: map[string][]string{}}
	srv := httptest.NewServer(viewer.handler())
	defer srv.Close()

	sink := newTestSink(t, srv.URL)
	star := &catalog.Star{Name: "Nonesuch", HIP: 1, HD: 2, HR: 3, RADeg: 10, DecDeg: 10}

	if err := sink.HandleTransit(context.Background(), firingFor(star)); err != nil {
		t.Fatalf("HandleTransit returned error on no match: %v", err)
	}

	// Every identifier class was tried, in priority order.
	want := []string{"HIP 1", "HIP1", "HD 2", "HD2", "HR 3", "HR3", "Nonesuch"}
	if !reflect.DeepEqual(viewer.finds, want) {
		t.Errorf("find order = %v, expected %v", viewer.finds, want)
	}
	// The fov restore still happens with nothing selected.
	if !reflect.DeepEqual(viewer.restored, []string{"42.5"}) {
		t.Errorf("restored fov = %v, expected [42.5]", viewer.restored)
	}
}

func TestHandleTransitUnreachableViewer(t *testing.T) {
	sink := newTestSink(t, "http://127.0.0.1:1") // nothing listens here
	star := &catalog.Star{Name: "Vega", RADeg: 279.234, DecDeg: 38.784}

	if err := sink.HandleTransit(context.Background(), firingFor(star)); err != nil {
		t.Fatalf("unreachable viewer must not surface an error, got %v", err)
	}
	// Repeat calls stay quiet too.
	if err := sink.HandleTransit(context.Background(), firingFor(star)); err != nil {
		t.Fatalf("second call errored: %v", err)
	}
}

func TestHandleTransitConcurrent(t *testing.T) {
	// The dispatcher runs overlapping events on separate goroutines; the
	// unreachable-viewer bookkeeping must hold up under that.
	sink := newTestSink(t, "http://127.0.0.1:1")
	star := &catalog.Star{Name: "Vega", RADeg: 279.234, DecDeg: 38.784}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sink.HandleTransit(context.Background(), firingFor(star)); err != nil {
				t.Errorf("concurrent HandleTransit: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name     string
		star     catalog.Star
		expected []string
	}{
		{
			"all identifier classes",
			catalog.Star{Name: "Sirius", Bayer: "Alp CMa", HR: 2491, HIP: 32349, HD: 48915},
			[]string{"HIP 32349", "HIP32349", "HD 48915", "HD48915", "HR 2491", "HR2491", "Sirius", "Alp CMa"},
		},
		{
			"name only, whitespace normalized",
			catalog.Star{Name: "  Barnard's   Star "},
			[]string{"Barnard's Star"},
		},
		{
			"numeric only",
			catalog.Star{HD: 172167},
			[]string{"HD 172167", "HD172167"},
		},
		{
			"nothing",
			catalog.Star{},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Candidates(&tt.star)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Candidates() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestNewRejectsBadTimeout(t *testing.T) {
	cfg := &config.StellariumData{BaseURL: "http://localhost:8090", Timeout: "soon"}
	if _, err := New(cfg, zap.NewNop().Sugar()); err == nil {
		t.Error("expected error for unparseable timeout")
	}
}
