// Package stellarium points an external planetarium viewer at each fired
// star over the Stellarium Remote Control HTTP API. Endpoint paths come
// from configuration; only the protocol sequence lives here.
//
// Per fired event: read the current field of view, slew to the star's J2000
// coordinates, try to select the star by identifier, then restore the field
// of view whether or not a selection matched. Every failure is a diagnostic;
// nothing here is allowed to surface as an error to the scheduler loop.
package stellarium

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/starchime/starchime/internal/scheduler"
	"github.com/starchime/starchime/pkg/catalog"
	"github.com/starchime/starchime/pkg/config"
)

// Sink is the planetarium sync dispatch target. The dispatcher may run
// HandleTransit concurrently for overlapping events.
type Sink struct {
	cfg    config.StellariumData
	client *http.Client
	logger *zap.SugaredLogger

	warnedUnreachable atomic.Bool
}

// New creates the planetarium sink. The HTTP timeout bounds every call so
// an unreachable viewer cannot hold up event dispatch.
func New(cfg *config.StellariumData, logger *zap.SugaredLogger) (*Sink, error) {
	timeout, err := cfg.HTTPTimeout()
	if err != nil {
		return nil, err
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid stellarium base URL %q: %w", cfg.BaseURL, err)
	}
	return &Sink{
		cfg:    *cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

// Name implements sinks.Sink.
func (s *Sink) Name() string { return "stellarium" }

// HandleTransit runs the four-step sync sequence for one fired star.
func (s *Sink) HandleTransit(ctx context.Context, f *scheduler.Firing) error {
	fov, haveFOV := s.currentFOV(ctx)

	if err := s.slew(ctx, f.Star.RADeg, f.Star.DecDeg); err != nil {
		// Without the slew there is nothing to select or restore.
		if s.warnedUnreachable.CompareAndSwap(false, true) {
			s.logger.Warnf("stellarium unreachable at %s: %v (is the Remote Control plugin running?)",
				s.cfg.BaseURL, err)
		} else {
			s.logger.Debugf("stellarium slew failed: %v", err)
		}
		return nil
	}
	s.warnedUnreachable.Store(false)

	matched := s.selectStar(ctx, f.Star)
	if matched == "" {
		// The view already points at the right coordinates; a missing
		// named selection is only a diagnostic.
		s.logger.Debugf("stellarium: no identifier match for %s", f.Star.DisplayName())
	} else {
		s.logger.Debugf("stellarium: selected %s as %q", f.Star.DisplayName(), matched)
	}

	if haveFOV {
		if err := s.restoreFOV(ctx, fov); err != nil {
			s.logger.Debugf("stellarium: restoring field of view: %v", err)
		}
	}
	return nil
}

// currentFOV reads the viewer's field of view from the status endpoint.
func (s *Sink) currentFOV(ctx context.Context) (float64, bool) {
	body, err := s.get(ctx, s.cfg.StatusPath, nil)
	if err != nil {
		s.logger.Debugf("stellarium: reading status: %v", err)
		return 0, false
	}
	var status struct {
		View struct {
			FOV float64 `json:"fov"`
		} `json:"view"`
	}
	if err := json.Unmarshal(body, &status); err != nil || status.View.FOV <= 0 {
		s.logger.Debugf("stellarium: unexpected status payload: %v", err)
		return 0, false
	}
	return status.View.FOV, true
}

// slew points the view at the J2000 coordinates by posting the unit vector.
func (s *Sink) slew(ctx context.Context, raDeg, decDeg float64) error {
	raRad := raDeg * math.Pi / 180
	decRad := decDeg * math.Pi / 180
	vec := [3]float64{
		math.Cos(decRad) * math.Cos(raRad),
		math.Cos(decRad) * math.Sin(raRad),
		math.Sin(decRad),
	}
	j2000, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	return s.postForm(ctx, s.cfg.ViewPath, url.Values{"j2000": {string(j2000)}})
}

// selectStar tries the star's identifier classes in fixed priority order:
// HIP, then HD, then HR, then the normalized proper or Bayer/Flamsteed
// name. Numeric classes are tried both spaced and unspaced. Returns the
// accepted query, or "" when nothing matched.
func (s *Sink) selectStar(ctx context.Context, star *catalog.Star) string {
	for _, q := range Candidates(star) {
		if s.attemptSelect(ctx, q) {
			return q
		}
	}
	return ""
}

// Candidates returns the ordered identifier queries for a star.
func Candidates(star *catalog.Star) []string {
	var out []string
	numeric := func(prefix string, n int) {
		if n > 0 {
			out = append(out, fmt.Sprintf("%s %d", prefix, n), fmt.Sprintf("%s%d", prefix, n))
		}
	}
	numeric("HIP", star.HIP)
	numeric("HD", star.HD)
	numeric("HR", star.HR)
	for _, name := range []string{star.Name, star.Bayer} {
		name = strings.Join(strings.Fields(name), " ")
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// attemptSelect resolves the query via the find endpoint and focuses the
// first match. A focus without a prior find hit is attempted as a fallback,
// matching viewer behavior for exact names.
func (s *Sink) attemptSelect(ctx context.Context, query string) bool {
	body, err := s.get(ctx, s.cfg.FindPath, url.Values{"str": {query}})
	if err != nil {
		s.logger.Debugf("stellarium: find %q: %v", query, err)
		return false
	}
	var matches []string
	if err := json.Unmarshal(body, &matches); err != nil {
		matches = nil
	}
	for _, m := range matches {
		if m != "" && s.focus(ctx, m) {
			return true
		}
	}
	if len(matches) == 0 {
		return s.focus(ctx, query)
	}
	return false
}

func (s *Sink) focus(ctx context.Context, target string) bool {
	err := s.postForm(ctx, s.cfg.FocusPath, url.Values{"target": {target}, "mode": {"mark"}})
	if err != nil {
		s.logger.Debugf("stellarium: focus %q: %v", target, err)
		return false
	}
	return true
}

// restoreFOV posts the previously captured field of view back to the viewer.
func (s *Sink) restoreFOV(ctx context.Context, fov float64) error {
	return s.postForm(ctx, s.cfg.FOVPath, url.Values{"fov": {fmt.Sprintf("%g", fov)}})
}

func (s *Sink) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := strings.TrimRight(s.cfg.BaseURL, "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s *Sink) postForm(ctx context.Context, path string, form url.Values) error {
	u := strings.TrimRight(s.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("POST %s returned status %d", path, resp.StatusCode)
	}
	return nil
}
