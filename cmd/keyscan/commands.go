package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/banshee-data/keyscan/internal/db"
	"github.com/banshee-data/keyscan/internal/keystore"
	"github.com/banshee-data/keyscan/internal/keytemplate"
	"github.com/banshee-data/keyscan/internal/metrics"
	"github.com/banshee-data/keyscan/internal/monitoring"
	"github.com/banshee-data/keyscan/internal/pointcloud"
	"github.com/banshee-data/keyscan/internal/report"
	"github.com/banshee-data/keyscan/internal/security"
	"github.com/banshee-data/keyscan/internal/session"
	"github.com/banshee-data/keyscan/internal/timeutil"
)

// errNoMatch is returned by verify when no frame confirmed the key.
var errNoMatch = errors.New("key not recognised")

type app struct {
	mgr       *session.Manager
	registry  *prometheus.Registry
	threshold float64
	out       io.Writer
}

func newApp(ctx context.Context, cfg session.Config, database *db.DB, out io.Writer) (*app, error) {
	mgr, err := session.NewManager(cfg, keystore.NewSQLiteStore(database.DB), timeutil.RealClock{})
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	mgr.SetObserver(metrics.New(reg))
	if err := mgr.LoadKeys(ctx); err != nil {
		return nil, err
	}
	return &app{mgr: mgr, registry: reg, threshold: cfg.MatchThreshold, out: out}, nil
}

func (a *app) list() error {
	keys := a.mgr.Keys()
	if len(keys) == 0 {
		fmt.Fprintln(a.out, "no enrolled keys")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tENROLLED\tVECTORS\tDIM")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", k.ID, k.EnrolledAt.Format(time.RFC3339), len(k.FeatureVectors), k.Dimension())
	}
	return tw.Flush()
}

func (a *app) show(args []string) error {
	id, err := parseKeyID(args)
	if err != nil {
		return err
	}
	k, ok := a.mgr.Key(id)
	if !ok {
		return fmt.Errorf("%w: %s", session.ErrKeyNotFound, id)
	}
	data, err := keytemplate.Marshal(k)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "%s\n", data)
	return err
}

func (a *app) remove(ctx context.Context, args []string) error {
	id, err := parseKeyID(args)
	if err != nil {
		return err
	}
	if err := a.mgr.RemoveKey(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed %s\n", id)
	return nil
}

func (a *app) enroll(ctx context.Context, args []string) error {
	fs := newFlagSet("enroll")
	framesPath := fs.String("frames", "", "JSON-lines frame recording")
	if err := fs.Parse(args); err != nil {
		return err
	}
	frames, err := readFrames(*framesPath)
	if err != nil {
		return err
	}

	// Recordings without a selection tick capture the whole view.
	var roi *pointcloud.ROI
	if !hasSelection(frames) {
		roi = &pointcloud.ROI{Width: 1, Height: 1}
	}
	s, err := a.mgr.StartEnrollment(roi, func(p session.EnrollmentProgress) {
		status := "rejected"
		if p.Accepted {
			status = "accepted"
		}
		fmt.Fprintf(a.out, "%-18s %-8s %2d frames %3.0f%%  %s\n", p.State, status, p.FrameCount, p.Progress*100, p.Message)
	})
	if err != nil {
		return err
	}

	for _, rf := range frames {
		if err := ctx.Err(); err != nil {
			a.mgr.AbortEnrollment()
			return err
		}
		if _, err := s.OnFrame(rf.Frame, rf.Selection); err != nil {
			a.mgr.AbortEnrollment()
			return err
		}
	}

	tmpl, err := a.mgr.CompleteEnrollment(ctx)
	if err != nil {
		a.mgr.AbortEnrollment()
		return err
	}
	fmt.Fprintf(a.out, "enrolled %s with %d views\n", tmpl.ID, len(tmpl.FeatureVectors))
	return nil
}

func (a *app) verify(ctx context.Context, args []string) error {
	fs := newFlagSet("verify")
	keyID := fs.String("key", "", "enrolled key id")
	framesPath := fs.String("frames", "", "JSON-lines frame recording")
	all := fs.Bool("all", false, "score every frame instead of stopping at the first confirmed match")
	plotPath := fs.String("plot", "", "write a PNG score plot to this path")
	chartPath := fs.String("chart", "", "write an HTML score chart to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := uuid.Parse(*keyID)
	if err != nil {
		return fmt.Errorf("invalid -key %q: %w", *keyID, err)
	}
	for _, p := range []string{*plotPath, *chartPath} {
		if p == "" {
			continue
		}
		if err := security.ValidateExportPath(p); err != nil {
			return err
		}
	}
	frames, err := readFrames(*framesPath)
	if err != nil {
		return err
	}

	trace := report.NewScoreTrace("keyscan verify "+id.String(), a.threshold)
	s, err := a.mgr.StartVerification(ctx, id, func(r session.ScanResult) {
		trace.Add(r.ConfidenceScore, r.IsMatch, string(r.ErrorReason))
		reason := string(r.ErrorReason)
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(a.out, "match=%-5t score=%.4f reason=%s\n", r.IsMatch, r.ConfidenceScore, reason)
	})
	if err != nil {
		return err
	}
	defer a.mgr.StopVerification()
	defer func() {
		if err := writeReports(trace, *plotPath, *chartPath); err != nil {
			monitoring.Logf("write score report: %v", err)
		}
	}()

	matched := false
	for _, rf := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := s.OnFrame(rf.Frame)
		if err != nil {
			return err
		}
		if r.IsMatch {
			matched = true
			if !*all {
				break
			}
		}
	}
	if !matched {
		return errNoMatch
	}
	fmt.Fprintf(a.out, "key %s recognised\n", id)
	return nil
}

func writeReports(trace *report.ScoreTrace, plotPath, chartPath string) error {
	if trace.Len() == 0 {
		return nil
	}
	if plotPath != "" {
		if err := trace.SavePNG(plotPath); err != nil {
			return err
		}
	}
	if chartPath != "" {
		f, err := os.Create(chartPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := trace.WriteHTML(f); err != nil {
			return err
		}
	}
	return nil
}

func parseKeyID(args []string) (uuid.UUID, error) {
	if len(args) != 1 {
		return uuid.Nil, errors.New("expected exactly one key id")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid key id %q: %w", args[0], err)
	}
	return id, nil
}

func readFrames(path string) ([]pointcloud.RecordedFrame, error) {
	if path == "" {
		return nil, errors.New("-frames is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return pointcloud.ReadRecording(f)
}

func hasSelection(frames []pointcloud.RecordedFrame) bool {
	for _, rf := range frames {
		if rf.Selection != nil {
			return true
		}
	}
	return false
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}
