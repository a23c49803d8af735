// Package pipeline runs one full analysis cycle: load the roster, fan
// property/detector work across a bounded pool, consolidate, render,
// persist and deliver. It owns the exit-code contract for the CLI.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scoutwatch/scout/internal/blob"
	"github.com/scoutwatch/scout/internal/clock"
	"github.com/scoutwatch/scout/internal/config"
	"github.com/scoutwatch/scout/internal/consolidate"
	"github.com/scoutwatch/scout/internal/dataset"
	"github.com/scoutwatch/scout/internal/delivery"
	"github.com/scoutwatch/scout/internal/detector"
	"github.com/scoutwatch/scout/internal/digest"
	"github.com/scoutwatch/scout/internal/domain"
	"github.com/scoutwatch/scout/internal/history"
	"github.com/scoutwatch/scout/internal/registry"
	"github.com/scoutwatch/scout/internal/telemetry"
)

// retryDelays backs off artifact writes before giving up.
var retryDelays = []time.Duration{time.Second, 4 * time.Second, 16 * time.Second}

// HistorySink records finished runs; satisfied by *history.Store.
type HistorySink interface {
	RecordRun(ctx context.Context, run history.Run, alerts []domain.Alert) error
}

// Options narrows a single run.
type Options struct {
	// Properties restricts the run to these property ids; empty means
	// the whole roster.
	Properties []string

	// Detectors restricts which detectors execute; empty means all.
	Detectors []domain.DetectorKind

	// DryRun writes artifacts but skips delivery and the history sink.
	DryRun bool
}

// Deps are the orchestrator's collaborators. History and Metrics may
// be nil.
type Deps struct {
	Clock     clock.Clock
	Store     blob.Store
	Loader    *dataset.Loader
	Detectors []detector.Detector
	Deliverer delivery.Deliverer
	History   HistorySink
	Metrics   *telemetry.Metrics
	Logger    zerolog.Logger
}

// Orchestrator coordinates one analysis run end to end.
type Orchestrator struct {
	cfg       config.Config
	clk       clock.Clock
	store     blob.Store
	loader    *dataset.Loader
	detectors []detector.Detector
	deliverer delivery.Deliverer
	history   HistorySink
	metrics   *telemetry.Metrics
	log       zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New wires an orchestrator from config and dependencies.
func New(cfg config.Config, deps Deps) *Orchestrator {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = telemetry.New()
	}
	return &Orchestrator{
		cfg:       cfg,
		clk:       deps.Clock,
		store:     deps.Store,
		loader:    deps.Loader,
		detectors: deps.Detectors,
		deliverer: deps.Deliverer,
		history:   deps.History,
		metrics:   metrics,
		log:       deps.Logger.With().Str("component", "pipeline").Logger(),
		sleep:     sleepCtx,
	}
}

type propertyState struct {
	property domain.PropertyConfig

	once    sync.Once
	ds      *domain.CleanDataset
	loadErr error
}

type task struct {
	state *propertyState
	det   detector.Detector
}

// Run executes one full cycle. The returned summary is best-effort on
// failure paths; err carries the exit code.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*RunSummary, error) {
	start := o.clk.Now()
	generatedAt := start.UTC()

	refDate, err := o.referenceDate()
	if err != nil {
		return nil, &RunError{Code: ExitConfig, Err: err}
	}
	analysisDate := clock.AnalysisDate(refDate, o.cfg.SettlingDays)

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	defer cancel()

	o.log.Info().
		Stringer("reference_date", refDate).
		Stringer("analysis_date", analysisDate).
		Int("settling_days", o.cfg.SettlingDays).
		Msg("run starting")

	properties, err := registry.Load(ctx, o.store)
	if err != nil {
		return nil, o.fail(ctx, ExitConfig, err, start)
	}
	properties = filterProperties(properties, opts.Properties)
	if len(properties) == 0 {
		return nil, o.fail(ctx, ExitConfig, fmt.Errorf("no properties match filter %v", opts.Properties), start)
	}

	detectors := detector.ByKind(o.detectors, opts.Detectors)
	minDays := detector.MaxWindowDays(detectors)

	states := make([]*propertyState, len(properties))
	for i, p := range properties {
		states[i] = &propertyState{property: p}
	}

	var (
		mu      sync.Mutex
		alerts  []domain.Alert
		issues  []domain.Issue
		perProp = make(map[string]int)
	)

	tasks := make(chan task)
	var wg sync.WaitGroup
	workers := o.cfg.PoolSize(len(properties))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				if ctx.Err() != nil {
					continue
				}
				got, issue := o.runTask(ctx, t, minDays, refDate, analysisDate, generatedAt)
				mu.Lock()
				alerts = append(alerts, got...)
				perProp[t.state.property.PropertyID] += len(got)
				if issue != nil {
					issues = append(issues, *issue)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, st := range states {
		for _, det := range detectors {
			select {
			case tasks <- task{state: st, det: det}:
			case <-ctx.Done():
				break feed
			}
		}
	}
	close(tasks)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, o.fail(ctx, ExitTimeout, fmt.Errorf("run budget %s exceeded: %w", o.cfg.RunTimeout, err), start)
	}

	// Load issues are recorded once per property, not once per task.
	analyzed := make([]domain.PropertyConfig, 0, len(states))
	outcomes := make([]PropertyOutcome, 0, len(states))
	for _, st := range states {
		outcome := PropertyOutcome{PropertyID: st.property.PropertyID}
		if st.loadErr != nil {
			outcome.Status = "failed"
			outcome.Reason = loadIssueCode(st.loadErr)
			if outcome.Reason == domain.IssueTimedOut {
				outcome.Status = "timed_out"
			}
			issues = append(issues, domain.Issue{
				PropertyID: st.property.PropertyID,
				Code:       outcome.Reason,
				Detail:     st.loadErr.Error(),
			})
		} else {
			outcome.Status = "analyzed"
			outcome.AlertCount = perProp[st.property.PropertyID]
			analyzed = append(analyzed, st.property)
		}
		outcomes = append(outcomes, outcome)
	}

	if len(analyzed) == 0 {
		return nil, o.fail(ctx, ExitPartial, fmt.Errorf("all %d properties failed to load", len(states)), start)
	}

	if err := o.persistDetectorReports(ctx, detectors, alerts, refDate, generatedAt, len(analyzed)); err != nil {
		return nil, o.fail(ctx, ExitPartial, err, start)
	}

	dgst := consolidate.Build(consolidate.Input{
		ReferenceDate:  refDate,
		AnalysisDate:   analysisDate,
		GeneratedAt:    generatedAt,
		Properties:     analyzed,
		Alerts:         alerts,
		Issues:         issues,
		MaxPerProperty: o.cfg.Thresholds.MaxAlertsPerProperty,
	})

	if err := o.persistDigest(ctx, dgst, refDate); err != nil {
		return nil, o.fail(ctx, ExitPartial, err, start)
	}

	delivered, deliverErr := o.deliver(ctx, dgst, opts.DryRun)

	for _, a := range dgst.Alerts {
		o.metrics.ObserveAlert(a)
	}
	o.metrics.ObserveSuppressed(dgst.SuppressedCount)
	o.metrics.SetPropertiesAnalyzed(len(analyzed))

	// Property failures degrade the run; a digest that never reached
	// the adapter outranks them.
	exitCode := ExitSuccess
	var runErr error
	if failed := len(states) - len(analyzed); failed > 0 {
		exitCode = ExitPartial
		runErr = fmt.Errorf("%d of %d properties failed", failed, len(states))
	}
	if deliverErr != nil {
		exitCode = ExitDelivery
		runErr = fmt.Errorf("digest delivery: %w", deliverErr)
	}

	duration := o.clk.Now().Sub(start)
	summary := &RunSummary{
		GeneratedAt:        generatedAt,
		ReferenceDate:      refDate,
		AnalysisDate:       analysisDate,
		SettlingDays:       o.cfg.SettlingDays,
		PropertiesTotal:    len(states),
		PropertiesAnalyzed: len(analyzed),
		PropertiesFailed:   len(states) - len(analyzed),
		TotalAlerts:        dgst.TotalAlerts,
		SuppressedAlerts:   dgst.SuppressedCount,
		ByDetector:         dgst.Counts,
		Outcomes:           outcomes,
		DurationMS:         duration.Milliseconds(),
		Delivered:          delivered,
		ExitCode:           exitCode,
	}

	if err := o.persistJSON(ctx, o.resultsKey(refDate, "run_summary.json"), summary); err != nil {
		summary.ExitCode = ExitPartial
		return summary, o.fail(ctx, ExitPartial, err, start)
	}

	o.recordHistory(ctx, summary, dgst.Alerts, opts.DryRun, duration)
	o.metrics.ObserveRun(outcomeLabel(exitCode), duration)

	o.log.Info().
		Int("alerts", dgst.TotalAlerts).
		Int("suppressed", dgst.SuppressedCount).
		Int("analyzed", len(analyzed)).
		Int("failed", summary.PropertiesFailed).
		Int("exit_code", exitCode).
		Dur("duration", duration).
		Msg("run complete")
	if runErr != nil {
		return summary, &RunError{Code: exitCode, Err: runErr}
	}
	return summary, nil
}

// runTask loads the property's dataset (once across detectors) and
// executes one detector, both under the per-property budget. Detector
// panics become detector_failed issues instead of killing the run; a
// detector still working when the budget expires is abandoned and
// recorded as timed_out.
func (o *Orchestrator) runTask(ctx context.Context, t task, minDays int, refDate, analysisDate domain.Day, generatedAt time.Time) ([]domain.Alert, *domain.Issue) {
	st := t.state
	budget, cancel := context.WithTimeout(ctx, o.cfg.PropertyBudget)
	defer cancel()

	st.once.Do(func() {
		st.ds, st.loadErr = o.loader.Load(budget, st.property.PropertyID, refDate, minDays)
		if st.loadErr != nil {
			o.metrics.ObserveLoadFailure(loadIssueCode(st.loadErr))
			o.log.Warn().
				Str("property", st.property.PropertyID).
				Err(st.loadErr).
				Msg("dataset load failed, property skipped")
		}
	})
	if st.loadErr != nil {
		return nil, nil
	}

	type result struct {
		alerts []domain.Alert
		issue  *domain.Issue
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.log.Error().
					Str("property", st.property.PropertyID).
					Str("detector", string(t.det.Kind())).
					Interface("panic", r).
					Msg("detector panicked")
				done <- result{issue: &domain.Issue{
					PropertyID: st.property.PropertyID,
					Detector:   t.det.Kind(),
					Code:       domain.IssueDetectorFailed,
					Detail:     fmt.Sprint(r),
				}}
			}
		}()
		detStart := time.Now()
		alerts := t.det.Detect(detector.Input{
			Property:     st.property,
			Dataset:      st.ds,
			AnalysisDate: analysisDate,
			GeneratedAt:  generatedAt,
		})
		o.metrics.ObserveDetector(t.det.Kind(), time.Since(detStart))
		for i := range alerts {
			alerts[i].Domain = st.property.Domain
		}
		done <- result{alerts: alerts}
	}()

	select {
	case res := <-done:
		return res.alerts, res.issue
	case <-budget.Done():
		o.log.Warn().
			Str("property", st.property.PropertyID).
			Str("detector", string(t.det.Kind())).
			Dur("budget", o.cfg.PropertyBudget).
			Msg("detector exceeded the property budget")
		return nil, &domain.Issue{
			PropertyID: st.property.PropertyID,
			Detector:   t.det.Kind(),
			Code:       domain.IssueTimedOut,
			Detail:     fmt.Sprintf("detector exceeded the %s property budget", o.cfg.PropertyBudget),
		}
	}
}

// fail classifies a run failure, preferring the timeout code when the
// run budget expired underneath the failing step.
func (o *Orchestrator) fail(ctx context.Context, code int, err error, start time.Time) error {
	if ctx.Err() != nil {
		code = ExitTimeout
	}
	o.metrics.ObserveRun(outcomeLabel(code), o.clk.Now().Sub(start))
	return &RunError{Code: code, Err: err}
}

func outcomeLabel(code int) string {
	switch code {
	case ExitSuccess:
		return "success"
	case ExitConfig:
		return "config_error"
	case ExitPartial:
		return "partial_failure"
	case ExitDelivery:
		return "delivery_failure"
	case ExitTimeout:
		return "timeout"
	}
	return "failure"
}

func (o *Orchestrator) referenceDate() (domain.Day, error) {
	if o.cfg.ReferenceDateOverride != "" {
		return domain.ParseDay(o.cfg.ReferenceDateOverride)
	}
	return clock.ReferenceDate(o.clk), nil
}

func (o *Orchestrator) persistDetectorReports(ctx context.Context, detectors []detector.Detector, alerts []domain.Alert, refDate domain.Day, generatedAt time.Time, analyzed int) error {
	byKind := make(map[domain.DetectorKind][]domain.Alert)
	for _, a := range alerts {
		byKind[a.Detector] = append(byKind[a.Detector], a)
	}
	for _, det := range detectors {
		kind := det.Kind()
		report := domain.AlertReport{
			Detector:           kind,
			GeneratedAt:        generatedAt,
			ReferenceDate:      refDate,
			PropertiesAnalyzed: analyzed,
			TotalAlerts:        len(byKind[kind]),
			Alerts:             byKind[kind],
		}
		sort.SliceStable(report.Alerts, func(i, j int) bool {
			return report.Alerts[i].Less(report.Alerts[j])
		})
		key := o.resultsKey(refDate, fmt.Sprintf("alerts_%s.json", kind))
		if err := o.persistJSON(ctx, key, report); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) persistDigest(ctx context.Context, dgst domain.Digest, refDate domain.Day) error {
	if err := o.persistJSON(ctx, o.resultsKey(refDate, "digest.json"), dgst); err != nil {
		return err
	}
	html, err := digest.RenderHTML(dgst)
	if err != nil {
		return err
	}
	if err := o.persistWithRetry(ctx, o.resultsKey(refDate, "digest.html"), html); err != nil {
		return err
	}
	return o.persistWithRetry(ctx, o.resultsKey(refDate, "digest.txt"), digest.RenderText(dgst))
}

// deliver sends the digest. The persisted artifacts survive a failed
// handoff, but the failure still fails the run.
func (o *Orchestrator) deliver(ctx context.Context, dgst domain.Digest, dryRun bool) (bool, error) {
	if dryRun || o.deliverer == nil {
		return false, nil
	}
	html, err := digest.RenderHTML(dgst)
	if err != nil {
		return false, fmt.Errorf("render digest: %w", err)
	}
	receipt, err := o.deliverer.Deliver(ctx, delivery.Message{
		Subject: digestSubject(dgst),
		HTML:    html,
		Text:    digest.RenderText(dgst),
		Digest:  dgst,
	})
	if err != nil {
		o.log.Error().Err(err).Msg("digest delivery failed")
		return false, err
	}
	o.log.Info().Str("provider_id", receipt.ProviderID).Msg("digest delivered")
	return true, nil
}

func (o *Orchestrator) recordHistory(ctx context.Context, s *RunSummary, alerts []domain.Alert, dryRun bool, duration time.Duration) {
	if o.history == nil || dryRun {
		return
	}
	err := o.history.RecordRun(ctx, history.Run{
		ReferenceDate:      s.ReferenceDate,
		AnalysisDate:       s.AnalysisDate,
		GeneratedAt:        s.GeneratedAt,
		PropertiesAnalyzed: s.PropertiesAnalyzed,
		PropertiesFailed:   s.PropertiesFailed,
		TotalAlerts:        s.TotalAlerts,
		SuppressedAlerts:   s.SuppressedAlerts,
		Duration:           duration,
		ExitCode:           s.ExitCode,
	}, alerts)
	if err != nil {
		o.log.Warn().Err(err).Msg("history write failed")
	}
}

func (o *Orchestrator) resultsKey(refDate domain.Day, name string) string {
	return path.Join(o.cfg.ResultsDir, refDate.String(), name)
}

func (o *Orchestrator) persistJSON(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return o.persistWithRetry(ctx, key, append(data, '\n'))
}

// persistWithRetry writes an artifact, backing off 1s/4s/16s before
// giving up.
func (o *Orchestrator) persistWithRetry(ctx context.Context, key string, data []byte) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = o.store.Put(ctx, key, data)
		if err == nil {
			return nil
		}
		if attempt >= len(retryDelays) {
			return fmt.Errorf("persist %s: %w", key, err)
		}
		o.log.Warn().
			Str("key", key).
			Int("attempt", attempt+1).
			Err(err).
			Msg("artifact write failed, retrying")
		if serr := o.sleep(ctx, retryDelays[attempt]); serr != nil {
			return fmt.Errorf("persist %s: %w", key, errors.Join(err, serr))
		}
	}
}

func digestSubject(d domain.Digest) string {
	if d.TotalAlerts == 0 {
		return fmt.Sprintf("Scout Daily Digest %s: all clear", d.ReferenceDate)
	}
	return fmt.Sprintf("Scout Daily Digest %s: %d alerts (%d P0, %d P1)",
		d.ReferenceDate, d.TotalAlerts, countPriority(d.Alerts, domain.PriorityP0), countPriority(d.Alerts, domain.PriorityP1))
}

func countPriority(alerts []domain.Alert, p domain.Priority) int {
	n := 0
	for _, a := range alerts {
		if a.Priority == p {
			n++
		}
	}
	return n
}

func filterProperties(all []domain.PropertyConfig, ids []string) []domain.PropertyConfig {
	if len(ids) == 0 {
		return all
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]domain.PropertyConfig, 0, len(ids))
	for _, p := range all {
		if want[p.PropertyID] {
			out = append(out, p)
		}
	}
	return out
}

func loadIssueCode(err error) string {
	var le *dataset.LoadError
	if errors.As(err, &le) {
		switch le.Reason {
		case dataset.ReasonInsufficientData:
			return domain.IssueInsufficientData
		case dataset.ReasonStoreError:
			if errors.Is(le.Err, context.DeadlineExceeded) {
				return domain.IssueTimedOut
			}
		}
		return domain.IssueLoadFailed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.IssueTimedOut
	}
	return domain.IssueLoadFailed
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
