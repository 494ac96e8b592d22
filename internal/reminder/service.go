package reminder

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"sortir/internal/store"
	"sortir/pkg/logx"
)

const (
	activitiesCollection = "activites"
	chatSubcollection    = "chat"
	flagField            = "notified3hBefore"

	// Lead-time window, in whole minutes before start. Strict on both
	// sides: exactly 170 or 190 does not qualify, and an activity first
	// seen below 170 is never notified. Known gap, kept on purpose.
	windowLowMin  = 170
	windowHighMin = 190

	startTimeLayout = "15h04"
)

type Config struct {
	Enabled bool
	// Schedule is a robfig/cron spec; default "@every 10m".
	Schedule string
	// Timezone names the zone used to format the start time in the chat
	// message; default "Europe/Paris". The window check itself is
	// zone-independent.
	Timezone string
}

// Service runs the reminder scan on a cron schedule.
type Service struct {
	cfg   Config
	store store.Store
	log   logx.Logger
	loc   *time.Location

	// now is swappable so tests can drive a simulated clock.
	now func() time.Time

	c       *cron.Cron
	running atomic.Bool
}

func New(cfg Config, st store.Store, log logx.Logger) (*Service, error) {
	if strings.TrimSpace(cfg.Schedule) == "" {
		cfg.Schedule = "@every 10m"
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		cfg.Timezone = "Europe/Paris"
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("reminder: invalid timezone %q: %w", cfg.Timezone, err)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:   cfg,
		store: st,
		log:   log,
		loc:   loc,
		now:   time.Now,
	}, nil
}

func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("reminder disabled")
		return nil
	}
	s.c = cron.New(cron.WithLocation(s.loc))
	_, err := s.c.AddFunc(s.cfg.Schedule, func() {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Error("scan failed", logx.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("reminder: bad schedule %q: %w", s.cfg.Schedule, err)
	}
	s.c.Start()
	s.log.Info("reminder started",
		logx.String("schedule", s.cfg.Schedule),
		logx.String("tz", s.loc.String()),
	)
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	if s.c == nil {
		return
	}
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce performs one scan over all activities. Overlapping invocations
// are skipped; records fail independently so one bad activity cannot block
// the rest of the run.
func (s *Service) RunOnce(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("scan already running, skipping")
		return nil
	}
	defer s.running.Store(false)

	now := s.now()
	acts, err := s.store.List(ctx, activitiesCollection)
	if err != nil {
		return fmt.Errorf("list activities: %w", err)
	}

	var notified, failed int
	for _, act := range acts {
		ok, err := s.processActivity(ctx, now, act)
		if err != nil {
			failed++
			s.log.Error("activity reminder failed", logx.String("activity", act.ID), logx.Err(err))
			continue
		}
		if ok {
			notified++
		}
	}
	if notified > 0 || failed > 0 {
		s.log.Info("scan done",
			logx.Int("scanned", len(acts)),
			logx.Int("notified", notified),
			logx.Int("failed", failed),
		)
	}
	return nil
}

// processActivity reports whether a reminder was emitted for act.
func (s *Service) processActivity(ctx context.Context, now time.Time, act *store.Document) (bool, error) {
	date, ok := act.Time("date")
	if !ok {
		return false, nil
	}
	if act.Bool(flagField) {
		return false, nil
	}
	if !inWindow(now, date) {
		return false, nil
	}

	// Claim the activity before writing the message: the conditional
	// update makes check-then-set atomic, so two overlapping scans cannot
	// both emit. Losing the claim means another run already did the work.
	applied, err := s.store.UpdateIf(ctx, act.Path,
		map[string]any{flagField: true},
		func(cur *store.Document) bool { return !cur.Bool(flagField) },
	)
	if err != nil {
		return false, fmt.Errorf("set %s: %w", flagField, err)
	}
	if !applied {
		return false, nil
	}

	adresse, _ := act.Str("adresse")
	region, _ := act.Str("region")
	body := reminderBody(adresse, region, date.In(s.loc).Format(startTimeLayout))

	if _, err := s.store.Add(ctx, act.Path+"/"+chatSubcollection, map[string]any{
		"userId":    "system",
		"system":    true,
		"message":   body,
		"createdAt": now,
	}); err != nil {
		return false, fmt.Errorf("append chat message: %w", err)
	}

	s.log.Info("reminder sent",
		logx.String("activity", act.ID),
		logx.Time("start", date),
	)
	return true, nil
}

// inWindow applies the lead-time predicate: strictly more than 170 and
// strictly less than 190 rounded minutes until start.
func inWindow(now, date time.Time) bool {
	diffMin := int(math.Round(date.Sub(now).Minutes()))
	return diffMin > windowLowMin && diffMin < windowHighMin
}

func reminderBody(adresse, region, heure string) string {
	return "Votre activité commence dans 3 heures.\n" +
		"📍 Adresse : " + adresse + "\n" +
		"🗺 Région : " + region + "\n" +
		"🕒 Début : " + heure
}
