package events

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"harborlight/models"
	"harborlight/services/cms"
	"harborlight/utils"
)

// DefaultTitle is substituted for events whose CMS record has no title.
const DefaultTitle = "Untitled Event"

// upcomingLimit caps how many events the home/events pages request.
const upcomingLimit = 100

// Source provides raw event documents from the CMS.
type Source interface {
	AllEvents(ctx context.Context) ([]cms.EventDoc, error)
	UpcomingEvents(ctx context.Context, n int) ([]cms.EventDoc, error)
	RecentEvents(ctx context.Context, n int) ([]cms.EventDoc, error)
}

// Service normalizes raw CMS event records into canonical events: it filters
// records without a parseable start, sorts chronologically, and substitutes
// defaults for absent fields.
type Service struct {
	source Source
	log    *logrus.Logger
	now    func() time.Time
}

// New creates an event normalization service.
func New(source Source, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		source: source,
		log:    log,
		now:    time.Now,
	}
}

// SetClock overrides the wall clock used by the upcoming filter.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Normalize filters, sorts, and maps raw CMS records to canonical events.
// Records whose start is not a non-empty parseable date are dropped.
func (s *Service) Normalize(docs []cms.EventDoc) []models.Event {
	valid := make([]models.Event, 0, len(docs))
	for _, doc := range docs {
		start, ok := parseCMSTime(doc.Start)
		if !ok {
			continue
		}

		ev := models.Event{
			ID:              doc.ID,
			Title:           doc.Title,
			Slug:            doc.Slug,
			Start:           start,
			Location:        doc.Location,
			Program:         doc.Program,
			Description:     doc.Description,
			Capacity:        doc.Capacity,
			RegistrationURL: doc.RegistrationURL,
			ImageURL:        doc.Image,
		}
		if ev.Title == "" {
			ev.Title = DefaultTitle
		}
		if ev.Slug == "" && doc.Title != "" {
			ev.Slug = utils.Slugify(doc.Title)
		}
		if end, ok := parseCMSTime(doc.End); ok {
			ev.End = &end
		}
		valid = append(valid, ev)
	}

	// Stable sort: ties keep CMS order, which is what callers expect.
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Start.Before(valid[j].Start)
	})

	s.log.WithFields(logrus.Fields{
		"total": len(docs),
		"valid": len(valid),
	}).Debug("normalized events")

	return valid
}

// Upcoming keeps events whose last relevant moment (end if present, else
// start) is at or after now. Evaluated once per request; no clock-skew
// handling by design.
func (s *Service) Upcoming(events []models.Event, now time.Time) []models.Event {
	kept := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if !ev.LastRelevantMoment().Before(now) {
			kept = append(kept, ev)
		}
	}
	return kept
}

// FetchUpcoming fetches and normalizes the upcoming event list for the home
// and events pages. A fetch failure is logged and yields an empty slice so
// the page renders an empty state, never a hard error.
func (s *Service) FetchUpcoming(ctx context.Context) []models.Event {
	docs, err := s.source.UpcomingEvents(ctx, upcomingLimit)
	if err != nil {
		s.log.WithError(err).Error("upcoming events fetch failed, rendering empty state")
		return []models.Event{}
	}

	normalized := s.Normalize(docs)
	upcoming := s.Upcoming(normalized, s.now())

	s.log.WithFields(logrus.Fields{
		"total":    len(docs),
		"valid":    len(normalized),
		"upcoming": len(upcoming),
	}).Info("upcoming events pipeline")

	return upcoming
}

// FetchAll fetches and normalizes every event, past and future. Used by the
// calendar month view, which shows history as well.
func (s *Service) FetchAll(ctx context.Context) []models.Event {
	docs, err := s.source.AllEvents(ctx)
	if err != nil {
		s.log.WithError(err).Error("event fetch failed, rendering empty state")
		return []models.Event{}
	}
	return s.Normalize(docs)
}

// parseCMSTime parses the timestamp formats the CMS emits: RFC3339 with or
// without offset, and bare dates.
func parseCMSTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", models.DayKeyLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
