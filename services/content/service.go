// Package content caches the CMS-backed site content (pages, programs,
// community resources, announcements) and keeps it fresh with a background
// refresh worker.
package content

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"harborlight/models"
	"harborlight/services/cms"
	"harborlight/utils"
)

const refreshTimeout = 30 * time.Second

// Source provides raw content documents from the CMS.
type Source interface {
	Pages(ctx context.Context) ([]cms.PageDoc, error)
	Programs(ctx context.Context) ([]cms.ProgramDoc, error)
	Resources(ctx context.Context) ([]cms.ResourceDoc, error)
	Announcements(ctx context.Context) ([]cms.AnnouncementDoc, error)
}

// Snapshot is one coherent view of the site content.
type Snapshot struct {
	Pages         []models.Page
	Programs      []models.Program
	Resources     []models.Resource
	Announcements []models.Announcement
	RefreshedAt   time.Time
}

// Status holds the current state of the content background worker.
type Status struct {
	Running         bool      `json:"running"`
	State           string    `json:"state"` // "idle", "refreshing", "stopped"
	LastRefreshAt   time.Time `json:"lastRefreshAt"`
	LastRefreshMs   int64     `json:"lastRefreshMs"`
	NextRefreshAt   time.Time `json:"nextRefreshAt"`
	RefreshInterval string    `json:"refreshInterval"`
	PageCount       int       `json:"pageCount"`
	ProgramCount    int       `json:"programCount"`
	ResourceCount   int       `json:"resourceCount"`
	LastError       string    `json:"lastError,omitempty"`
}

// Service manages the cached content snapshot for all page renders.
type Service struct {
	mu       sync.RWMutex
	snapshot *Snapshot

	source          Source
	log             *logrus.Logger
	stopCh          chan struct{}
	refreshNow      chan struct{}
	refreshInterval time.Duration

	// Status tracking
	statusMu      sync.RWMutex
	running       bool
	state         string
	lastRefreshAt time.Time
	lastRefreshMs int64
	nextRefreshAt time.Time
	lastError     string
}

// New creates a content service.
func New(source Source, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		source: source,
		log:    log,
	}
}

// StartBackgroundRefresh populates the snapshot immediately and then
// refreshes it on the given interval until Stop is called.
func (s *Service) StartBackgroundRefresh(interval time.Duration) {
	s.refreshInterval = interval
	s.stopCh = make(chan struct{})
	s.refreshNow = make(chan struct{}, 1)

	s.statusMu.Lock()
	s.running = true
	s.state = "idle"
	s.statusMu.Unlock()

	go func() {
		s.log.Info("content refresh: initial population starting")
		s.doRefresh()
		s.log.Info("content refresh: initial population complete")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			s.statusMu.Lock()
			s.nextRefreshAt = time.Now().Add(interval)
			s.statusMu.Unlock()

			select {
			case <-ticker.C:
				s.doRefresh()
			case <-s.refreshNow:
				s.doRefresh()
				// Reset ticker so the next auto-refresh is a full interval away
				ticker.Reset(interval)
			case <-s.stopCh:
				s.log.Info("content refresh: stopped")
				s.statusMu.Lock()
				s.running = false
				s.state = "stopped"
				s.statusMu.Unlock()
				return
			}
		}
	}()
}

// Refresh triggers an immediate refresh. Non-blocking.
func (s *Service) Refresh() {
	select {
	case s.refreshNow <- struct{}{}:
	default:
		// Already a refresh pending
	}
}

// Stop gracefully stops the background refresh.
func (s *Service) Stop() {
	if s.stopCh != nil {
		close(s.stopCh)
	}
}

// doRefresh runs a full refresh with status tracking.
func (s *Service) doRefresh() {
	s.statusMu.Lock()
	s.state = "refreshing"
	s.statusMu.Unlock()

	start := time.Now()
	err := s.refreshAll()
	elapsed := time.Since(start)

	s.statusMu.Lock()
	s.state = "idle"
	s.lastRefreshAt = time.Now()
	s.lastRefreshMs = elapsed.Milliseconds()
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.statusMu.Unlock()
}

// refreshAll fans the four content queries out concurrently and swaps in a
// new snapshot. A failed query keeps its previous section; content degrades,
// it never errors a page.
func (s *Service) refreshAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	var (
		pages         []models.Page
		programs      []models.Program
		resources     []models.Resource
		announcements []models.Announcement

		pagesOK, programsOK, resourcesOK, announcementsOK bool
	)

	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		docs, err := s.source.Pages(ctx)
		if err != nil {
			return fmt.Errorf("pages: %w", err)
		}
		pages = mapPages(docs)
		pagesOK = true
		return nil
	})
	p.Go(func(ctx context.Context) error {
		docs, err := s.source.Programs(ctx)
		if err != nil {
			return fmt.Errorf("programs: %w", err)
		}
		programs = mapPrograms(docs)
		programsOK = true
		return nil
	})
	p.Go(func(ctx context.Context) error {
		docs, err := s.source.Resources(ctx)
		if err != nil {
			return fmt.Errorf("resources: %w", err)
		}
		resources = mapResources(docs)
		resourcesOK = true
		return nil
	})
	p.Go(func(ctx context.Context) error {
		docs, err := s.source.Announcements(ctx)
		if err != nil {
			return fmt.Errorf("announcements: %w", err)
		}
		announcements = mapAnnouncements(docs)
		announcementsOK = true
		return nil
	})
	err := p.Wait()
	if err != nil {
		s.log.WithError(err).Warn("content refresh partial failure")
	}

	s.mu.Lock()
	prev := s.snapshot
	next := &Snapshot{RefreshedAt: time.Now().UTC()}
	if prev != nil {
		*next = *prev
		next.RefreshedAt = time.Now().UTC()
	}
	if pagesOK {
		next.Pages = pages
	}
	if programsOK {
		next.Programs = programs
	}
	if resourcesOK {
		next.Resources = resources
	}
	if announcementsOK {
		next.Announcements = announcements
	}
	s.snapshot = next
	s.mu.Unlock()

	return err
}

// Snapshot returns the current content snapshot. Nil until the first
// successful population.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// PageBySlug finds a content page by slug.
func (s *Service) PageBySlug(slug string) (models.Page, bool) {
	snap := s.Snapshot()
	if snap == nil {
		return models.Page{}, false
	}
	for _, page := range snap.Pages {
		if page.Slug == slug {
			return page, true
		}
	}
	return models.Page{}, false
}

// GetStatus returns the current status of the content worker.
func (s *Service) GetStatus() Status {
	s.statusMu.RLock()
	status := Status{
		Running:       s.running,
		State:         s.state,
		LastRefreshAt: s.lastRefreshAt,
		LastRefreshMs: s.lastRefreshMs,
		NextRefreshAt: s.nextRefreshAt,
		LastError:     s.lastError,
	}
	s.statusMu.RUnlock()

	if s.refreshInterval > 0 {
		if s.refreshInterval >= time.Hour {
			status.RefreshInterval = fmt.Sprintf("%.0fh", s.refreshInterval.Hours())
		} else {
			status.RefreshInterval = fmt.Sprintf("%.0fm", s.refreshInterval.Minutes())
		}
	}

	if snap := s.Snapshot(); snap != nil {
		status.PageCount = len(snap.Pages)
		status.ProgramCount = len(snap.Programs)
		status.ResourceCount = len(snap.Resources)
	}

	return status
}

func mapPages(docs []cms.PageDoc) []models.Page {
	pages := make([]models.Page, 0, len(docs))
	for _, doc := range docs {
		page := models.Page{ID: doc.ID, Title: doc.Title, Slug: doc.Slug, Body: doc.Body}
		if page.Slug == "" {
			page.Slug = utils.Slugify(doc.Title)
		}
		pages = append(pages, page)
	}
	return pages
}

func mapPrograms(docs []cms.ProgramDoc) []models.Program {
	programs := make([]models.Program, 0, len(docs))
	for _, doc := range docs {
		program := models.Program{
			ID:          doc.ID,
			Name:        doc.Name,
			Slug:        doc.Slug,
			Description: doc.Description,
			Color:       doc.Color,
		}
		if program.Slug == "" {
			program.Slug = utils.Slugify(doc.Name)
		}
		programs = append(programs, program)
	}
	return programs
}

func mapResources(docs []cms.ResourceDoc) []models.Resource {
	resources := make([]models.Resource, 0, len(docs))
	for _, doc := range docs {
		resources = append(resources, models.Resource{
			ID:          doc.ID,
			Name:        doc.Name,
			Category:    doc.Category,
			URL:         doc.URL,
			Phone:       doc.Phone,
			Description: doc.Description,
		})
	}
	return resources
}

func mapAnnouncements(docs []cms.AnnouncementDoc) []models.Announcement {
	announcements := make([]models.Announcement, 0, len(docs))
	for _, doc := range docs {
		a := models.Announcement{ID: doc.ID, Title: doc.Title, Body: doc.Body}
		if t, err := time.Parse(time.RFC3339, doc.PublishedAt); err == nil {
			a.PublishedAt = t
		}
		announcements = append(announcements, a)
	}
	return announcements
}
