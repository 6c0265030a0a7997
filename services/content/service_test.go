package content

import (
	"context"
	"errors"
	"testing"

	"harborlight/services/cms"
)

// mockSource serves canned documents with per-section error switches.
type mockSource struct {
	pages         []cms.PageDoc
	programs      []cms.ProgramDoc
	resources     []cms.ResourceDoc
	announcements []cms.AnnouncementDoc

	pagesErr error
}

func (m *mockSource) Pages(ctx context.Context) ([]cms.PageDoc, error) {
	return m.pages, m.pagesErr
}

func (m *mockSource) Programs(ctx context.Context) ([]cms.ProgramDoc, error) {
	return m.programs, nil
}

func (m *mockSource) Resources(ctx context.Context) ([]cms.ResourceDoc, error) {
	return m.resources, nil
}

func (m *mockSource) Announcements(ctx context.Context) ([]cms.AnnouncementDoc, error) {
	return m.announcements, nil
}

func testSource() *mockSource {
	return &mockSource{
		pages: []cms.PageDoc{
			{ID: "p1", Title: "About Us", Slug: "about"},
			{ID: "p2", Title: "Get Involved"},
		},
		programs: []cms.ProgramDoc{
			{ID: "pr1", Name: "Youth Mentoring", Slug: "youth-mentoring", Color: "#2a9d8f"},
		},
		resources: []cms.ResourceDoc{
			{ID: "r1", Name: "Food Bank", Category: "food"},
		},
		announcements: []cms.AnnouncementDoc{
			{ID: "a1", Title: "New Location", PublishedAt: "2024-06-01T09:00:00Z"},
		},
	}
}

func TestRefreshAllPopulatesSnapshot(t *testing.T) {
	svc := New(testSource(), nil)

	if svc.Snapshot() != nil {
		t.Fatal("snapshot should be nil before the first refresh")
	}
	if err := svc.refreshAll(); err != nil {
		t.Fatalf("refreshAll: %v", err)
	}

	snap := svc.Snapshot()
	if snap == nil {
		t.Fatal("expected a snapshot")
	}
	if len(snap.Pages) != 2 || len(snap.Programs) != 1 || len(snap.Resources) != 1 || len(snap.Announcements) != 1 {
		t.Fatalf("unexpected snapshot sizes: %+v", snap)
	}
	if snap.RefreshedAt.IsZero() {
		t.Fatal("refreshedAt not set")
	}

	// Slug fallback for the page without one.
	if snap.Pages[1].Slug != "get-involved" {
		t.Fatalf("expected derived slug, got %q", snap.Pages[1].Slug)
	}
	if snap.Announcements[0].PublishedAt.IsZero() {
		t.Fatal("announcement publish time not parsed")
	}
}

func TestRefreshAllKeepsPreviousSectionOnFailure(t *testing.T) {
	src := testSource()
	svc := New(src, nil)

	if err := svc.refreshAll(); err != nil {
		t.Fatalf("initial refreshAll: %v", err)
	}

	// The pages query starts failing; other sections keep updating.
	src.pagesErr = errors.New("cms down")
	src.programs = append(src.programs, cms.ProgramDoc{ID: "pr2", Name: "Community Garden"})

	if err := svc.refreshAll(); err == nil {
		t.Fatal("expected an error to propagate for status tracking")
	}

	snap := svc.Snapshot()
	if len(snap.Pages) != 2 {
		t.Fatalf("pages should survive a failed query, got %d", len(snap.Pages))
	}
	if len(snap.Programs) != 2 {
		t.Fatalf("programs should still refresh, got %d", len(snap.Programs))
	}
}

func TestPageBySlug(t *testing.T) {
	svc := New(testSource(), nil)

	if _, ok := svc.PageBySlug("about"); ok {
		t.Fatal("no pages before refresh")
	}

	if err := svc.refreshAll(); err != nil {
		t.Fatalf("refreshAll: %v", err)
	}

	page, ok := svc.PageBySlug("about")
	if !ok || page.ID != "p1" {
		t.Fatalf("expected page p1, got %+v (ok=%v)", page, ok)
	}
	if _, ok := svc.PageBySlug("missing"); ok {
		t.Fatal("unexpected page for unknown slug")
	}
}

func TestGetStatusReflectsSnapshot(t *testing.T) {
	svc := New(testSource(), nil)
	if err := svc.refreshAll(); err != nil {
		t.Fatalf("refreshAll: %v", err)
	}

	status := svc.GetStatus()
	if status.PageCount != 2 || status.ProgramCount != 1 || status.ResourceCount != 1 {
		t.Fatalf("unexpected counts: %+v", status)
	}
}
