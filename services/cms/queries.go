package cms

import (
	"context"
	"fmt"
)

// EventDoc is a raw CMS event record. Any field except the identifier may be
// absent.
type EventDoc struct {
	ID              string `json:"_id"`
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	Start           string `json:"start"`
	End             string `json:"end"`
	Location        string `json:"location"`
	Program         string `json:"program"`
	Description     string `json:"description"`
	Capacity        int    `json:"capacity"`
	RegistrationURL string `json:"registrationUrl"`
	Image           string `json:"image"`
}

// PageDoc is a raw CMS content page.
type PageDoc struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Body  string `json:"body"`
}

// ProgramDoc is a raw CMS program record.
type ProgramDoc struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// ResourceDoc is a raw CMS community resource record.
type ResourceDoc struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	URL         string `json:"url"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
}

// AnnouncementDoc is a raw CMS announcement record.
type AnnouncementDoc struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	PublishedAt string `json:"publishedAt"`
}

const eventProjection = `{_id, title, "slug": slug.current, start, end, location, program, description, capacity, registrationUrl, "image": image.asset->url}`

// AllEvents fetches every event document, ordered by start ascending.
func (c *Client) AllEvents(ctx context.Context) ([]EventDoc, error) {
	var docs []EventDoc
	query := `*[_type == "event"] | order(start asc) ` + eventProjection
	if err := c.Query(ctx, query, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// RecentEvents fetches the most recently created n events.
func (c *Client) RecentEvents(ctx context.Context, n int) ([]EventDoc, error) {
	var docs []EventDoc
	query := fmt.Sprintf(`*[_type == "event"] | order(_createdAt desc) [0...%d] `+eventProjection, n)
	if err := c.Query(ctx, query, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// UpcomingEvents fetches the next n events whose start is in the future,
// ordered soonest first. The normalizer re-applies the upcoming filter using
// the end timestamp, so in-progress multi-day events are not lost.
func (c *Client) UpcomingEvents(ctx context.Context, n int) ([]EventDoc, error) {
	var docs []EventDoc
	query := fmt.Sprintf(`*[_type == "event" && defined(start) && dateTime(coalesce(end, start)) >= dateTime(now())] | order(start asc) [0...%d] `+eventProjection, n)
	if err := c.Query(ctx, query, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Pages fetches all content pages.
func (c *Client) Pages(ctx context.Context) ([]PageDoc, error) {
	var docs []PageDoc
	query := `*[_type == "page"]{_id, title, "slug": slug.current, body}`
	if err := c.Query(ctx, query, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Programs fetches all program records.
func (c *Client) Programs(ctx context.Context) ([]ProgramDoc, error) {
	var docs []ProgramDoc
	query := `*[_type == "program"] | order(name asc) {_id, name, "slug": slug.current, description, color}`
	if err := c.Query(ctx, query, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Resources fetches all community resource records.
func (c *Client) Resources(ctx context.Context) ([]ResourceDoc, error) {
	var docs []ResourceDoc
	query := `*[_type == "resource"] | order(name asc) {_id, name, category, url, phone, description}`
	if err := c.Query(ctx, query, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Announcements fetches published announcements, newest first.
func (c *Client) Announcements(ctx context.Context) ([]AnnouncementDoc, error) {
	var docs []AnnouncementDoc
	query := `*[_type == "announcement"] | order(publishedAt desc) {_id, title, body, publishedAt}`
	if err := c.Query(ctx, query, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
