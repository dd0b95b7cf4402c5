// Package ics reads venue events from iCalendar feeds. Every VEVENT with a
// LOCATION becomes a VenueEvent keyed by its UID.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	ical "github.com/arran4/golang-ical"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
)

// Parse decodes an ICS payload into venue events. VEVENTs without UID or
// LOCATION are skipped; a recurring event yields one VenueEvent because all
// of its instances share one venue.
func Parse(body []byte, logger *slog.Logger) ([]domain.VenueEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	language := calendarLanguage(cal)
	seen := make(map[string]bool)
	events := make([]domain.VenueEvent, 0)

	for _, ve := range cal.Events() {
		ev, ok := venueEvent(ve, language)
		if !ok {
			logger.Debug("ics event skipped, no uid or location", "uid", ev.EventID)
			continue
		}
		if seen[ev.EventID] {
			continue
		}
		seen[ev.EventID] = true
		events = append(events, ev)
	}
	return events, nil
}

func venueEvent(ve *ical.VEvent, language string) (domain.VenueEvent, bool) {
	ev := domain.VenueEvent{Language: language}
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.EventID = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Address = domain.Sanitize(p.Value)
	}
	ev.VenueName = venueName(ev.Address)
	return ev, ev.EventID != "" && ev.Address != ""
}

// venueName returns the leading segment of a multi-segment LOCATION when it
// names a place rather than a street line. SUMMARY is the event title, not
// the venue.
func venueName(location string) string {
	head, _, found := strings.Cut(location, ",")
	head = strings.TrimSpace(head)
	if !found || head == "" || strings.ContainsFunc(head, unicode.IsDigit) {
		return ""
	}
	return head
}

// calendarLanguage returns the primary subtag of the calendar's
// X-WR-LANGUAGE or LANGUAGE property, if any.
func calendarLanguage(cal *ical.Calendar) string {
	for _, p := range cal.CalendarProperties {
		switch strings.ToUpper(p.IANAToken) {
		case "X-WR-LANGUAGE", "LANGUAGE":
			lang, _, _ := strings.Cut(strings.TrimSpace(p.Value), "-")
			return strings.ToLower(lang)
		}
	}
	return ""
}
