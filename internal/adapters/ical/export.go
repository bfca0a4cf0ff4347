package ical

import (
	"bytes"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"venuebooking/internal/domain"
)

// PrivateSummary replaces the title of private events in exported feeds.
const PrivateSummary = "Privates Event"

const productID = "-//venuebooking//Belegungskalender//DE"

// Exporter renders confirmed events as an iCalendar feed.
type Exporter struct {
	name string
	now  func() time.Time
}

// NewExporter returns an exporter whose feed is named name.
func NewExporter(name string) *Exporter {
	return &Exporter{name: name, now: time.Now}
}

// Export returns the feed for events as bytes.
func (x *Exporter) Export(events []*domain.Event) ([]byte, error) {
	var buf bytes.Buffer
	if err := x.Write(&buf, events); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes events to w. Private events carry only their time slot.
func (x *Exporter) Write(w io.Writer, events []*domain.Event) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if x.name != "" {
		cal.SetName(x.name)
		cal.SetXWRCalName(x.name)
	}
	stamp := x.now().UTC()
	for _, e := range events {
		ve := cal.AddEvent(e.ID + "@venuebooking")
		ve.SetDtStampTime(stamp)
		ve.SetCreatedTime(e.CreatedAt)
		ve.SetModifiedAt(e.UpdatedAt)
		ve.SetStartAt(e.StartDate)
		ve.SetEndAt(e.EndDate)
		if e.IsPrivate {
			ve.SetSummary(PrivateSummary)
			ve.SetClass(ics.ClassificationPrivate)
			continue
		}
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != nil && *e.Location != "" {
			ve.SetLocation(*e.Location)
		}
	}
	return cal.SerializeTo(w)
}

var _ domain.CalendarExporter = (*Exporter)(nil)
