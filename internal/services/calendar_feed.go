package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
)

const (
	feedProductID  = "-//lua//cycle forecast//EN"
	feedUIDDomain  = "lua.local"
	feedRefreshTTL = 12 * time.Hour

	propRefreshInterval = "REFRESH-INTERVAL"
	propTransparency    = "TRANSP"
	propCalendarName    = "X-WR-CALNAME"

	// go-ical refuses a VCALENDAR without children; an x-comp keeps an
	// empty feed valid and is ignored by clients.
	compEmptyFeed = "X-LUA-EMPTY"
)

// FeedLabels are the localized event summaries written into the feed.
type FeedLabels struct {
	CalendarName    string
	LoggedPeriod    string
	PredictedPeriod string
	Ovulation       string
	FertileWindow   string
}

// BuildCalendarFeed renders logged periods and the forecast chain as an
// iCalendar document of all-day events. Ongoing periods end today.
func BuildCalendarFeed(snapshot Snapshot, labels FeedLabels, now time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, feedProductID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	name := ical.NewProp(propCalendarName)
	name.SetText(labels.CalendarName)
	name.Params.Del(ical.ParamValue)
	cal.Props.Set(name)
	refresh := ical.NewProp(propRefreshInterval)
	refresh.SetDuration(feedRefreshTTL)
	cal.Props.Set(refresh)

	stamp := now.UTC()
	for index, period := range snapshot.Periods {
		end := period.EndOrStart()
		if period.EndDate == nil && snapshot.Today > period.StartDate {
			end = snapshot.Today
		}
		uid := periodEventUID(period.ID, index)
		if event := allDayEvent(uid, labels.LoggedPeriod, period.StartDate, end, stamp); event != nil {
			cal.Children = append(cal.Children, event.Component)
		}
	}

	for _, cycle := range snapshot.FutureCycles {
		uid := fmt.Sprintf("forecast-%d@%s", cycle.CycleNumber, feedUIDDomain)
		if event := allDayEvent(uid, labels.PredictedPeriod, cycle.PredictedStart, cycle.PredictedEnd, stamp); event != nil {
			cal.Children = append(cal.Children, event.Component)
		}
		if cycle.Fertility == nil {
			continue
		}
		fertileUID := fmt.Sprintf("fertile-%d@%s", cycle.CycleNumber, feedUIDDomain)
		if event := allDayEvent(fertileUID, labels.FertileWindow, cycle.Fertility.FertileStart, cycle.Fertility.FertileEnd, stamp); event != nil {
			cal.Children = append(cal.Children, event.Component)
		}
		ovulationUID := fmt.Sprintf("ovulation-%d@%s", cycle.CycleNumber, feedUIDDomain)
		if event := allDayEvent(ovulationUID, labels.Ovulation, cycle.Fertility.OvulationDay, cycle.Fertility.OvulationDay, stamp); event != nil {
			cal.Children = append(cal.Children, event.Component)
		}
	}

	if len(cal.Children) == 0 {
		cal.Children = append(cal.Children, ical.NewComponent(compEmptyFeed))
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar feed: %w", err)
	}
	return buf.Bytes(), nil
}

// periodEventUID keys logged periods by record id so records sharing a start
// date stay distinct. Unsaved records fall back to their position.
func periodEventUID(id uint, index int) string {
	if id == 0 {
		return fmt.Sprintf("period-new-%d@%s", index+1, feedUIDDomain)
	}
	return fmt.Sprintf("period-%d@%s", id, feedUIDDomain)
}

// allDayEvent covers [start, end] inclusive; DTEND is exclusive in iCalendar.
func allDayEvent(uid string, summary string, start string, end string, stamp time.Time) *ical.Event {
	startDate, err := ParseDate(start)
	if err != nil {
		return nil
	}
	endDate, err := ParseDate(end)
	if err != nil || endDate.Before(startDate) {
		return nil
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	event.Props.SetText(ical.PropSummary, summary)
	event.Props.SetText(propTransparency, "TRANSPARENT")

	dtStart := ical.NewProp(ical.PropDateTimeStart)
	dtStart.SetDate(startDate)
	event.Props.Set(dtStart)

	dtEnd := ical.NewProp(ical.PropDateTimeEnd)
	dtEnd.SetDate(AddDays(endDate, 1))
	event.Props.Set(dtEnd)
	return event
}
