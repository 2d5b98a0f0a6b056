package engine

import (
	"fmt"
	"time"
)

// Follow-up contact channels.
const (
	ChannelHigh   = "Phone + SMS + App"
	ChannelMedium = "SMS + App"
	ChannelLow    = "Portal / Email"
)

// Offset is one scheduled contact relative to discharge.
type Offset struct {
	Label string        `json:"label"`
	After time.Duration `json:"after_seconds"`
}

// String returns the offset label.
func (o Offset) String() string {
	return o.Label
}

// FollowUpPlan is the contact cadence for a risk band.
type FollowUpPlan struct {
	RiskBand  RiskBand `json:"risk_band"`
	Channel   string   `json:"channel"`
	Schedule  []Offset `json:"-"`
	Note      string   `json:"note"`
	Rationale string   `json:"rationale"`
}

// ScheduleLabels returns the schedule as display labels, e.g. "48 hours".
func (p FollowUpPlan) ScheduleLabels() []string {
	out := make([]string, len(p.Schedule))
	for i, o := range p.Schedule {
		out[i] = o.Label
	}
	return out
}

// NextVisit returns the first scheduled contact.
func (p FollowUpPlan) NextVisit() (Offset, bool) {
	if len(p.Schedule) == 0 {
		return Offset{}, false
	}
	return p.Schedule[0], true
}

const day = 24 * time.Hour

type planTemplate struct {
	channel  string
	schedule []Offset
	note     string
}

var planTable = map[RiskBand]planTemplate{
	BandHigh: {
		channel:  ChannelHigh,
		schedule: []Offset{{"48 hours", 2 * day}, {"7 days", 7 * day}, {"14 days", 14 * day}},
		note:     "High risk of readmission. Arrange follow-up within 2 days.",
	},
	BandMedium: {
		channel:  ChannelMedium,
		schedule: []Offset{{"5 days", 5 * day}, {"14 days", 14 * day}},
		note:     "Moderate risk. Review within 4–5 days.",
	},
	BandLow: {
		channel:  ChannelLow,
		schedule: []Offset{{"14 days", 14 * day}},
		note:     "Low risk. Routine follow-up in 1–2 weeks.",
	},
}

// Planner maps risk bands to follow-up plans.
type Planner struct{}

// NewPlanner creates a Planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan returns the follow-up plan for band. Unknown bands get the Low plan.
func (p *Planner) Plan(band RiskBand, condition ConditionType) FollowUpPlan {
	tpl, ok := planTable[band]
	if !ok {
		band = BandLow
		tpl = planTable[BandLow]
	}
	schedule := make([]Offset, len(tpl.schedule))
	copy(schedule, tpl.schedule)
	return FollowUpPlan{
		RiskBand:  band,
		Channel:   tpl.channel,
		Schedule:  schedule,
		Note:      tpl.note,
		Rationale: fmt.Sprintf("%s risk %s patient. %s", band, condition.Label(), tpl.note),
	}
}
