package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fieldops/dispatch-api/internal/models"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// subtract removes busy from each interval in ivs, splitting where needed.
// Input and output are sorted and non-overlapping.
func subtract(ivs []Interval, busy Interval) []Interval {
	var out []Interval
	for _, iv := range ivs {
		if !iv.Overlaps(busy) {
			out = append(out, iv)
			continue
		}
		if busy.Start.After(iv.Start) {
			out = append(out, Interval{Start: iv.Start, End: busy.Start})
		}
		if busy.End.Before(iv.End) {
			out = append(out, Interval{Start: busy.End, End: iv.End})
		}
	}
	return out
}

// BookedJob is an already-scheduled job inside the planning window, carried on
// the model both for overlap checks and for serialization to the remote
// strategy.
type BookedJob struct {
	JobID      string
	Title      string
	Start      time.Time
	Duration   time.Duration
	AssignedTo string
}

// Window returns the booking's occupied range including the trailing buffer.
func (b BookedJob) Window(buffer time.Duration) Interval {
	return Interval{Start: b.Start, End: b.Start.Add(b.Duration + buffer)}
}

// BlockWindow is a priority block resolved onto a concrete day.
type BlockWindow struct {
	Block  models.PriorityBlock
	Window Interval
}

// DayPlan is the canonical per-day view the optimizer works from: opening
// hours, what is still free after buffering existing bookings, which priority
// blocks apply, and whether the forecast flags the day as rainy.
type DayPlan struct {
	Date   time.Time // midnight, local to the planning run
	Closed bool
	Hours  Interval
	Free   []Interval
	Blocks []BlockWindow
	Rainy  bool
}

// PlanModel is the output of the constraint model builder. It is pure data;
// strategies and the validator read it, nothing mutates it after Build.
type PlanModel struct {
	Days       []DayPlan
	Team       []models.TeamMember
	Booked     []BookedJob
	MemberBusy map[string][]Interval
	Hours      models.WeekHours
	Blocks     []models.PriorityBlock
	Weather    map[string]models.WeatherDay // keyed by "2006-01-02"
	Buffer     time.Duration
}

// DayFor returns the plan for the calendar day containing t.
func (m PlanModel) DayFor(t time.Time) (DayPlan, bool) {
	date := midnight(t)
	for _, d := range m.Days {
		if d.Date.Equal(date) {
			return d, true
		}
	}
	return DayPlan{}, false
}

// PlanInputs are the raw collaborator-supplied facts a planning run starts
// from. All slices may be empty; missing weather and team data degrade to
// permissive defaults.
type PlanInputs struct {
	Booked      []models.Job
	Assignments map[string]string // job id -> team member id
	Team        []models.TeamMember
	Hours       models.WeekHours
	Blocks      []models.PriorityBlock
	Weather     []models.WeatherDay
}

type PlanOptions struct {
	Start         time.Time
	HorizonDays   int
	Buffer        time.Duration
	RainThreshold int
}

// BuildPlanModel normalizes raw inputs into the per-day window model. It has
// no side effects; a malformed business-hours entry renders that weekday
// closed rather than failing the run.
func BuildPlanModel(in PlanInputs, opts PlanOptions) PlanModel {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 7
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 30 * time.Minute
	}
	if opts.RainThreshold <= 0 {
		opts.RainThreshold = 60
	}

	model := PlanModel{
		Team:       activeMembers(in.Team),
		MemberBusy: make(map[string][]Interval),
		Hours:      in.Hours,
		Blocks:     enabledBlocks(in.Blocks),
		Weather:    make(map[string]models.WeatherDay),
		Buffer:     opts.Buffer,
	}

	for _, w := range in.Weather {
		model.Weather[w.Date.Format("2006-01-02")] = w
	}

	for _, job := range in.Booked {
		if job.ScheduledAt == nil {
			continue
		}
		booked := BookedJob{
			JobID:      job.ID,
			Title:      job.Title,
			Start:      *job.ScheduledAt,
			Duration:   job.Duration(),
			AssignedTo: in.Assignments[job.ID],
		}
		model.Booked = append(model.Booked, booked)
		if booked.AssignedTo != "" {
			model.MemberBusy[booked.AssignedTo] = append(model.MemberBusy[booked.AssignedTo], booked.Window(opts.Buffer))
		}
	}
	sort.Slice(model.Booked, func(i, j int) bool { return model.Booked[i].Start.Before(model.Booked[j].Start) })

	start := opts.Start
	for i := 0; i < opts.HorizonDays; i++ {
		date := midnight(start).AddDate(0, 0, i)
		day := buildDay(date, in.Hours.For(date.Weekday()), model, opts)
		// Clip the first day so nothing is proposed in the past.
		if i == 0 && !day.Closed {
			for !day.Closed && len(day.Free) > 0 && day.Free[0].End.Before(start) {
				day.Free = day.Free[1:]
			}
			if len(day.Free) > 0 && day.Free[0].Start.Before(start) && start.Before(day.Free[0].End) {
				day.Free[0].Start = start
			}
		}
		model.Days = append(model.Days, day)
	}

	return model
}

func buildDay(date time.Time, hours models.DayHours, model PlanModel, opts PlanOptions) DayPlan {
	day := DayPlan{Date: date}

	open, errOpen := clockOn(date, hours.OpenTime)
	close, errClose := clockOn(date, hours.CloseTime)
	if hours.Closed || errOpen != nil || errClose != nil || !open.Before(close) {
		day.Closed = true
		return day
	}
	day.Hours = Interval{Start: open, End: close}
	day.Free = []Interval{day.Hours}

	for _, booked := range model.Booked {
		day.Free = subtract(day.Free, booked.Window(opts.Buffer))
	}

	for _, block := range model.Blocks {
		if !block.AppliesOn(date.Weekday()) {
			continue
		}
		bs, err1 := clockOn(date, block.StartTime)
		be, err2 := clockOn(date, block.EndTime)
		if err1 != nil || err2 != nil || !bs.Before(be) {
			continue
		}
		day.Blocks = append(day.Blocks, BlockWindow{Block: block, Window: Interval{Start: bs, End: be}})
	}

	if w, ok := model.Weather[date.Format("2006-01-02")]; ok {
		day.Rainy = w.RainProbability >= opts.RainThreshold
	}

	return day
}

func activeMembers(team []models.TeamMember) []models.TeamMember {
	var out []models.TeamMember
	for _, m := range team {
		if m.Active {
			out = append(out, m)
		}
	}
	return out
}

func enabledBlocks(blocks []models.PriorityBlock) []models.PriorityBlock {
	var out []models.PriorityBlock
	for _, b := range blocks {
		if b.Enabled {
			out = append(out, b)
		}
	}
	return out
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// clockOn anchors a wall-clock string ("15:04" or "15:04:05") onto a date.
func clockOn(date time.Time, clock string) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	var h, m, s int
	if _, err := fmt.Sscanf(clock, "%d:%d:%d", &h, &m, &s); err != nil {
		s = 0
		if _, err := fmt.Sscanf(clock, "%d:%d", &h, &m); err != nil {
			return time.Time{}, fmt.Errorf("invalid clock %q", clock)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return time.Time{}, fmt.Errorf("invalid clock %q", clock)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, s, 0, date.Location()), nil
}
