package schedule

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/fieldops/dispatch-api/internal/models"
)

// GreedyStrategy is the local fallback: highest-value jobs first, earliest
// feasible slot wins. It never fails; jobs that fit nowhere in the horizon are
// simply left out of the proposal.
type GreedyStrategy struct{}

func NewGreedyStrategy() *GreedyStrategy {
	return &GreedyStrategy{}
}

func (s *GreedyStrategy) Name() string { return "local_greedy" }

func (s *GreedyStrategy) Propose(_ context.Context, jobs []models.Job, model PlanModel) (models.ScheduleProposal, error) {
	ordered := make([]models.Job, len(jobs))
	copy(ordered, jobs)
	// Stable: equal-value jobs keep their input order.
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ValueCents > ordered[j].ValueCents
	})

	// Working copies of per-day free intervals and per-member busy windows,
	// consumed as jobs are placed.
	free := make([][]Interval, len(model.Days))
	for i, day := range model.Days {
		free[i] = append([]Interval(nil), day.Free...)
	}
	busy := make(map[string][]Interval, len(model.MemberBusy))
	for id, ivs := range model.MemberBusy {
		busy[id] = append([]Interval(nil), ivs...)
	}

	proposal := models.ScheduleProposal{Strategy: s.Name()}
	for _, job := range ordered {
		slot, dayIdx, ok := s.earliestSlot(job, model, free)
		if !ok {
			continue
		}
		window := Interval{Start: slot.start, End: slot.start.Add(job.Duration() + model.Buffer)}
		free[dayIdx] = subtract(free[dayIdx], window)

		member := pickMember(model.Team, busy, window)
		if member != "" {
			busy[member] = append(busy[member], window)
		}

		proposal.Entries = append(proposal.Entries, models.ProposalEntry{
			JobID:       job.ID,
			ScheduledAt: slot.start,
			AssignedTo:  member,
			Reason:      slot.reason,
		})
	}
	return proposal, nil
}

type candidateSlot struct {
	start   time.Time
	inBlock bool
	reason  string
}

// earliestSlot scans days chronologically and returns the first feasible
// start for the job. Among equally-early candidates, a slot inside a matching
// priority block wins.
func (s *GreedyStrategy) earliestSlot(job models.Job, model PlanModel, free [][]Interval) (candidateSlot, int, bool) {
	for i, day := range model.Days {
		if day.Closed {
			continue
		}
		if day.Rainy && job.WeatherSensitive {
			continue
		}

		var best *candidateSlot
		for _, iv := range free[i] {
			slot, ok := placeInInterval(job, iv, day, model.Buffer)
			if !ok {
				continue
			}
			if best == nil || slot.start.Before(best.start) ||
				(slot.start.Equal(best.start) && slot.inBlock && !best.inBlock) {
				c := slot
				best = &c
			}
		}
		if best != nil {
			return *best, i, true
		}
	}
	return candidateSlot{}, 0, false
}

// placeInInterval finds the earliest start inside iv where the job fits and no
// non-matching priority block is trampled. Advancing past a blocked stretch
// and retrying keeps the scan linear in the number of blocks.
func placeInInterval(job models.Job, iv Interval, day DayPlan, buffer time.Duration) (candidateSlot, bool) {
	start := iv.Start
	for {
		if !fits(start, job.Duration(), buffer, iv, day.Hours) {
			return candidateSlot{}, false
		}
		window := Interval{Start: start, End: start.Add(job.Duration())}
		blocked, blockEnd := blockedBy(window, job, day.Blocks)
		if !blocked {
			slot := candidateSlot{start: start, reason: "earliest open slot"}
			if bw, in := insideMatchingBlock(window, job, day.Blocks); in {
				slot.inBlock = true
				slot.reason = "fills " + bw.Block.PriorityFor + " priority window"
			}
			return slot, true
		}
		if !blockEnd.After(start) {
			return candidateSlot{}, false
		}
		start = blockEnd
	}
}

// fits requires the buffered window to sit inside the free interval, except
// that the trailing buffer may spill past closing time when nothing follows.
func fits(start time.Time, dur, buffer time.Duration, iv Interval, hours Interval) bool {
	end := start.Add(dur)
	if end.After(iv.End) {
		return false
	}
	if !end.Add(buffer).After(iv.End) {
		return true
	}
	return iv.End.Equal(hours.End)
}

// blockedBy reports whether the window overlaps a priority block reserved for
// a category the job does not match, and if so where the blocking window ends.
func blockedBy(window Interval, job models.Job, blocks []BlockWindow) (bool, time.Time) {
	for _, bw := range blocks {
		if !window.Overlaps(bw.Window) {
			continue
		}
		if !matchesBlock(job, bw.Block) {
			return true, bw.Window.End
		}
	}
	return false, time.Time{}
}

func insideMatchingBlock(window Interval, job models.Job, blocks []BlockWindow) (BlockWindow, bool) {
	for _, bw := range blocks {
		if window.Overlaps(bw.Window) && matchesBlock(job, bw.Block) {
			return bw, true
		}
	}
	return BlockWindow{}, false
}

func matchesBlock(job models.Job, block models.PriorityBlock) bool {
	return strings.EqualFold(strings.TrimSpace(job.Category), strings.TrimSpace(block.PriorityFor))
}

// pickMember returns the first active team member free for the window, or ""
// when the roster is empty or fully booked. An empty roster is a permissive
// default, not an error.
func pickMember(team []models.TeamMember, busy map[string][]Interval, window Interval) string {
	for _, m := range team {
		conflict := false
		for _, iv := range busy[m.ID] {
			if iv.Overlaps(window) {
				conflict = true
				break
			}
		}
		if !conflict {
			return m.ID
		}
	}
	return ""
}
