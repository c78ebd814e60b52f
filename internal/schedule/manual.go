package schedule

import (
	"sort"
	"time"
)

// Manual is a Scheduler driven by virtual time, for tests. It is not safe
// for concurrent use.
type Manual struct {
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	due       time.Duration
	seq       int
	fn        func()
	cancelled bool
	ran       bool
}

func (t *manualTask) Cancel() bool {
	if t.cancelled || t.ran {
		return false
	}
	t.cancelled = true
	return true
}

// NewManual returns a scheduler at virtual time zero.
func NewManual() *Manual { return &Manual{} }

func (m *Manual) After(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTask{due: m.now + d, seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

// Pending counts tasks that have neither run nor been cancelled.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.tasks {
		if !t.cancelled && !t.ran {
			n++
		}
	}
	return n
}

// Now returns the virtual time.
func (m *Manual) Now() time.Duration { return m.now }

// Advance moves virtual time forward by d and runs every task that falls
// due, including ones scheduled by the tasks it runs. It returns the number
// of tasks run.
func (m *Manual) Advance(d time.Duration) int {
	target := m.now + d
	ran := 0
	for {
		t := m.next()
		if t == nil || t.due > target {
			break
		}
		m.now = t.due
		t.ran = true
		t.fn()
		ran++
	}
	m.now = target
	m.compact()
	return ran
}

// Flush runs tasks in due order until none remain, advancing time as needed.
func (m *Manual) Flush() int {
	ran := 0
	for {
		t := m.next()
		if t == nil {
			break
		}
		ran += m.Advance(t.due - m.now)
	}
	return ran
}

func (m *Manual) next() *manualTask {
	live := make([]*manualTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		if !t.cancelled && !t.ran {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].due != live[j].due {
			return live[i].due < live[j].due
		}
		return live[i].seq < live[j].seq
	})
	return live[0]
}

func (m *Manual) compact() {
	kept := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.cancelled && !t.ran {
			kept = append(kept, t)
		}
	}
	m.tasks = kept
}
