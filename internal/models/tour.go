package models

// ActivityPlace is the concrete place chosen for an activity.
type ActivityPlace struct {
	Location Location
	Duration Duration
	Time     TimeWindow
}

// Activity is a stop in a tour. Job is nil for the tour start and end.
type Activity struct {
	Place    ActivityPlace
	Schedule Schedule
	Job      *Single
}

// NewActivity creates an activity serving a single job at the given place.
func NewActivity(job *Single, location Location, duration Duration, tw TimeWindow) *Activity {
	return &Activity{
		Place: ActivityPlace{Location: location, Duration: duration, Time: tw},
		Job:   job,
	}
}

// Clone returns a copy of the activity sharing the job reference.
func (a *Activity) Clone() *Activity {
	c := *a
	return &c
}

// RootJob returns the job which owns the activity or nil.
func (a *Activity) RootJob() Job {
	if a.Job == nil {
		return nil
	}
	return a.Job.Root()
}

// Tour is the ordered list of activities served by one actor. The first
// activity is the departure from the actor start; the last one is the
// arrival at the actor end unless the tour is open.
type Tour struct {
	activities []*Activity
	jobs       map[Job]int
	hasEnd     bool
}

// NewTour creates an empty tour for the actor.
func NewTour(actor *Actor) *Tour {
	detail := actor.Detail
	start := &Activity{
		Place:    ActivityPlace{Location: detail.Start, Time: detail.Time},
		Schedule: Schedule{Arrival: detail.Time.Start, Departure: detail.Time.Start},
	}
	t := &Tour{activities: []*Activity{start}, jobs: make(map[Job]int)}
	if detail.HasEnd {
		t.activities = append(t.activities, &Activity{
			Place:    ActivityPlace{Location: detail.End, Time: detail.Time},
			Schedule: Schedule{Arrival: detail.Time.End, Departure: detail.Time.End},
		})
		t.hasEnd = true
	}
	return t
}

// Start returns the start activity.
func (t *Tour) Start() *Activity { return t.activities[0] }

// End returns the end activity or nil for an open tour.
func (t *Tour) End() *Activity {
	if !t.hasEnd {
		return nil
	}
	return t.activities[len(t.activities)-1]
}

// HasEnd reports whether the tour returns to an end location.
func (t *Tour) HasEnd() bool { return t.hasEnd }

// Activities returns all activities including start and end.
func (t *Tour) Activities() []*Activity { return t.activities }

// Get returns the activity at index or nil when out of range.
func (t *Tour) Get(index int) *Activity {
	if index < 0 || index >= len(t.activities) {
		return nil
	}
	return t.activities[index]
}

// Total returns the number of activities including start and end.
func (t *Tour) Total() int { return len(t.activities) }

// JobActivityCount returns the number of activities serving jobs.
func (t *Tour) JobActivityCount() int {
	n := len(t.activities) - 1
	if t.hasEnd {
		n--
	}
	return n
}

// LastInsertionIndex returns the largest index a job activity can be
// inserted at.
func (t *Tour) LastInsertionIndex() int {
	if t.hasEnd {
		return len(t.activities) - 1
	}
	return len(t.activities)
}

// Insert places the activity at index, shifting the following activities.
// The index must be in [1, LastInsertionIndex()].
func (t *Tour) Insert(activity *Activity, index int) {
	if index < 1 || index > t.LastInsertionIndex() {
		panic(NewErrorf("insertion index %d out of range [1, %d]", index, t.LastInsertionIndex()).WithOperation("Tour.Insert"))
	}
	t.activities = append(t.activities, nil)
	copy(t.activities[index+1:], t.activities[index:])
	t.activities[index] = activity
	if root := activity.RootJob(); root != nil {
		t.jobs[root]++
	}
}

// RemoveJob removes every activity belonging to the job's root and reports
// whether anything was removed.
func (t *Tour) RemoveJob(job Job) bool {
	root := rootOf(job)
	if _, ok := t.jobs[root]; !ok {
		return false
	}
	kept := t.activities[:0]
	for _, activity := range t.activities {
		if activity.Job != nil && activity.RootJob() == root {
			continue
		}
		kept = append(kept, activity)
	}
	for i := len(kept); i < len(t.activities); i++ {
		t.activities[i] = nil
	}
	t.activities = kept
	delete(t.jobs, root)
	return true
}

// Contains reports whether the job's root is served by the tour.
func (t *Tour) Contains(job Job) bool {
	_, ok := t.jobs[rootOf(job)]
	return ok
}

// Index returns the activity index of a single job or -1.
func (t *Tour) Index(job *Single) int {
	for i, activity := range t.activities {
		if activity.Job == job {
			return i
		}
	}
	return -1
}

// Jobs returns the root jobs in order of their first activity.
func (t *Tour) Jobs() []Job {
	jobs := make([]Job, 0, len(t.jobs))
	seen := make(map[Job]bool, len(t.jobs))
	for _, activity := range t.activities {
		root := activity.RootJob()
		if root == nil || seen[root] {
			continue
		}
		seen[root] = true
		jobs = append(jobs, root)
	}
	return jobs
}

// JobCount returns the number of root jobs in the tour.
func (t *Tour) JobCount() int { return len(t.jobs) }

// HasJobs reports whether the tour serves any job.
func (t *Tour) HasJobs() bool { return len(t.jobs) > 0 }

// Clone returns a deep copy of the tour.
func (t *Tour) Clone() *Tour {
	c := &Tour{
		activities: make([]*Activity, len(t.activities)),
		jobs:       make(map[Job]int, len(t.jobs)),
		hasEnd:     t.hasEnd,
	}
	for i, activity := range t.activities {
		c.activities[i] = activity.Clone()
	}
	for job, n := range t.jobs {
		c.jobs[job] = n
	}
	return c
}

func rootOf(job Job) Job {
	if single, ok := job.(*Single); ok {
		return single.Root()
	}
	return job
}
