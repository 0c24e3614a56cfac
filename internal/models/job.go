package models

import (
	"fmt"
	"sync"
)

// Place is one possible way to serve a single job.
type Place struct {
	Location Location     `json:"location"`
	Duration Duration     `json:"duration"`
	Times    []TimeWindow `json:"times"`
}

// Job is a unit of work: either a *Single or a *Multi.
type Job interface {
	ID() string
	Dimensions() Dimensions
	isJob()
}

// Single is a job served by exactly one activity.
type Single struct {
	places []Place
	dimens Dimensions
	multi  *Multi
}

// NewSingle creates a single job. At least one place is required.
func NewSingle(places []Place, dimens Dimensions) *Single {
	if len(places) == 0 {
		panic(NewErrorf("single job %q has no places", dimens.ID()).WithOperation("NewSingle"))
	}
	if dimens == nil {
		dimens = NewDimensions()
	}
	return &Single{places: places, dimens: dimens}
}

func (s *Single) isJob() {}

// ID returns the job id.
func (s *Single) ID() string { return s.dimens.ID() }

// Dimensions returns the job attributes.
func (s *Single) Dimensions() Dimensions { return s.dimens }

// Places returns the alternative places.
func (s *Single) Places() []Place { return s.places }

// Multi returns the owning multi job or nil for a standalone single.
func (s *Single) Multi() *Multi { return s.multi }

// Root returns the job which must be assigned or removed as a whole.
func (s *Single) Root() Job {
	if s.multi != nil {
		return s.multi
	}
	return s
}

// PermutationGenerator returns the legal orderings of a multi job's parts as
// index sequences into Multi.Jobs(). It must be free of side effects.
type PermutationGenerator func(m *Multi) [][]int

// IdentityPermutation allows the declared order only.
func IdentityPermutation(m *Multi) [][]int {
	perm := make([]int, len(m.jobs))
	for i := range perm {
		perm[i] = i
	}
	return [][]int{perm}
}

// Multi is a group of singles which must be served together by one tour.
type Multi struct {
	jobs      []*Single
	dimens    Dimensions
	generator PermutationGenerator

	once         sync.Once
	permutations [][]int
}

// NewMulti creates a multi job served in declared order.
func NewMulti(jobs []*Single, dimens Dimensions) *Multi {
	return NewMultiWithGenerator(jobs, dimens, IdentityPermutation)
}

// NewMultiWithGenerator creates a multi job with custom orderings. At least
// one part is required. The parts are bound to the returned multi and must not be shared with another job.
func NewMultiWithGenerator(jobs []*Single, dimens Dimensions, generator PermutationGenerator) *Multi {
	if dimens == nil {
		dimens = NewDimensions()
	}
	if len(jobs) == 0 {
		panic(NewErrorf("multi job %q has no parts", dimens.ID()).WithOperation("NewMulti"))
	}
	if generator == nil {
		generator = IdentityPermutation
	}
	m := &Multi{jobs: jobs, dimens: dimens, generator: generator}
	for _, job := range jobs {
		if job.multi != nil && job.multi != m {
			panic(NewErrorf("single %q already belongs to multi %q", job.ID(), job.multi.ID()).WithOperation("NewMulti"))
		}
		job.multi = m
	}
	return m
}

func (m *Multi) isJob() {}

// ID returns the job id.
func (m *Multi) ID() string { return m.dimens.ID() }

// Dimensions returns the job attributes.
func (m *Multi) Dimensions() Dimensions { return m.dimens }

// Jobs returns the parts in declared order.
func (m *Multi) Jobs() []*Single { return m.jobs }

// Permutations returns the validated orderings produced by the generator.
// The result is computed once; an invalid ordering panics.
func (m *Multi) Permutations() [][]int {
	m.once.Do(func() {
		perms := m.generator(m)
		for _, perm := range perms {
			if err := validatePermutation(perm, len(m.jobs)); err != nil {
				panic(WrapErrorf(err, "multi %q", m.ID()).WithOperation("Multi.Permutations"))
			}
		}
		m.permutations = perms
	})
	return m.permutations
}

func validatePermutation(perm []int, size int) error {
	if len(perm) != size {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidPermutation, len(perm), size)
	}
	seen := make([]bool, size)
	for _, idx := range perm {
		if idx < 0 || idx >= size || seen[idx] {
			return fmt.Errorf("%w: %v", ErrInvalidPermutation, perm)
		}
		seen[idx] = true
	}
	return nil
}

// Jobs is the immutable set of all problem jobs with a stable order.
type Jobs struct {
	all   []Job
	index map[Job]int
}

// NewJobs creates the job set preserving the given order.
func NewJobs(jobs []Job) *Jobs {
	index := make(map[Job]int, len(jobs))
	for i, job := range jobs {
		index[job] = i
	}
	return &Jobs{all: jobs, index: index}
}

// All returns jobs in problem order.
func (j *Jobs) All() []Job { return j.all }

// Size returns the number of jobs.
func (j *Jobs) Size() int { return len(j.all) }

// Index returns the problem order of the job or -1 when unknown.
func (j *Jobs) Index(job Job) int {
	if idx, ok := j.index[job]; ok {
		return idx
	}
	return -1
}
