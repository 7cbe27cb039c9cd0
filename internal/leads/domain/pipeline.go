// Package domain holds the lead pipeline rules.
package domain

import (
	"fmt"
	"sort"

	"studio_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

// PipelineKind identifies one of the studio's pipelines.
type PipelineKind string

const (
	PipelineLead  PipelineKind = "lead"
	PipelineEvent PipelineKind = "event"
)

// Valid reports whether k is a known pipeline kind.
func (k PipelineKind) Valid() bool {
	return k == PipelineLead || k == PipelineEvent
}

// Slugs with fixed meaning in the lead pipeline.
const (
	SlugPending  = "pending"
	SlugApproved = "approved"
)

// Stage is a tenant-defined pipeline stage.
type Stage struct {
	ID    uuid.UUID
	Slug  string
	Name  string
	Order int
}

// Actor identifies who requests a stage move.
type Actor int

const (
	ActorUser Actor = iota
	// ActorAuthorization is the quotation authorization flow, the only actor
	// allowed to move a lead into the approved stage.
	ActorAuthorization
)

// Pipeline is an ordered, immutable list of stages.
type Pipeline struct {
	kind   PipelineKind
	stages []Stage
	bySlug map[string]int
	byID   map[uuid.UUID]int
}

// NewPipeline validates and orders stages. Lead pipelines must define the
// pending and approved slugs; every pipeline needs at least one stage.
func NewPipeline(kind PipelineKind, stages []Stage) (*Pipeline, error) {
	if !kind.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown pipeline %q", kind))
	}
	if len(stages) == 0 {
		return nil, apperr.Validation(fmt.Sprintf("%s pipeline has no stages", kind))
	}

	sorted := make([]Stage, len(stages))
	copy(sorted, stages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	p := &Pipeline{
		kind:   kind,
		stages: sorted,
		bySlug: make(map[string]int, len(sorted)),
		byID:   make(map[uuid.UUID]int, len(sorted)),
	}
	for i, st := range sorted {
		if st.Slug == "" {
			return nil, apperr.Validation("stage slug is required")
		}
		if _, dup := p.bySlug[st.Slug]; dup {
			return nil, apperr.Validation(fmt.Sprintf("duplicate stage slug %q", st.Slug))
		}
		if _, dup := p.byID[st.ID]; dup {
			return nil, apperr.Validation("duplicate stage id")
		}
		p.bySlug[st.Slug] = i
		p.byID[st.ID] = i
	}

	if kind == PipelineLead {
		for _, required := range []string{SlugPending, SlugApproved} {
			if _, ok := p.bySlug[required]; !ok {
				return nil, apperr.Validation(fmt.Sprintf("lead pipeline requires a %q stage", required))
			}
		}
	}
	return p, nil
}

// Kind returns the pipeline kind.
func (p *Pipeline) Kind() PipelineKind { return p.kind }

// Stages returns the stages in order.
func (p *Pipeline) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// First returns the stage with the lowest order.
func (p *Pipeline) First() Stage { return p.stages[0] }

// Intake is where new records start: pending for leads, the first stage otherwise.
func (p *Pipeline) Intake() Stage {
	if p.kind == PipelineLead {
		st, _ := p.BySlug(SlugPending)
		return st
	}
	return p.First()
}

// BySlug looks a stage up by slug.
func (p *Pipeline) BySlug(slug string) (Stage, bool) {
	i, ok := p.bySlug[slug]
	if !ok {
		return Stage{}, false
	}
	return p.stages[i], true
}

// ByID looks a stage up by id.
func (p *Pipeline) ByID(id uuid.UUID) (Stage, bool) {
	i, ok := p.byID[id]
	if !ok {
		return Stage{}, false
	}
	return p.stages[i], true
}

// CanMove checks a move from one stage to another. Intermediate moves are
// free-form; approved is entered only through authorization and never left.
func (p *Pipeline) CanMove(from, to uuid.UUID, actor Actor) error {
	target, ok := p.ByID(to)
	if !ok {
		return apperr.Validation("target stage is not part of the pipeline")
	}
	current, ok := p.ByID(from)
	if !ok {
		return apperr.Validation("current stage is not part of the pipeline")
	}
	if current.ID == target.ID {
		return nil
	}
	if p.kind != PipelineLead {
		return nil
	}
	if current.Slug == SlugApproved {
		return apperr.Conflict("lead is already approved")
	}
	if target.Slug == SlugApproved && actor != ActorAuthorization {
		return apperr.Forbidden("leads reach the approved stage only through quotation authorization")
	}
	return nil
}
