package domain

import (
	"testing"

	"studio_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leadStages() []Stage {
	return []Stage{
		{ID: uuid.New(), Slug: SlugApproved, Name: "Approved", Order: 4},
		{ID: uuid.New(), Slug: "negotiation", Name: "In negotiation", Order: 3},
		{ID: uuid.New(), Slug: SlugPending, Name: "Pending", Order: 1},
		{ID: uuid.New(), Slug: "contacted", Name: "Contacted", Order: 2},
	}
}

func TestNewPipelineOrdersStages(t *testing.T) {
	p, err := NewPipeline(PipelineLead, leadStages())
	require.NoError(t, err)

	var slugs []string
	for _, st := range p.Stages() {
		slugs = append(slugs, st.Slug)
	}
	assert.Equal(t, []string{"pending", "contacted", "negotiation", "approved"}, slugs)
	assert.Equal(t, SlugPending, p.Intake().Slug)
	assert.Equal(t, SlugPending, p.First().Slug)
}

func TestNewPipelineRequiresFixedSlugs(t *testing.T) {
	stages := leadStages()[1:]
	_, err := NewPipeline(PipelineLead, stages)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = NewPipeline(PipelineEvent, []Stage{{ID: uuid.New(), Slug: "planning", Order: 1}})
	assert.NoError(t, err)

	_, err = NewPipeline(PipelineEvent, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestNewPipelineRejectsDuplicateSlugs(t *testing.T) {
	stages := append(leadStages(), Stage{ID: uuid.New(), Slug: "contacted", Order: 9})
	_, err := NewPipeline(PipelineLead, stages)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCanMove(t *testing.T) {
	p, err := NewPipeline(PipelineLead, leadStages())
	require.NoError(t, err)
	pending, _ := p.BySlug(SlugPending)
	negotiation, _ := p.BySlug("negotiation")
	contacted, _ := p.BySlug("contacted")
	approved, _ := p.BySlug(SlugApproved)

	assert.NoError(t, p.CanMove(pending.ID, negotiation.ID, ActorUser))
	assert.NoError(t, p.CanMove(negotiation.ID, contacted.ID, ActorUser), "backwards moves are free-form")
	assert.NoError(t, p.CanMove(negotiation.ID, approved.ID, ActorAuthorization))

	err = p.CanMove(negotiation.ID, approved.ID, ActorUser)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	err = p.CanMove(approved.ID, pending.ID, ActorUser)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	err = p.CanMove(pending.ID, uuid.New(), ActorUser)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	assert.NoError(t, p.CanMove(approved.ID, approved.ID, ActorAuthorization))
}

func TestTagsApproval(t *testing.T) {
	tags := NewTags("vip", TagCancelled, "vip")
	assert.True(t, tags.Cancelled())
	assert.Equal(t, []string{"cancelled", "vip"}, tags.Values())

	approved := ApplyApproval(tags)
	assert.False(t, approved.Cancelled())
	assert.True(t, approved.Has("vip"))
	assert.True(t, tags.Cancelled(), "original set is unchanged")

	assert.True(t, approved.With(TagCancelled).Cancelled())
}

func TestDefaultTemplates(t *testing.T) {
	templates, err := DefaultTemplates()
	require.NoError(t, err)

	lead := templates[PipelineLead]
	require.NotEmpty(t, lead)
	assert.Equal(t, SlugPending, lead[0].Slug)
	assert.Equal(t, 1, lead[0].Order)
	assert.NotEmpty(t, templates[PipelineEvent])
}

func TestParseTemplatesRejectsIncompleteLeadPipeline(t *testing.T) {
	_, err := ParseTemplates([]byte("lead:\n  - slug: pending\n    name: Pending\n"))
	assert.Error(t, err)

	_, err = ParseTemplates([]byte("nope: ["))
	assert.Error(t, err)
}
