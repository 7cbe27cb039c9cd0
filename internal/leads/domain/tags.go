package domain

import "sort"

// TagCancelled marks a lead as cancelled without changing its stage.
const TagCancelled = "cancelled"

// Tags is an immutable set of status tags.
type Tags struct {
	set map[string]struct{}
}

// NewTags builds a tag set, ignoring duplicates and blanks.
func NewTags(values ...string) Tags {
	t := Tags{set: make(map[string]struct{}, len(values))}
	for _, v := range values {
		if v != "" {
			t.set[v] = struct{}{}
		}
	}
	return t
}

// Has reports whether tag is present.
func (t Tags) Has(tag string) bool {
	_, ok := t.set[tag]
	return ok
}

// Cancelled reports whether the cancelled tag is attached.
func (t Tags) Cancelled() bool { return t.Has(TagCancelled) }

// With returns a copy including tag.
func (t Tags) With(tag string) Tags {
	return NewTags(append(t.Values(), tag)...)
}

// Without returns a copy excluding tag.
func (t Tags) Without(tag string) Tags {
	out := NewTags()
	for v := range t.set {
		if v != tag {
			out.set[v] = struct{}{}
		}
	}
	return out
}

// Values returns the tags sorted.
func (t Tags) Values() []string {
	out := make([]string, 0, len(t.set))
	for v := range t.set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ApplyApproval clears the cancelled marker. Reaching approved supersedes a
// prior cancellation.
func ApplyApproval(t Tags) Tags {
	return t.Without(TagCancelled)
}
