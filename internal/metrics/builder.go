package metrics

// Builder assembles a Histogram name and tag set step by step.
type Builder struct {
	name string
	tags []Tag
}

// Named starts a builder for a histogram with the given metric name.
func Named(name string) *Builder {
	return &Builder{name: name}
}

// Tag appends a tag. Tags are rendered in the order they were added.
func (b *Builder) Tag(key, value string) *Builder {
	b.tags = append(b.tags, Tag{Key: key, Value: value})
	return b
}

// Finish creates the histogram. The builder can be reused afterwards.
func (b *Builder) Finish() *Histogram {
	tags := make([]Tag, len(b.tags))
	copy(tags, b.tags)
	return NewHistogram(b.name, tags)
}
