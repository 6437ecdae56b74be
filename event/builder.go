package event

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/nostrcore/crypto"
	"github.com/opd-ai/nostrcore/limits"
)

// Builder constructs and signs events. The zero value is not usable; call NewBuilder.
type Builder struct {
	timeProvider crypto.TimeProvider
}

// NewBuilder returns a builder stamping events with the wall clock.
func NewBuilder() *Builder {
	return NewBuilderWithTimeProvider(crypto.DefaultTimeProvider{})
}

// NewBuilderWithTimeProvider returns a builder stamping events with tp.
func NewBuilderWithTimeProvider(tp crypto.TimeProvider) *Builder {
	if tp == nil {
		tp = crypto.DefaultTimeProvider{}
	}
	return &Builder{timeProvider: tp}
}

// Build creates and signs an event of any kind.
func (b *Builder) Build(keys *crypto.Keys, kind Kind, tags []Tag, content string) (*Event, error) {
	if err := limits.ValidateEventContent(content); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	if err := limits.ValidateTagCount(len(tags)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	if tags == nil {
		tags = []Tag{}
	}

	ev := &Event{
		CreatedAt: b.timeProvider.Now().Unix(),
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}
	if err := ev.Sign(keys); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Builder.Build",
			"kind":     kind,
			"error":    err.Error(),
		}).Error("Failed to sign event")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Builder.Build",
		"kind":     kind,
		"event_id": ev.ID,
		"tags":     len(tags),
	}).Debug("Event built")

	return ev, nil
}

// BuildDelete creates a deletion request (kind 5) referencing ids with one
// "e" tag each. A nil reason leaves the content empty.
func (b *Builder) BuildDelete(keys *crypto.Keys, ids []EventID, reason *string) (*Event, error) {
	tags := make([]Tag, 0, len(ids))
	for _, id := range ids {
		tags = append(tags, Tag{"e", id.String()})
	}

	content := ""
	if reason != nil {
		content = *reason
	}
	return b.Build(keys, KindEventDeletion, tags, content)
}

// BuildTextNote creates a short text note (kind 1).
func (b *Builder) BuildTextNote(keys *crypto.Keys, content string, tags []Tag) (*Event, error) {
	return b.Build(keys, KindTextNote, tags, content)
}

// BuildContactList creates a contact list (kind 3) from "p" tags, preserving their order.
func (b *Builder) BuildContactList(keys *crypto.Keys, pTags []Tag) (*Event, error) {
	return b.Build(keys, KindContactList, pTags, "")
}
