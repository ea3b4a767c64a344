package health

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	berr "github.com/next-trace/scg-health-router/contract/errors"
)

// Event is an AWS Health event as delivered by EventBridge.
// Health is nil when the envelope carries no detail object.
type Event struct {
	events.CloudWatchEvent

	Health *Detail `json:"-"`

	raw []byte
}

// Detail is the AWS Health specific part of the event.
// AffectedEntities is nil when the field is absent and empty when it is an empty list.
type Detail struct {
	EventArn          string   `json:"eventArn"`
	Service           string   `json:"service,omitempty"`
	EventTypeCode     string   `json:"eventTypeCode,omitempty"`
	EventTypeCategory string   `json:"eventTypeCategory,omitempty"`
	AffectedEntities  []Entity `json:"affectedEntities,omitempty"`
}

// Entity is one resource affected by the event.
// TagsErr is set when tags were present but could not be decoded; Tags is then nil.
type Entity struct {
	EntityValue  string `json:"entityValue"`
	EntityArn    string `json:"entityArn,omitempty"`
	AwsAccountID string `json:"awsAccountId,omitempty"`
	Tags         TagSet `json:"-"`
	TagsErr      error  `json:"-"`

	rawTags json.RawMessage
}

// ParseEvent decodes a raw EventBridge payload and keeps the bytes for forwarding.
func ParseEvent(b []byte) (*Event, error) {
	ev := &Event{}
	if err := json.Unmarshal(b, &ev.CloudWatchEvent); err != nil {
		return nil, fmt.Errorf("parse event: %w", errors.Join(berr.ErrMalformedEvent, err))
	}

	detail := bytes.TrimSpace(ev.Detail)
	if len(detail) > 0 && !bytes.Equal(detail, []byte("null")) {
		ev.Health = &Detail{}
		if err := json.Unmarshal(detail, ev.Health); err != nil {
			return nil, fmt.Errorf("parse event detail: %w", errors.Join(berr.ErrMalformedEvent, err))
		}
	}

	ev.raw = append([]byte(nil), b...)

	return ev, nil
}

// NewEvent builds an event around a Health detail. Used when no raw payload exists.
func NewEvent(d Detail) *Event {
	return &Event{
		CloudWatchEvent: events.CloudWatchEvent{
			Source:     "aws.health",
			DetailType: "AWS Health Event",
		},
		Health: &d,
	}
}

// EventArn returns the Health event ARN, or an empty string.
func (e *Event) EventArn() string {
	if e == nil || e.Health == nil {
		return ""
	}

	return e.Health.EventArn
}

// Payload returns the bytes forwarded to channels: the original payload when the
// event was parsed, otherwise a fresh encoding of the envelope and detail.
func (e *Event) Payload() ([]byte, error) {
	if len(e.raw) > 0 {
		return e.raw, nil
	}

	env := e.CloudWatchEvent
	if e.Health != nil {
		d, err := json.Marshal(e.Health)
		if err != nil {
			return nil, fmt.Errorf("encode event detail: %w", errors.Join(berr.ErrSerializationFailed, err))
		}

		env.Detail = d
	}

	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	return b, nil
}

// UnmarshalJSON decodes an entity, selecting the TagSet variant from the tags shape.
// Undecodable tags are recorded in TagsErr so one entity cannot fail the whole event.
func (e *Entity) UnmarshalJSON(b []byte) error {
	type plain Entity

	aux := struct {
		*plain
		Tags json.RawMessage `json:"tags"`
	}{plain: (*plain)(e)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	tags, err := decodeTagSet(aux.Tags)
	if err != nil {
		e.Tags, e.TagsErr = nil, fmt.Errorf("entity %s: %w", e.EntityValue, err)
		e.rawTags = append(json.RawMessage(nil), aux.Tags...)

		return nil
	}

	e.Tags, e.TagsErr, e.rawTags = tags, nil, nil

	return nil
}

// MarshalJSON encodes an entity with its tags in their original shape. Undecodable tags
// are written back as received.
func (e Entity) MarshalJSON() ([]byte, error) {
	type plain Entity

	var tags any
	switch {
	case e.Tags != nil:
		tags = e.Tags
	case len(e.rawTags) > 0:
		tags = e.rawTags
	}

	return json.Marshal(struct {
		plain
		Tags any `json:"tags,omitempty"`
	}{plain: plain(e), Tags: tags})
}
