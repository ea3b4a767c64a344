package health

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProjectServiceKey is the resource tag that names the owning service.
const ProjectServiceKey = "PROJECT-SERVICE"

// TagSet is the set of tags attached to a resource. AWS surfaces tags either as an
// ordered list of Key/Value pairs or as a plain key/value object; both are TagSets.
// The interface is sealed: TagList and TagMap are the only variants.
type TagSet interface {
	Len() int
	tagSet()
}

// Tag is a single Key/Value pair as returned by the AWS tagging APIs.
type Tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// TagList is the list-of-pairs TagSet variant.
type TagList []Tag

// TagMap is the key/value TagSet variant.
type TagMap map[string]string

func (l TagList) Len() int { return len(l) }
func (TagList) tagSet()    {}

func (m TagMap) Len() int { return len(m) }
func (TagMap) tagSet()    {}

// ProjectService extracts the PROJECT-SERVICE value from a TagSet.
// In a TagList the last matching pair wins. Empty values never yield a service.
func ProjectService(ts TagSet) (string, bool) {
	var svc string

	switch t := ts.(type) {
	case TagList:
		for _, tag := range t {
			if tag.Key == ProjectServiceKey {
				svc = tag.Value
			}
		}
	case TagMap:
		svc = t[ProjectServiceKey]
	}

	return svc, svc != ""
}

// decodeTagSet picks the TagSet variant from the JSON token shape.
// A missing or null value decodes to a nil TagSet. Pairs and entries whose key or value is
// not a JSON string are dropped; any other shape is an error.
func decodeTagSet(raw json.RawMessage) (TagSet, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var pairs []struct{ Key, Value json.RawMessage }
		if err := json.Unmarshal(raw, &pairs); err != nil {
			return nil, err
		}

		l := make(TagList, 0, len(pairs))
		for _, p := range pairs {
			k, okKey := jsonString(p.Key)
			v, okValue := jsonString(p.Value)

			if okKey && okValue {
				l = append(l, Tag{Key: k, Value: v})
			}
		}

		return l, nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}

		m := make(TagMap, len(fields))
		for k, rv := range fields {
			if v, ok := jsonString(rv); ok {
				m[k] = v
			}
		}

		return m, nil
	default:
		return nil, fmt.Errorf("tags: unexpected json token %q", raw[0])
	}
}

func jsonString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}

	return s, true
}
