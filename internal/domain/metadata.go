package domain

import (
	"encoding/json"
	"strings"
)

// CardMetadata is the auxiliary per-card payload persisted alongside the
// memory state. It never influences scheduling.
type CardMetadata struct {
	Tags   []string `json:"tags,omitempty"`
	Source string   `json:"source,omitempty"`
	Note   string   `json:"note,omitempty"`
}

// ParseCardMetadata decodes a stored payload. Empty or malformed input yields
// the zero value so that a bad blob can never block scheduling.
func ParseCardMetadata(raw []byte) CardMetadata {
	var m CardMetadata
	if len(strings.TrimSpace(string(raw))) == 0 {
		return m
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return CardMetadata{}
	}
	tags := m.Tags[:0]
	for _, t := range m.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		tags = nil
	}
	m.Tags = tags
	return m
}

// Encode returns the storage form of m.
func (m CardMetadata) Encode() []byte {
	b, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// Clone returns a copy of m that shares no slices with it.
func (m CardMetadata) Clone() CardMetadata {
	cp := m
	if m.Tags != nil {
		cp.Tags = append([]string(nil), m.Tags...)
	}
	return cp
}
