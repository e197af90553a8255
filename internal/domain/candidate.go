package domain

import (
	"encoding/json"
	"time"
)

// Candidate is a lease held by a client before the server owned lease state.
// ExpiresAt is nil when the client sent no usable expiry.
type Candidate struct {
	ID        int
	Size      SizeClass
	Text      string
	Link      string
	ExpiresAt *time.Time
}

// UnmarshalJSON reads the client tile shape {id,size,text,link,expiresAt}.
// expiresAt may be an RFC 3339 string or epoch milliseconds; any other value
// leaves ExpiresAt nil instead of failing the decode.
func (c *Candidate) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID        int             `json:"id"`
		Size      SizeClass       `json:"size"`
		Text      string          `json:"text"`
		Link      string          `json:"link"`
		ExpiresAt json.RawMessage `json:"expiresAt"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*c = Candidate{
		ID:        raw.ID,
		Size:      raw.Size,
		Text:      raw.Text,
		Link:      raw.Link,
		ExpiresAt: parseExpiry(raw.ExpiresAt),
	}
	return nil
}

func parseExpiry(raw json.RawMessage) *time.Time {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil
		}
		return &t
	}

	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		t := time.UnixMilli(ms).UTC()
		return &t
	}
	return nil
}
