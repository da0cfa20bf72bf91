package twitter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Tweet is a single post of the authenticated user.
// ID is opaque and compared as a string; it is never parsed as a number.
type Tweet struct {
	ID            string    `json:"id_str"`
	CreatedAt     time.Time `json:"created_at"`
	RetweetCount  int       `json:"retweet_count"`
	FavoriteCount int       `json:"favorite_count"`
	IsRetweet     bool      `json:"is_retweet"`
	Text          string    `json:"text"`
}

// User is a followed account as returned by friends/list.
type User struct {
	ID           string    `json:"id_str" yaml:"id"`
	ScreenName   string    `json:"screen_name" yaml:"screen_name"`
	Name         string    `json:"name" yaml:"name"`
	LastStatusAt time.Time `json:"last_status_at,omitzero" yaml:"last_status_at,omitempty"`
}

// FriendsPage is one cursor page of friends/list.
type FriendsPage struct {
	Users      []User
	NextCursor string
}

// wireTweet covers both the REST payload and the checkpoint form,
// so checkpoints written by older tools holding raw API objects still load.
type wireTweet struct {
	IDStr           string          `json:"id_str"`
	ID              json.Number     `json:"id"`
	CreatedAt       string          `json:"created_at"`
	RetweetCount    int             `json:"retweet_count"`
	FavoriteCount   int             `json:"favorite_count"`
	IsRetweet       bool            `json:"is_retweet"`
	RetweetedStatus json.RawMessage `json:"retweeted_status"`
	Text            string          `json:"text"`
	FullText        string          `json:"full_text"`
}

// UnmarshalJSON accepts RFC 3339 or the REST API's Ruby-style created_at.
func (t *Tweet) UnmarshalJSON(data []byte) error {
	var w wireTweet
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return err
	}

	id := w.IDStr
	if id == "" {
		id = w.ID.String()
	}
	if id == "" {
		return fmt.Errorf("tweet without id")
	}

	createdAt, err := parseTime(w.CreatedAt)
	if err != nil {
		return fmt.Errorf("tweet %s: %w", id, err)
	}

	text := w.Text
	if w.FullText != "" {
		text = w.FullText
	}

	*t = Tweet{
		ID:            id,
		CreatedAt:     createdAt,
		RetweetCount:  w.RetweetCount,
		FavoriteCount: w.FavoriteCount,
		IsRetweet:     w.IsRetweet || hasObject(w.RetweetedStatus),
		Text:          text,
	}
	return nil
}

type wireUser struct {
	IDStr      string      `json:"id_str"`
	ID         json.Number `json:"id"`
	ScreenName string      `json:"screen_name"`
	Name       string      `json:"name"`
	Status     *struct {
		CreatedAt string `json:"created_at"`
	} `json:"status"`
	LastStatusAt string `json:"last_status_at"`
}

// UnmarshalJSON reads either a friends/list user or a stored report entry.
func (u *User) UnmarshalJSON(data []byte) error {
	var w wireUser
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return err
	}

	id := w.IDStr
	if id == "" {
		id = w.ID.String()
	}

	raw := w.LastStatusAt
	if w.Status != nil && w.Status.CreatedAt != "" {
		raw = w.Status.CreatedAt
	}
	var last time.Time
	if raw != "" {
		parsed, err := parseTime(raw)
		if err != nil {
			return fmt.Errorf("user %s: %w", id, err)
		}
		last = parsed
	}

	*u = User{ID: id, ScreenName: w.ScreenName, Name: w.Name, LastStatusAt: last}
	return nil
}

// HasStatus reports whether the account ever posted.
func (u User) HasStatus() bool {
	return !u.LastStatusAt.IsZero()
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing created_at")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RubyDate, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t, nil
}

func hasObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
