package content

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Author is a blog post author. The payload carries either a plain name or an
// object with a name and avatar.
type Author struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

func (a *Author) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &a.Name)
	}
	type plain Author
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Author(p)
	return nil
}

// MarshalJSON writes a bare name when there is no avatar, matching the shape
// most posts use.
func (a Author) MarshalJSON() ([]byte, error) {
	if a.Avatar == "" {
		return json.Marshal(a.Name)
	}
	type plain Author
	return json.Marshal(plain(a))
}

func (a Author) String() string {
	return a.Name
}

// BlogPost is one entry of the blog collection. Content holds rendered HTML
// once resolved.
type BlogPost struct {
	ID         string   `json:"id,omitempty"`
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Date       string   `json:"date,omitempty"`
	Author     Author   `json:"author"`
	Excerpt    string   `json:"excerpt,omitempty"`
	CoverImage string   `json:"coverImage,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Content    string   `json:"content,omitempty"`
}

func (p *BlogPost) UnmarshalJSON(data []byte) error {
	type plain BlogPost
	var aux struct {
		plain
		ID         json.RawMessage `json:"id"`
		CoverSnake string          `json:"cover_image"`
		Image      string          `json:"image"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*p = BlogPost(aux.plain)
	p.ID = rawScalar(aux.ID)
	if p.CoverImage == "" {
		p.CoverImage = aux.CoverSnake
	}
	if p.CoverImage == "" {
		p.CoverImage = aux.Image
	}
	return nil
}

// rawScalar renders a JSON string or number as a plain string.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// HasContent reports whether the post already carries a non-blank body.
func (p *BlogPost) HasContent() bool {
	return strings.TrimSpace(p.Content) != ""
}

// ParseBlogPosts parses the blog collection payload. A single object becomes a
// one-element collection. Invalid payloads yield an empty collection rather
// than an error because a broken blog file must not break page rendering.
func ParseBlogPosts(text string) []BlogPost {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []BlogPost{}
	}

	switch trimmed[0] {
	case '{':
		var post BlogPost
		if err := json.Unmarshal([]byte(trimmed), &post); err != nil {
			return []BlogPost{}
		}
		return []BlogPost{post}
	case '[':
		var posts []BlogPost
		if err := json.Unmarshal([]byte(trimmed), &posts); err != nil || posts == nil {
			return []BlogPost{}
		}
		return posts
	default:
		return []BlogPost{}
	}
}
