// Package models defines the domain types for camroll.
package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Kind is the closed set of media kinds the library stores.
type Kind uint8

const (
	KindImage Kind = iota + 1
	KindVideo
)

// Kinds lists every kind in gallery order: images first, then videos.
var Kinds = []Kind{KindImage, KindVideo}

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	}
	return "unknown"
}

// Collection returns the index collection name used in locators.
func (k Kind) Collection() string {
	switch k {
	case KindImage:
		return "images"
	case KindVideo:
		return "videos"
	}
	return ""
}

// ParseKind accepts either the kind name or its collection name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "images", "photo", "photos":
		return KindImage, nil
	case "video", "videos":
		return KindVideo, nil
	}
	return 0, fmt.Errorf("unknown media kind %q", s)
}

// KindFromMIME classifies a MIME type. The second result is false for
// anything that is neither an image nor a video.
func KindFromMIME(mime string) (Kind, bool) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "image/"):
		return KindImage, true
	case strings.HasPrefix(mime, "video/"):
		return KindVideo, true
	}
	return 0, false
}

const locatorScheme = "media://"

// Locator is an opaque, comparable reference to one indexed media item.
// Two locators are equal exactly when they name the same index row.
type Locator string

// NewLocator builds the locator for row id of the given kind.
func NewLocator(kind Kind, id int64) Locator {
	return Locator(locatorScheme + kind.Collection() + "/" + strconv.FormatInt(id, 10))
}

// ParseLocator validates s and returns it as a Locator.
func ParseLocator(s string) (Locator, error) {
	l := Locator(s)
	if _, _, err := l.Split(); err != nil {
		return "", err
	}
	return l, nil
}

// Split returns the kind and row id encoded in the locator.
func (l Locator) Split() (Kind, int64, error) {
	rest, ok := strings.CutPrefix(string(l), locatorScheme)
	if !ok {
		return 0, 0, fmt.Errorf("locator %q: missing %s scheme", l, locatorScheme)
	}
	coll, idStr, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, 0, fmt.Errorf("locator %q: malformed", l)
	}
	kind, err := ParseKind(coll)
	if err != nil {
		return 0, 0, fmt.Errorf("locator %q: %w", l, err)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, fmt.Errorf("locator %q: bad id", l)
	}
	return kind, id, nil
}

// String implements fmt.Stringer.
func (l Locator) String() string { return string(l) }

// MediaList is an ordered sequence of locators, most recently added first.
// Lists are handed between components by copy, never by alias.
type MediaList []Locator

// Clone returns an independent copy. A nil list clones to an empty list.
func (m MediaList) Clone() MediaList {
	out := make(MediaList, len(m))
	copy(out, m)
	return out
}

// IndexOf returns the position of loc, or -1.
func (m MediaList) IndexOf(loc Locator) int {
	return slices.Index(m, loc)
}

// Contains reports whether loc is in the list.
func (m MediaList) Contains(loc Locator) bool {
	return m.IndexOf(loc) >= 0
}

// At returns the locator at position i.
func (m MediaList) At(i int) (Locator, bool) {
	if i < 0 || i >= len(m) {
		return "", false
	}
	return m[i], true
}

// Without returns a new list with every locator in drop removed.
func (m MediaList) Without(drop ...Locator) MediaList {
	gone := make(map[Locator]struct{}, len(drop))
	for _, l := range drop {
		gone[l] = struct{}{}
	}
	out := make(MediaList, 0, len(m))
	for _, l := range m {
		if _, ok := gone[l]; ok {
			continue
		}
		out = append(out, l)
	}
	return out
}

// WithoutIndex returns a new list with the element at i removed.
func (m MediaList) WithoutIndex(i int) MediaList {
	if i < 0 || i >= len(m) {
		return m.Clone()
	}
	out := make(MediaList, 0, len(m)-1)
	out = append(out, m[:i]...)
	return append(out, m[i+1:]...)
}

// Equal reports whether both lists hold the same locators in the same order.
func (m MediaList) Equal(other MediaList) bool {
	return slices.Equal(m, other)
}

// Media is the metadata the index keeps for one item.
type Media struct {
	Locator     Locator   `json:"locator"`
	Kind        string    `json:"kind"`
	Path        string    `json:"path"`
	DisplayName string    `json:"display_name"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	DateAdded   time.Time `json:"date_added"`
}

// MediaFile is a lightweight representation of a file found in the library.
type MediaFile struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
