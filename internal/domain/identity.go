package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidIdentity = errors.New("identity must carry a steam app id or a slug")

// Identity distinguishes a product line. Exactly one of SteamAppID and Slug is set.
type Identity struct {
	SteamAppID int64  `json:"steamAppId,omitempty" bson:"steam_app_id,omitempty"`
	Slug       string `json:"slug,omitempty" bson:"slug,omitempty"`
}

func SteamIdentity(appID int64) Identity {
	return Identity{SteamAppID: appID}
}

func SlugIdentity(slug string) Identity {
	return Identity{Slug: strings.TrimSpace(slug)}
}

func (i Identity) Valid() bool {
	return i.SteamAppID > 0 || i.Slug != ""
}

// Equal compares steam ids when both sides have one, slugs otherwise.
func (i Identity) Equal(other Identity) bool {
	if i.SteamAppID > 0 || other.SteamAppID > 0 {
		return i.SteamAppID == other.SteamAppID
	}
	return i.Slug != "" && i.Slug == other.Slug
}

// Key renders the identity as "steam:<id>" or "slug:<slug>".
func (i Identity) Key() string {
	if i.SteamAppID > 0 {
		return fmt.Sprintf("steam:%d", i.SteamAppID)
	}
	return "slug:" + i.Slug
}

func (i Identity) String() string {
	return i.Key()
}

// ParseIdentity is the inverse of Key. A bare number is read as a steam app id
// and any other bare value as a slug.
func ParseIdentity(key string) (Identity, error) {
	key = strings.TrimSpace(key)
	switch {
	case strings.HasPrefix(key, "steam:"):
		id, err := strconv.ParseInt(strings.TrimPrefix(key, "steam:"), 10, 64)
		if err != nil || id <= 0 {
			return Identity{}, ErrInvalidIdentity
		}
		return SteamIdentity(id), nil
	case strings.HasPrefix(key, "slug:"):
		id := SlugIdentity(strings.TrimPrefix(key, "slug:"))
		if !id.Valid() {
			return Identity{}, ErrInvalidIdentity
		}
		return id, nil
	case key == "":
		return Identity{}, ErrInvalidIdentity
	}

	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return SteamIdentity(id), nil
	}
	return SlugIdentity(key), nil
}
