package domain

import "fmt"

// Profile belongs to a principal. A nil Picture means none was supplied.
type Profile struct {
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Picture  []byte `json:"picture"`
}

func (profile *Profile) HasPicture() bool {
	return len(profile.Picture) > 0
}

func (profile *Profile) DisplayName() string {
	if profile.Username == "" {
		return AnonymousAuthor
	}
	return profile.Username
}

func (profile *Profile) ToString() string {
	return fmt.Sprintf("\n\tUsername: %s \n\tBio: %s \n\tPicture: %d bytes", profile.Username, profile.Bio, len(profile.Picture))
}
