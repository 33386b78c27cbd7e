package models

import "time"

type Spouse struct {
	Name string `json:"name" bson:"name"`
}

type Child struct {
	Name   string `json:"name" bson:"name"`
	Age    int    `json:"age" bson:"age"`
	Gender string `json:"gender" bson:"gender"`
}

// Profile is the user-editable part of a user record. It is replaced as a
// whole by a profile update.
type Profile struct {
	Name           string   `json:"name" bson:"name"`
	City           string   `json:"city" bson:"city"`
	State          string   `json:"state" bson:"state"`
	Country        string   `json:"country" bson:"country"`
	Bio            string   `json:"bio" bson:"bio"`
	Profession     string   `json:"profession" bson:"profession"`
	Hobbies        []string `json:"hobbies" bson:"hobbies"`
	ProfilePicture string   `json:"profilePicture" bson:"profilePicture"`
	Spouse         *Spouse  `json:"spouse,omitempty" bson:"spouse,omitempty"`
	Children       []Child  `json:"children" bson:"children"`

	IsMatrimonyEnabled bool       `json:"isMatrimonyEnabled" bson:"isMatrimonyEnabled"`
	DateOfBirth        *time.Time `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	TimeOfBirth        string     `json:"timeOfBirth,omitempty" bson:"timeOfBirth,omitempty"`
	PlaceOfBirth       string     `json:"placeOfBirth,omitempty" bson:"placeOfBirth,omitempty"`
	FatherName         string     `json:"fatherName,omitempty" bson:"fatherName,omitempty"`
	MotherName         string     `json:"motherName,omitempty" bson:"motherName,omitempty"`
	Gender             string     `json:"gender,omitempty" bson:"gender,omitempty"`
	Education          string     `json:"education,omitempty" bson:"education,omitempty"`
	MatrimonyPictures  []string   `json:"matrimonyPictures,omitempty" bson:"matrimonyPictures,omitempty"`
}

// ClearMatrimony drops every matrimony-only field.
func (p *Profile) ClearMatrimony() {
	p.IsMatrimonyEnabled = false
	p.DateOfBirth = nil
	p.TimeOfBirth = ""
	p.PlaceOfBirth = ""
	p.FatherName = ""
	p.MotherName = ""
	p.Gender = ""
	p.Education = ""
	p.MatrimonyPictures = nil
}

type User struct {
	ID       string `json:"id" bson:"_id"`
	Email    string `json:"email" bson:"email"`
	Password string `json:"-" bson:"password"`

	Profile `bson:",inline"`

	Friends                []string `json:"friends" bson:"friends"`
	OutgoingFriendRequests []string `json:"outgoingFriendRequests" bson:"outgoingFriendRequests"`
	IncomingFriendRequests []string `json:"incomingFriendRequests" bson:"incomingFriendRequests"`
	Conversations          []string `json:"conversations" bson:"conversations"`

	IsVerified                    bool       `json:"isVerified" bson:"isVerified"`
	IsPaid                        bool       `json:"isPaid" bson:"isPaid"`
	EmailVerificationToken        string     `json:"-" bson:"emailVerificationToken,omitempty"`
	EmailVerificationTokenExpires *time.Time `json:"-" bson:"emailVerificationTokenExpires,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// UserSummary is the minimal public card used in friend lists and
// conversation previews.
type UserSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
	City           string `json:"city,omitempty"`
	State          string `json:"state,omitempty"`
	Country        string `json:"country,omitempty"`
	Bio            string `json:"bio,omitempty"`
}

// PublicProfile is what one user may see of another.
type PublicProfile struct {
	ID string `json:"id"`
	Profile
	RelationshipStatus RelationshipStatus `json:"relationshipStatus"`
	FriendsCount       int                `json:"friendsCount"`
}

// SearchResult is a people-search hit. Family and matrimony details stay on
// the full profile.
type SearchResult struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	City               string             `json:"city"`
	State              string             `json:"state"`
	Country            string             `json:"country"`
	Bio                string             `json:"bio"`
	Profession         string             `json:"profession"`
	Hobbies            []string           `json:"hobbies"`
	ProfilePicture     string             `json:"profilePicture"`
	RelationshipStatus RelationshipStatus `json:"relationshipStatus"`
}

func (u *User) ToSearchResult(viewerID string) *SearchResult {
	hobbies := u.Hobbies
	if hobbies == nil {
		hobbies = []string{}
	}
	return &SearchResult{
		ID:                 u.ID,
		Name:               u.Name,
		City:               u.City,
		State:              u.State,
		Country:            u.Country,
		Bio:                u.Bio,
		Profession:         u.Profession,
		Hobbies:            hobbies,
		ProfilePicture:     u.ProfilePicture,
		RelationshipStatus: u.RelationshipTo(viewerID).Reverse(),
	}
}

func (u *User) ToSummary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		Name:           u.Name,
		ProfilePicture: u.ProfilePicture,
		City:           u.City,
		State:          u.State,
		Country:        u.Country,
		Bio:            u.Bio,
	}
}

func (u *User) ToPublic(viewerID string) *PublicProfile {
	return &PublicProfile{
		ID:                 u.ID,
		Profile:            u.Profile,
		RelationshipStatus: u.RelationshipTo(viewerID).Reverse(),
		FriendsCount:       len(u.Friends),
	}
}

// Normalize replaces nil slices so JSON output carries [] instead of null.
func (u *User) Normalize() *User {
	if u.Friends == nil {
		u.Friends = []string{}
	}
	if u.OutgoingFriendRequests == nil {
		u.OutgoingFriendRequests = []string{}
	}
	if u.IncomingFriendRequests == nil {
		u.IncomingFriendRequests = []string{}
	}
	if u.Conversations == nil {
		u.Conversations = []string{}
	}
	if u.Hobbies == nil {
		u.Hobbies = []string{}
	}
	if u.Children == nil {
		u.Children = []Child{}
	}
	return u
}
