package models

import "time"

// Board names a bulletin board. The value doubles as the storage collection.
type Board string

const (
	BoardNews         Board = "news"
	BoardJobPostings  Board = "job_postings"
	BoardJobSeekers   Board = "job_seekers"
	BoardMeetGreets   Board = "meet_greets"
	BoardGuestHosts   Board = "guest_hosts"
	BoardYouthConnect Board = "youth_connect"
)

const (
	PostStatusActive   = "active"
	PostStatusInactive = "inactive"

	DateLayout = "2006-01-02"

	// NoExpiry is the ActiveUntil value of posts that never lapse.
	NoExpiry = "9999-12-31"

	sortTimeLayout = "20060102T150405.000000000"
)

// Post is implemented by every bulletin record.
type Post interface {
	Board() Board
	Meta() *PostMeta
	// Index fills the derived SortKey and ActiveUntil columns.
	Index()
}

// PostMeta is embedded by every post type. SortKey and ActiveUntil are
// storage-only columns derived by Index.
type PostMeta struct {
	ID          string    `json:"id" bson:"_id"`
	AuthorID    string    `json:"authorId" bson:"authorId"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
	SortKey     string    `json:"-" bson:"sortKey"`
	ActiveUntil string    `json:"-" bson:"activeUntil"`
}

func (m *PostMeta) Meta() *PostMeta { return m }

func sortTime(t time.Time) string {
	return t.UTC().Format(sortTimeLayout)
}

type NewsItem struct {
	PostMeta  `bson:",inline"`
	Title     string   `json:"title" bson:"title" conform:"trim" validate:"required,max=200"`
	Content   string   `json:"content" bson:"content" conform:"trim" validate:"required"`
	Date      string   `json:"date" bson:"date" conform:"trim" validate:"required,datetime=2006-01-02"`
	ImageURLs []string `json:"imageUrls" bson:"imageUrls" validate:"omitempty,max=10,dive,required"`
}

func (*NewsItem) Board() Board { return BoardNews }

func (n *NewsItem) Index() {
	n.SortKey = n.Date + "|" + sortTime(n.CreatedAt)
	n.ActiveUntil = NoExpiry
}

type JobPosting struct {
	PostMeta                `bson:",inline"`
	JobTitle                string `json:"jobTitle" bson:"jobTitle" conform:"trim" validate:"required,max=200"`
	CompanyName             string `json:"companyName" bson:"companyName" conform:"trim" validate:"required,max=200"`
	Location                string `json:"location" bson:"location" conform:"trim" validate:"required"`
	JobDescription          string `json:"jobDescription" bson:"jobDescription" conform:"trim" validate:"required"`
	Responsibilities        string `json:"responsibilities,omitempty" bson:"responsibilities,omitempty" conform:"trim"`
	Qualifications          string `json:"qualifications,omitempty" bson:"qualifications,omitempty" conform:"trim"`
	EmploymentType          string `json:"employmentType" bson:"employmentType" conform:"trim" validate:"required,oneof=full-time part-time contract internship temporary"`
	SalaryRange             string `json:"salaryRange,omitempty" bson:"salaryRange,omitempty" conform:"trim"`
	ApplicationInstructions string `json:"applicationInstructions" bson:"applicationInstructions" conform:"trim" validate:"required"`
	ContactEmail            string `json:"contactEmail" bson:"contactEmail" conform:"trim" validate:"required,email"`
	ContactPersonName       string `json:"contactPersonName,omitempty" bson:"contactPersonName,omitempty" conform:"trim"`
	ContactPersonEmail      string `json:"contactPersonEmail,omitempty" bson:"contactPersonEmail,omitempty" conform:"trim" validate:"omitempty,email"`
	Deadline                string `json:"deadline,omitempty" bson:"deadline,omitempty" conform:"trim" validate:"omitempty,datetime=2006-01-02"`
	Status                  string `json:"status" bson:"status"`
}

func (*JobPosting) Board() Board { return BoardJobPostings }

func (j *JobPosting) Index() {
	j.SortKey = sortTime(j.CreatedAt)
	j.ActiveUntil = ""
	if j.Status == PostStatusActive {
		j.ActiveUntil = NoExpiry
	}
}

type Education struct {
	Degree         string `json:"degree" bson:"degree" conform:"trim" validate:"required"`
	FieldOfStudy   string `json:"fieldOfStudy" bson:"fieldOfStudy" conform:"trim"`
	Institution    string `json:"institution" bson:"institution" conform:"trim" validate:"required"`
	Location       string `json:"location" bson:"location" conform:"trim"`
	GraduationDate string `json:"graduationDate" bson:"graduationDate" conform:"trim"`
	Description    string `json:"description" bson:"description" conform:"trim"`
}

type Experience struct {
	JobTitle       string `json:"jobTitle" bson:"jobTitle" conform:"trim" validate:"required"`
	CompanyName    string `json:"companyName" bson:"companyName" conform:"trim" validate:"required"`
	Location       string `json:"location" bson:"location" conform:"trim"`
	EmploymentType string `json:"employmentType" bson:"employmentType" conform:"trim"`
	StartDate      string `json:"startDate" bson:"startDate" conform:"trim"`
	EndDate        string `json:"endDate" bson:"endDate" conform:"trim"`
	Description    string `json:"description" bson:"description" conform:"trim"`
}

// JobSeekerProfile is keyed by its owner: ID always equals AuthorID.
type JobSeekerProfile struct {
	PostMeta     `bson:",inline"`
	FullName     string       `json:"fullName" bson:"fullName" conform:"trim" validate:"required,max=200"`
	Location     string       `json:"location" bson:"location" conform:"trim" validate:"required"`
	ContactEmail string       `json:"contactEmail" bson:"contactEmail" conform:"trim" validate:"required,email"`
	PhoneNumber  string       `json:"phoneNumber,omitempty" bson:"phoneNumber,omitempty" conform:"trim"`
	Education    []Education  `json:"education" bson:"education" validate:"required,min=1,dive"`
	Experience   []Experience `json:"experience" bson:"experience" validate:"required,min=1,dive"`
	Skills       []string     `json:"skills" bson:"skills" validate:"required,min=1,dive,required"`
	ResumeURL    string       `json:"resumeUrl,omitempty" bson:"resumeUrl,omitempty" conform:"trim"`
}

func (*JobSeekerProfile) Board() Board { return BoardJobSeekers }

func (j *JobSeekerProfile) Index() {
	j.SortKey = sortTime(j.UpdatedAt)
	j.ActiveUntil = NoExpiry
}

type MeetGreet struct {
	PostMeta    `bson:",inline"`
	EventName   string `json:"eventName" bson:"eventName" conform:"trim" validate:"required,max=200"`
	EventDate   string `json:"eventDate" bson:"eventDate" conform:"trim" validate:"required,datetime=2006-01-02"`
	EventTime   string `json:"eventTime" bson:"eventTime" conform:"trim" validate:"required,datetime=15:04"`
	Location    string `json:"location" bson:"location" conform:"trim" validate:"required"`
	Description string `json:"description,omitempty" bson:"description,omitempty" conform:"trim"`
}

func (*MeetGreet) Board() Board { return BoardMeetGreets }

func (m *MeetGreet) Index() {
	m.SortKey = m.EventDate + "T" + m.EventTime
	m.ActiveUntil = NoExpiry
}

type GuestHostOffer struct {
	PostMeta              `bson:",inline"`
	AccommodationType     string `json:"accommodationType" bson:"accommodationType" conform:"trim" validate:"required,oneof=spare_room couch entire_place other"`
	AvailableFrom         string `json:"availableFrom" bson:"availableFrom" conform:"trim" validate:"required,datetime=2006-01-02"`
	AvailableTo           string `json:"availableTo" bson:"availableTo" conform:"trim" validate:"required,datetime=2006-01-02"`
	MaxGuests             int    `json:"maxGuests" bson:"maxGuests" validate:"required,min=1,max=50"`
	GuestPurpose          string `json:"guestPurpose,omitempty" bson:"guestPurpose,omitempty" conform:"trim"`
	HostDescription       string `json:"hostDescription,omitempty" bson:"hostDescription,omitempty" conform:"trim"`
	SpecialConsiderations string `json:"specialConsiderations,omitempty" bson:"specialConsiderations,omitempty" conform:"trim"`
	ContactEmail          string `json:"contactEmail" bson:"contactEmail" conform:"trim" validate:"required,email"`
	City                  string `json:"city" bson:"city" conform:"trim" validate:"required"`
	State                 string `json:"state" bson:"state" conform:"trim" validate:"required"`
	Zip                   string `json:"zip" bson:"zip" conform:"trim" validate:"required"`
	Country               string `json:"country" bson:"country" conform:"trim" validate:"required"`
	Status                string `json:"status" bson:"status"`
}

func (*GuestHostOffer) Board() Board { return BoardGuestHosts }

// Index makes an offer visible up to and including its last available day.
func (g *GuestHostOffer) Index() {
	g.SortKey = g.AvailableFrom + "|" + sortTime(g.CreatedAt)
	g.ActiveUntil = ""
	if g.Status == PostStatusActive {
		g.ActiveUntil = g.AvailableTo
	}
}

type YouthConnectEntry struct {
	PostMeta                  `bson:",inline"`
	Name                      string `json:"name" bson:"name" conform:"trim" validate:"required,max=200"`
	AgeRange                  string `json:"ageRange" bson:"ageRange" conform:"trim" validate:"required"`
	Interests                 string `json:"interests,omitempty" bson:"interests,omitempty" conform:"trim"`
	Location                  string `json:"location,omitempty" bson:"location,omitempty" conform:"trim"`
	ContactEmail              string `json:"contactEmail" bson:"contactEmail" conform:"trim" validate:"required,email"`
	Type                      string `json:"type" bson:"type" conform:"trim" validate:"required,oneof=individual group activity other"`
	Description               string `json:"description" bson:"description" conform:"trim" validate:"required"`
	Grade                     string `json:"grade,omitempty" bson:"grade,omitempty" conform:"trim"`
	Hobbies                   string `json:"hobbies,omitempty" bson:"hobbies,omitempty" conform:"trim"`
	Achievements              string `json:"achievements,omitempty" bson:"achievements,omitempty" conform:"trim"`
	PictureURL                string `json:"pictureUrl,omitempty" bson:"pictureUrl,omitempty" conform:"trim"`
	Awards                    string `json:"awards,omitempty" bson:"awards,omitempty" conform:"trim"`
	ExtraCurricularActivities string `json:"extraCurricularActivities,omitempty" bson:"extraCurricularActivities,omitempty" conform:"trim"`
	Sports                    string `json:"sports,omitempty" bson:"sports,omitempty" conform:"trim"`
	School                    string `json:"school,omitempty" bson:"school,omitempty" conform:"trim"`
}

func (*YouthConnectEntry) Board() Board { return BoardYouthConnect }

func (y *YouthConnectEntry) Index() {
	y.SortKey = sortTime(y.CreatedAt)
	y.ActiveUntil = NoExpiry
}
