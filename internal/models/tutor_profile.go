package models

import "time"

const DefaultHourlyRate = 20.0

type TutorProfile struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	Name       string    `json:"name"`
	AvatarURL  *string   `json:"avatarUrl"`
	Bio        *string   `json:"bio"`
	Subjects   []string  `json:"subjects"`
	HourlyRate float64   `json:"hourlyRate"`
	Rating     float64   `json:"rating"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type TutorWithScore struct {
	TutorProfile
	MatchScore int `json:"matchScore,omitempty"`
}

type TutorDetail struct {
	TutorProfile
	BusySlots []BusySlot `json:"busySlots"`
}

type BusySlot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}
