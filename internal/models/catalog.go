package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Anime struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	TitleEnglish *string    `gorm:"size:255" json:"title_english"`
	Synopsis     string     `gorm:"type:text" json:"synopsis"`
	EpisodeCount *int64     `json:"episode_count"`
	AiringStatus string     `gorm:"size:30" json:"airing_status"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	Score        *float64   `json:"score"`
	IsAdult      bool       `gorm:"not null;default:false" json:"is_adult"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Anime) TableName() string { return "anime" }

type Manga struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	TitleEnglish     *string    `gorm:"size:255" json:"title_english"`
	Synopsis         string     `gorm:"type:text" json:"synopsis"`
	VolumeCount      *int64     `json:"volume_count"`
	ChapterCount     *int64     `json:"chapter_count"`
	PublishingStatus string     `gorm:"size:30" json:"publishing_status"`
	StartDate        *time.Time `json:"start_date"`
	EndDate          *time.Time `json:"end_date"`
	Score            *float64   `json:"score"`
	IsAdult          bool       `gorm:"not null;default:false" json:"is_adult"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Manga) TableName() string { return "manga" }

type Novel struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	TitleEnglish     *string    `gorm:"size:255" json:"title_english"`
	Synopsis         string     `gorm:"type:text" json:"synopsis"`
	AuthorName       string     `gorm:"size:255" json:"author_name"`
	Publisher        string     `gorm:"size:255" json:"publisher"`
	VolumeCount      *int64     `json:"volume_count"`
	PublishingStatus string     `gorm:"size:30" json:"publishing_status"`
	StartDate        *time.Time `json:"start_date"`
	Score            *float64   `json:"score"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Novel) TableName() string { return "novels" }

// Comment and Review are report subjects. Both are soft-deleted when a
// report against them is resolved with a delete action.
type Comment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	AuthorID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"author_id"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Review struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	AuthorID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"author_id"`
	SubjectType string         `gorm:"size:20;not null" json:"subject_type"`
	SubjectID   uint           `gorm:"not null;index" json:"subject_id"`
	Rating      int            `gorm:"not null" json:"rating"`
	Body        string         `gorm:"type:text;not null" json:"body"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
