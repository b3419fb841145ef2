// Package catalog describes which catalog rows a contribution may edit and
// how proposed values are converted to column values.
package catalog

import (
	"fmt"
	"sort"
)

// FieldType is the storage type of an editable column.
type FieldType string

const (
	FieldText  FieldType = "text"
	FieldInt   FieldType = "int"
	FieldFloat FieldType = "float"
	FieldDate  FieldType = "date"
	FieldBool  FieldType = "bool"
)

// Field is one editable column of a catalog table.
type Field struct {
	Column   string
	Type     FieldType
	Nullable bool
	MaxLen   int      // text only; 0 means unbounded
	Min      *float64 // numeric only
	Max      *float64
	Enum     []string // text only
}

// Subject is one editable catalog table.
type Subject struct {
	Type   string
	Table  string
	Fields map[string]Field // keyed by the payload field name
}

// Field looks up an editable field by its payload name.
func (s *Subject) Field(name string) (Field, bool) {
	f, ok := s.Fields[name]
	return f, ok
}

// FieldNames returns the payload names in sorted order.
func (s *Subject) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func bound(v float64) *float64 { return &v }

var airingStatuses = []string{"not_yet_aired", "airing", "finished", "cancelled", "hiatus"}
var publishingStatuses = []string{"not_yet_published", "publishing", "finished", "cancelled", "hiatus"}

var subjects = map[string]*Subject{
	"anime": {
		Type:  "anime",
		Table: "anime",
		Fields: map[string]Field{
			"title":        {Column: "title", Type: FieldText, MaxLen: 255},
			"titleEnglish": {Column: "title_english", Type: FieldText, Nullable: true, MaxLen: 255},
			"synopsis":     {Column: "synopsis", Type: FieldText},
			"episodeCount": {Column: "episode_count", Type: FieldInt, Nullable: true, Min: bound(0), Max: bound(10000)},
			"airingStatus": {Column: "airing_status", Type: FieldText, Enum: airingStatuses},
			"startDate":    {Column: "start_date", Type: FieldDate, Nullable: true},
			"endDate":      {Column: "end_date", Type: FieldDate, Nullable: true},
			"score":        {Column: "score", Type: FieldFloat, Nullable: true, Min: bound(0), Max: bound(10)},
			"isAdult":      {Column: "is_adult", Type: FieldBool},
		},
	},
	"manga": {
		Type:  "manga",
		Table: "manga",
		Fields: map[string]Field{
			"title":            {Column: "title", Type: FieldText, MaxLen: 255},
			"titleEnglish":     {Column: "title_english", Type: FieldText, Nullable: true, MaxLen: 255},
			"synopsis":         {Column: "synopsis", Type: FieldText},
			"volumeCount":      {Column: "volume_count", Type: FieldInt, Nullable: true, Min: bound(0), Max: bound(1000)},
			"chapterCount":     {Column: "chapter_count", Type: FieldInt, Nullable: true, Min: bound(0), Max: bound(100000)},
			"publishingStatus": {Column: "publishing_status", Type: FieldText, Enum: publishingStatuses},
			"startDate":        {Column: "start_date", Type: FieldDate, Nullable: true},
			"endDate":          {Column: "end_date", Type: FieldDate, Nullable: true},
			"score":            {Column: "score", Type: FieldFloat, Nullable: true, Min: bound(0), Max: bound(10)},
			"isAdult":          {Column: "is_adult", Type: FieldBool},
		},
	},
	"novel": {
		Type:  "novel",
		Table: "novels",
		Fields: map[string]Field{
			"title":            {Column: "title", Type: FieldText, MaxLen: 255},
			"titleEnglish":     {Column: "title_english", Type: FieldText, Nullable: true, MaxLen: 255},
			"synopsis":         {Column: "synopsis", Type: FieldText},
			"authorName":       {Column: "author_name", Type: FieldText, MaxLen: 255},
			"publisher":        {Column: "publisher", Type: FieldText, MaxLen: 255},
			"volumeCount":      {Column: "volume_count", Type: FieldInt, Nullable: true, Min: bound(0), Max: bound(1000)},
			"publishingStatus": {Column: "publishing_status", Type: FieldText, Enum: publishingStatuses},
			"startDate":        {Column: "start_date", Type: FieldDate, Nullable: true},
			"score":            {Column: "score", Type: FieldFloat, Nullable: true, Min: bound(0), Max: bound(10)},
		},
	},
}

// Lookup returns the editable subject registered under subjectType.
func Lookup(subjectType string) (*Subject, bool) {
	s, ok := subjects[subjectType]
	return s, ok
}

// SubjectTypes lists registered subject types in sorted order.
func SubjectTypes() []string {
	types := make([]string, 0, len(subjects))
	for t := range subjects {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ValidateFieldNames rejects payload keys the subject does not expose.
func (s *Subject) ValidateFieldNames(names []string) error {
	for _, name := range names {
		if _, ok := s.Fields[name]; !ok {
			return fmt.Errorf("unknown field %q for %s", name, s.Type)
		}
	}
	return nil
}
