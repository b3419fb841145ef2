package services

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"gorm.io/gorm"
)

// applyContribution writes the proposed values of an approved contribution
// to its catalog row inside tx. Columns the contribution does not name,
// updated_at included, are left as they are. Every field is coerced before
// anything is written, so a bad field leaves the row untouched even without
// rollback.
func applyContribution(tx *gorm.DB, c *models.Case) error {
	subject, ok := catalog.Lookup(c.SubjectType)
	if !ok {
		return &ApplyFailedError{Err: fmt.Errorf("unknown subject type %q", c.SubjectType)}
	}
	rowID, err := strconv.ParseUint(c.SubjectID, 10, 64)
	if err != nil {
		return &ApplyFailedError{Err: fmt.Errorf("invalid subject id %q", c.SubjectID)}
	}
	if len(c.Changes) == 0 {
		return &ApplyFailedError{Err: errors.New("contribution has no changes")}
	}

	names := make([]string, 0, len(c.Changes))
	for name := range c.Changes {
		names = append(names, name)
	}
	sort.Strings(names)

	updates := make(map[string]any, len(names))
	for _, name := range names {
		field, ok := subject.Field(name)
		if !ok {
			return &ApplyFailedError{Field: name, Err: errors.New("not an editable field")}
		}
		change, ok := c.Changes[name].(map[string]any)
		if !ok {
			return &ApplyFailedError{Field: name, Err: errors.New("malformed change")}
		}
		value, err := catalog.Coerce(field, change["new"])
		if err != nil {
			return &ApplyFailedError{Field: name, Err: err}
		}
		updates[field.Column] = value
	}

	var count int64
	if err := tx.Table(subject.Table).Where("id = ?", rowID).Count(&count).Error; err != nil {
		return fmt.Errorf("check %s %d: %w", subject.Type, rowID, err)
	}
	if count == 0 {
		return &ApplyFailedError{Err: fmt.Errorf("%s %d no longer exists", subject.Type, rowID)}
	}

	if err := tx.Table(subject.Table).Where("id = ?", rowID).Updates(updates).Error; err != nil {
		return &ApplyFailedError{Err: err}
	}
	return nil
}
