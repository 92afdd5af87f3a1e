// Package recipe contains the recipe domain types and the relation
// validator gating every recipe write.
package recipe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MinNameLength  = 4
	MinCookingTime = 1
	MaxCookingTime = 300
	MinAmount      = 1
)

// IngredientAmount is one candidate (ingredient, amount) pair.
type IngredientAmount struct {
	ID     int64 `json:"id" validate:"required,min=1"`
	Amount int32 `json:"amount" validate:"required,min=1"`
}

// Draft is a candidate recipe payload: the full payload of a create, or
// the merged view of an update. It is validated before any write.
type Draft struct {
	Name        string             `validate:"required,min=4"`
	Text        string             `validate:"required"`
	CookingTime int32              `validate:"required,min=1,max=300"`
	Ingredients []IngredientAmount `validate:"required,min=1,dive"`
	TagIDs      []int64            `validate:"required,min=1"`
}

// FieldErrors maps a field name to its violation message. A draft's
// violations are collected together, not reported one at a time.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}
	return "invalid recipe: " + strings.Join(parts, "; ")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a draft against every invariant gating a write:
// name length, cooking time bounds, amount bounds, no repeated
// ingredients or tags, and ingredient existence against the catalog.
// existingIngredients holds the catalog ids the candidate references
// that actually exist. Validation never writes; a nil return means the
// draft is admissible.
func Validate(d Draft, existingIngredients map[int64]bool) FieldErrors {
	fields := FieldErrors{}

	if err := validate.Struct(d); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok { //nolint:errorlint
			collectTagErrors(fields, verrs)
		} else {
			fields["non_field_errors"] = err.Error()
		}
	}

	// Repeated ingredients and unknown catalog references.
	seen := make(map[int64]bool, len(d.Ingredients))
	for _, ing := range d.Ingredients {
		if seen[ing.ID] {
			fields["ingredients"] = "ingredients must not repeat"
			break
		}
		seen[ing.ID] = true
	}
	if _, dup := fields["ingredients"]; !dup {
		for _, ing := range d.Ingredients {
			if ing.ID > 0 && !existingIngredients[ing.ID] {
				fields["ingredients"] = fmt.Sprintf("ingredient with id %d does not exist", ing.ID)
				break
			}
		}
	}

	// Repeated tags.
	seenTags := make(map[int64]bool, len(d.TagIDs))
	for _, id := range d.TagIDs {
		if seenTags[id] {
			fields["tags"] = "tags must not repeat"
			break
		}
		seenTags[id] = true
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

func collectTagErrors(fields FieldErrors, verrs validator.ValidationErrors) {
	for _, e := range verrs {
		switch e.StructField() {
		case "Name":
			fields["name"] = fmt.Sprintf("name must be at least %d characters", MinNameLength)
		case "Text":
			fields["text"] = "text is required"
		case "CookingTime":
			fields["cooking_time"] = fmt.Sprintf(
				"cooking time must be between %d and %d minutes", MinCookingTime, MaxCookingTime)
		case "Ingredients":
			fields["ingredients"] = "at least one ingredient is required"
		case "TagIDs":
			fields["tags"] = "at least one tag is required"
		case "ID":
			fields["ingredients"] = "ingredient id must be positive"
		case "Amount":
			fields["amount"] = fmt.Sprintf("ingredient amount must be at least %d", MinAmount)
		}
	}
}
