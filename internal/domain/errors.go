package domain

import "errors"

// ErrStoryNotFound is returned when a reaction or report references a story
// that does not exist.
var ErrStoryNotFound = errors.New("story not found")
