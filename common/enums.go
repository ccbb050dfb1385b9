// Package common keeps small shared types: enumerations and the error
// taxonomy every pipeline stage reports with.
package common

//go:generate go tool go-enum --names --marshal -f enums.go

// Type of the discovered tag.
// ENUM(text, image)
type TagType int

// Classification of engine failures.
// ENUM(validation, notFound, format, io)
type ErrorKind int

// Export job lifecycle.
// ENUM(init, extracted, indexed, resolved, substituted, manifestRebuilt, packaged, done, failed)
type JobState int

// Terminal reports whether no further transitions are possible.
func (s JobState) Terminal() bool {
	return s == JobStateDone || s == JobStateFailed
}

// What to do when non-forced extraction finds empty cache.
// ENUM(extractOnEmpty, strict)
type CachePolicy int

// TagConventionTagBased is the only supported tag convention: InDesign XML
// structure tags.
const TagConventionTagBased = "tag-based"

// Advisory produced while resolving mapping.
// ENUM(wordCount, typeMismatch, unknownTag, missingValue)
type WarningKind int
