// Package extractors provides implementations of the Extractor interface
// for the supported document formats and a registry that detects a file's
// type and dispatches to the right extractor.
//
// Detection order: file extension, then content signature, then a
// plain-text probe. Files that pass none of these are rejected with a
// *domain.FileProcessingError.
package extractors
