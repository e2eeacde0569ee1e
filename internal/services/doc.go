// Package services defines the shared error taxonomy used to classify
// failures flowing through the job coordinator: validation, capacity,
// external tool, timeout, and transient markers checked with errors.Is.
package services
