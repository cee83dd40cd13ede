package submission

import (
	"errors"
	"fmt"
)

type Category string

const (
	CategoryInvalidRequest Category = "invalid_request"
	CategoryNoData         Category = "no_data"
	CategoryAlreadySending Category = "already_sending"
	CategoryAuthentication Category = "authentication"
	CategoryOverlap        Category = "visit_overlap"
	CategoryNetwork        Category = "network"
	CategoryRejected       Category = "rejected"
	CategoryEncounter      Category = "encounter_creation"
)

var (
	ErrNoValidMeasurements = errors.New("no valid measurements to record")
	ErrAlreadySending      = errors.New("a submission for the patient is already in progress")
	ErrEncounterCreation   = errors.New("unable to create encounter")
	ErrInvalidPatient      = errors.New("invalid patient uuid")
)

var userMessages = map[Category]string{
	CategoryInvalidRequest: "The selected patient is not valid. Please select a patient again.",
	CategoryNoData:         "No valid measurement data to send.",
	CategoryAlreadySending: "Measurements for this patient are already being sent. Please wait.",
	CategoryAuthentication: "Could not connect to OpenMRS. Please check your credentials.",
	CategoryOverlap:        "The patient already has an overlapping visit. Please try again in a moment.",
	CategoryNetwork:        "Failed to send measurement to OpenMRS. Please check the connection and try again.",
	CategoryRejected:       "OpenMRS rejected the measurement. Please check the patient and server settings.",
	CategoryEncounter:      "Failed to record the measurement in OpenMRS. Please try again.",
}

// Error is the terminal error of a submission
type Error struct {
	Category    Category
	PatientUUID string
	Err         error
}

func newError(category Category, patientUUID string, err error) *Error {
	return &Error{
		Category:    category,
		PatientUUID: patientUUID,
		Err:         err,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("submission for patient %v failed (%v): %v", e.PatientUUID, e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns a message suitable for showing to a clinician. It never includes details of
// the underlying failure.
func (e *Error) UserMessage() string {
	if message, ok := userMessages[e.Category]; ok {
		return message
	}
	return userMessages[CategoryNetwork]
}

// CategoryOf returns the category of a submission error. Other errors are categorized as network
// errors.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategoryNetwork
}
