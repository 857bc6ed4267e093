// Package errtypes contains custom error types
package errtypes

import (
	"fmt"
	"strings"
)

const (
	EmptyModalitiesErrMsg  = "no modalities declared in problem metadata"
	MissingModalInfoErrMsg = "modality is missing its modal info"
)

// EmptyModalitiesError is returned when an embedding layer is built before
// any modality metadata is available.
type EmptyModalitiesError struct{}

func (e *EmptyModalitiesError) Error() string {
	return EmptyModalitiesErrMsg + ": the layer was most likely built before the dataset was created," +
		" or the model path differs from the one used to write the dataset." +
		" The number of modalities is unknown until data has been seen; build the dataset first" +
		" or copy the problem metadata from the previous model path"
}

type MissingModalInfoError struct {
	Modality string
	Key      string
	Keys     []string
}

func (e *MissingModalInfoError) Error() string {
	return fmt.Sprintf("%s: category modality %q expects key %q, received keys: [%s]",
		MissingModalInfoErrMsg, e.Modality, e.Key, strings.Join(e.Keys, ", "))
}

type InvalidModalTypeError struct {
	Modality string
	Type     string
}

func (e *InvalidModalTypeError) Error() string {
	return fmt.Sprintf("modality %q has unknown type %q, expected one of text, array, category", e.Modality, e.Type)
}
