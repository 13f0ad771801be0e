package model

import (
	"encoding/gob"
	"io"
	"os"

	kperrors "konutpricer/pkg/errors"
)

// SaveModel gob-encodes v to a file. The file is created or truncated.
func SaveModel(v any, filename string) (err error) {
	defer kperrors.Recover(&err, "model.SaveModel")
	f, err := os.Create(filename)
	if err != nil {
		return kperrors.Wrap(err, "model.SaveModel")
	}
	defer func() { _ = f.Close() }()
	return SaveModelToWriter(v, f)
}

// LoadModel gob-decodes a file into v, which must be a pointer.
func LoadModel(v any, filename string) (err error) {
	defer kperrors.Recover(&err, "model.LoadModel")
	f, err := os.Open(filename)
	if err != nil {
		return kperrors.Wrap(err, "model.LoadModel")
	}
	defer func() { _ = f.Close() }()
	return LoadModelFromReader(v, f)
}

// SaveModelToWriter gob-encodes v to w.
func SaveModelToWriter(v any, w io.Writer) (err error) {
	defer kperrors.Recover(&err, "model.SaveModelToWriter")
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		return kperrors.Wrap(err, "model.SaveModelToWriter")
	}
	return nil
}

// LoadModelFromReader gob-decodes r into v, which must be a pointer.
func LoadModelFromReader(v any, r io.Reader) (err error) {
	defer kperrors.Recover(&err, "model.LoadModelFromReader")
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return kperrors.Wrap(err, "model.LoadModelFromReader")
	}
	return nil
}
