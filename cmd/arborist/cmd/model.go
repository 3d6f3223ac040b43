package cmd

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/decisionpatterns/arborist/forest"
	"github.com/decisionpatterns/arborist/predblock"
)

// saveModel writes the PreFormat (column identity + factor signature) and
// the trained forest to path as two sequential gob sessions on the same
// stream — predblock.PreFormat first, then forest.Forest's own field-by-
// field encoding, read back in the same order by loadModel.
func saveModel(path string, pf predblock.PreFormat, f *forest.Forest) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("arborist: create %s: %w", path, err)
	}
	defer out.Close()

	if err := gob.NewEncoder(out).Encode(pf); err != nil {
		return fmt.Errorf("arborist: encode preformat: %w", err)
	}
	if err := f.Save(out); err != nil {
		return fmt.Errorf("arborist: save forest: %w", err)
	}
	return nil
}

func loadModel(path string) (predblock.PreFormat, *forest.Forest, error) {
	in, err := os.Open(path)
	if err != nil {
		return predblock.PreFormat{}, nil, fmt.Errorf("arborist: open %s: %w", path, err)
	}
	defer in.Close()

	var pf predblock.PreFormat
	if err := gob.NewDecoder(in).Decode(&pf); err != nil {
		return predblock.PreFormat{}, nil, fmt.Errorf("arborist: decode preformat: %w", err)
	}
	f, err := forest.Load(in)
	if err != nil {
		return predblock.PreFormat{}, nil, fmt.Errorf("arborist: load forest: %w", err)
	}
	return pf, f, nil
}
