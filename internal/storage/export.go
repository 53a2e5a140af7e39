package storage

import (
	"encoding/json"
	"io"
)

type BranchExport struct {
	BranchMeta
	Samples []Sample `json:"samples"`
}

type ExportData struct {
	RunMetadata
	Branches []BranchExport `json:"branches"`
}

// ExportJSON writes a run with every branch's samples as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}

	data := ExportData{RunMetadata: *meta}
	for i, bm := range meta.Branches {
		samples, err := s.LoadBranch(runID, i)
		if err != nil {
			return err
		}
		data.Branches = append(data.Branches, BranchExport{BranchMeta: bm, Samples: samples})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
