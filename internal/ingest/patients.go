package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jbaudry/chronotrace/internal/model"
)

// patientsFile is the on-disk mapping format:
//
//	patients:
//	  doc_001: patient_42
//	  doc_002: patient_42
type patientsFile struct {
	Patients map[string]string `yaml:"patients"`
}

// LoadPatients reads the document-to-patient mapping. A missing path is not
// an error: every document then lands in the unknown-patient bucket.
func LoadPatients(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("%w: read patients file: %v", model.ErrConfiguration, err)
	}

	var pf patientsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("%w: parse patients file: %v", model.ErrConfiguration, err)
	}
	if pf.Patients == nil {
		pf.Patients = map[string]string{}
	}
	return pf.Patients, nil
}

// PatientLookup returns a lookup function over the mapping that falls back
// to the unknown-patient bucket
func PatientLookup(mapping map[string]string) func(docID string) string {
	return func(docID string) string {
		if p, ok := mapping[docID]; ok && p != "" {
			return p
		}
		return model.UnknownPatient
	}
}
