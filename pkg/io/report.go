package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/stagetower/pkg/errors"
	"github.com/matzehuels/stagetower/pkg/stages"
)

// envelope is the controller's task report wrapper.
type envelope struct {
	MultiStageQuery *struct {
		TaskID  string         `json:"taskId"`
		Payload *stages.Report `json:"payload"`
	} `json:"multiStageQuery"`
}

// ReadReport decodes a report from r, accepting both the bare form and the
// controller's {"multiStageQuery": {"payload": ...}} envelope.
func ReadReport(r io.Reader) (*stages.Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return DecodeReport(data)
}

// DecodeReport decodes a report held in memory. See [ReadReport].
func DecodeReport(data []byte) (*stages.Report, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidReport, err, "decode report")
	}
	if env.MultiStageQuery != nil && env.MultiStageQuery.Payload != nil {
		rep := env.MultiStageQuery.Payload
		if rep.ID == "" {
			rep.ID = env.MultiStageQuery.TaskID
		}
		return checked(rep)
	}

	var rep stages.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidReport, err, "decode report")
	}
	return checked(&rep)
}

func checked(rep *stages.Report) (*stages.Report, error) {
	if len(rep.Stages) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidReport, "report has no stages")
	}
	return rep, nil
}

// ImportReport reads a report from a JSON file at path.
func ImportReport(path string) (*stages.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadReport(f)
}

// MarshalReport encodes a report in its canonical bare form.
func MarshalReport(rep *stages.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, rep); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON encodes v as indented JSON and writes it to w.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
