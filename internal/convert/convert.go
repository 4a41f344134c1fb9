// Package convert turns image files into DICOM Secondary Capture files.
package convert

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	dcm "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/jpeg2dcm/internal/config"
	"github.com/mrsinham/jpeg2dcm/internal/dicom"
	"github.com/mrsinham/jpeg2dcm/internal/imaging"
	"github.com/mrsinham/jpeg2dcm/internal/uid"
	"github.com/mrsinham/jpeg2dcm/internal/util"
)

// Request describes one conversion.
type Request struct {
	Input  string
	Output string // defaults to SuggestOutput(Input)

	PatientName string // defaults to "Anonymous"
	PatientID   string // defaults to a fresh token
}

// Result describes a written file.
type Result struct {
	Input  string
	Output string

	PatientName       string
	PatientID         string
	StudyInstanceUID  string
	SeriesInstanceUID string
	SOPInstanceUID    string

	Width  int
	Height int
	Mode   imaging.ColorMode
}

// Converter runs the decode, build and write pipeline.
type Converter struct {
	Builder *dicom.Builder
	// Decode defaults to imaging.Decode.
	Decode func(path string) (imaging.Facts, error)
	Log    zerolog.Logger
}

// New returns a Converter generating identifiers with gen and writing extra
// on every file.
func New(gen uid.Generator, extra util.ParsedTags) *Converter {
	b := dicom.NewBuilder(gen)
	b.Extra = extra
	return &Converter{Builder: b, Decode: imaging.Decode, Log: zerolog.Nop()}
}

// Convert converts input to output with the given patient identity, using
// random UIDs under the 2.25 root.
func Convert(input, output, patientName, patientID string) error {
	_, err := New(&uid.UUIDGenerator{}, nil).Convert(Request{
		Input:       input,
		Output:      output,
		PatientName: patientName,
		PatientID:   patientID,
	})
	return err
}

// Convert decodes req.Input, builds the dataset and writes req.Output.
// Errors wrap one of the dicom error kinds.
func (c *Converter) Convert(req Request) (*Result, error) {
	start := time.Now()
	if req.Output == "" {
		req.Output = SuggestOutput(req.Input)
	}

	decode := c.Decode
	if decode == nil {
		decode = imaging.Decode
	}
	facts, err := decode(req.Input)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	c.Log.Debug().
		Str("input", req.Input).
		Str("format", facts.Format).
		Int("width", facts.Width).
		Int("height", facts.Height).
		Stringer("mode", facts.Mode).
		Msg("decoded image")

	id, err := c.identity(req)
	if err != nil {
		return nil, err
	}

	meta, ds, err := c.Builder.Build(facts, id)
	if err != nil {
		return nil, fmt.Errorf("build dataset for %s: %w", req.Input, err)
	}

	if err := dicom.WriteFile(req.Output, meta, ds); err != nil {
		return nil, fmt.Errorf("write %s: %w", req.Output, err)
	}

	res := &Result{
		Input:          req.Input,
		Output:         req.Output,
		PatientName:    id.Name,
		PatientID:      id.ID,
		SOPInstanceUID: meta.MediaStorageSOPInstanceUID,
		Width:          facts.Width,
		Height:         facts.Height,
		Mode:           facts.Mode,
	}
	res.StudyInstanceUID = firstString(ds.FindElementByTag(tag.StudyInstanceUID))
	res.SeriesInstanceUID = firstString(ds.FindElementByTag(tag.SeriesInstanceUID))

	c.Log.Debug().
		Str("output", req.Output).
		Str("sop_instance_uid", res.SOPInstanceUID).
		Dur("elapsed", time.Since(start)).
		Msg("wrote dicom file")
	return res, nil
}

func (c *Converter) identity(req Request) (dicom.PatientIdentity, error) {
	id := dicom.PatientIdentity{Name: req.PatientName, ID: req.PatientID}
	if id.Name == "" {
		id.Name = config.DefaultPatientName
	}
	if id.ID == "" {
		token, err := NewPatientID(c.Builder.UIDs)
		if err != nil {
			return id, err
		}
		id.ID = token
	}
	return id, nil
}

// NewPatientID returns a fresh opaque patient identifier from gen.
func NewPatientID(gen uid.Generator) (string, error) {
	if gen == nil {
		return "", fmt.Errorf("%w: no generator configured", dicom.ErrIdentifierGeneration)
	}
	token, err := gen.NewToken()
	if err != nil {
		return "", fmt.Errorf("%w: patient id: %w", dicom.ErrIdentifierGeneration, err)
	}
	return token, nil
}

// ConvertAll converts reqs on a pool of workers (runtime.NumCPU() when
// workers <= 0). progress, if set, is called after each conversion from a
// single goroutine. Results are in request order; the first error aborts
// the result but conversions already started still complete.
func (c *Converter) ConvertAll(reqs []Request, workers int, progress func(done, total int)) ([]Result, error) {
	reqs = append([]Request(nil), reqs...)
	outputs := make(map[string]string, len(reqs))
	for i := range reqs {
		if reqs[i].Output == "" {
			reqs[i].Output = SuggestOutput(reqs[i].Input)
		}
		key := filepath.Clean(reqs[i].Output)
		if prev, ok := outputs[key]; ok {
			return nil, fmt.Errorf("%s and %s both write %s", prev, reqs[i].Input, reqs[i].Output)
		}
		outputs[key] = reqs[i].Input
	}
	if len(reqs) == 0 {
		return nil, nil
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(reqs) {
		workers = len(reqs)
	}
	c.Log.Debug().Int("files", len(reqs)).Int("workers", workers).Msg("starting batch")

	type outcome struct {
		index  int
		result *Result
		err    error
	}
	taskChan := make(chan int, len(reqs))
	resultChan := make(chan outcome, len(reqs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range taskChan {
				res, err := c.Convert(reqs[i])
				resultChan <- outcome{index: i, result: res, err: err}
			}
		}()
	}

	for i := range reqs {
		taskChan <- i
	}
	close(taskChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]Result, len(reqs))
	completed := 0
	firstIndex := len(reqs)
	var firstErr error
	for o := range resultChan {
		if o.err != nil {
			// report the lowest failing index
			if o.index < firstIndex {
				firstIndex, firstErr = o.index, o.err
			}
		} else {
			results[o.index] = *o.result
		}
		completed++
		if progress != nil {
			progress(completed, len(reqs))
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// SuggestOutput returns input with its extension replaced by ".dcm".
func SuggestOutput(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".dcm"
}

// OutputIn returns the suggested output name for input placed in dir.
func OutputIn(dir, input string) string {
	return filepath.Join(dir, filepath.Base(SuggestOutput(input)))
}

func firstString(elem *dcm.Element, err error) string {
	if err != nil || elem == nil {
		return ""
	}
	if values, ok := elem.Value.GetValue().([]string); ok && len(values) > 0 {
		return values[0]
	}
	return ""
}
