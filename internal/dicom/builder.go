// Package dicom builds Secondary Capture datasets from decoded images and
// writes them as DICOM Part 10 files in explicit VR little endian.
package dicom

import (
	"errors"
	"fmt"
	"time"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/jpeg2dcm/internal/imaging"
	"github.com/mrsinham/jpeg2dcm/internal/uid"
	"github.com/mrsinham/jpeg2dcm/internal/util"
)

const (
	// SecondaryCaptureImageStorage is the SOP class of every produced file.
	SecondaryCaptureImageStorage = "1.2.840.10008.5.1.4.1.1.7"
	// ExplicitVRLittleEndian is the only transfer syntax written.
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
	// ModalityOther is written in Modality (0008,0060).
	ModalityOther = "OT"
	// ConversionWorkstation is written in ConversionType (0008,0064).
	ConversionWorkstation = "WSD"
)

// Version is embedded in ImplementationVersionName as JPEG2DCM_<Version>.
var Version = "1.0.0"

// PatientIdentity is the identity attached to the produced file.
type PatientIdentity struct {
	Name string
	ID   string
}

// FileMeta holds the file meta information group (0002,xxxx).
type FileMeta struct {
	MediaStorageSOPClassUID    string
	MediaStorageSOPInstanceUID string
	ImplementationClassUID     string
	TransferSyntaxUID          string
	ImplementationVersionName  string
}

// Elements returns the meta group elements without the group length, in tag order.
func (m *FileMeta) Elements() []*dicom.Element {
	elems := []*dicom.Element{
		newElement(tag.FileMetaInformationVersion, []byte{0x00, 0x01}),
		newElement(tag.MediaStorageSOPClassUID, []string{m.MediaStorageSOPClassUID}),
		newElement(tag.MediaStorageSOPInstanceUID, []string{m.MediaStorageSOPInstanceUID}),
		newElement(tag.TransferSyntaxUID, []string{m.TransferSyntaxUID}),
		newElement(tag.ImplementationClassUID, []string{m.ImplementationClassUID}),
	}
	if m.ImplementationVersionName != "" {
		elems = append(elems, newElement(tag.ImplementationVersionName, []string{m.ImplementationVersionName}))
	}
	return elems
}

// Builder assembles the file meta header and main dataset for one image.
// A Builder holds no per-conversion state and may be shared between goroutines
// as long as its generator and clock are safe for concurrent use.
type Builder struct {
	UIDs uid.Generator
	// Now is captured once per Build. Defaults to time.Now.
	Now func() time.Time
	// Extra are descriptive attributes written over the defaults.
	Extra util.ParsedTags
}

// NewBuilder returns a Builder using gen and the local clock.
func NewBuilder(gen uid.Generator) *Builder {
	return &Builder{UIDs: gen, Now: time.Now}
}

// Build produces the file meta header and main dataset for facts and id.
// Nothing is returned on error.
func (b *Builder) Build(facts imaging.Facts, id PatientIdentity) (*FileMeta, dicom.Dataset, error) {
	if err := facts.Validate(); err != nil {
		if !errors.Is(err, ErrUnsupportedColorMode) {
			err = fmt.Errorf("%w: %w", ErrUnsupportedColorMode, err)
		}
		return nil, dicom.Dataset{}, err
	}

	uids, err := b.freshUIDs(4)
	if err != nil {
		return nil, dicom.Dataset{}, err
	}
	sopInstanceUID, implementationUID, studyUID, seriesUID := uids[0], uids[1], uids[2], uids[3]

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	ts := now()
	date := ts.Format("20060102")
	clock := ts.Format("150405")

	meta := &FileMeta{
		MediaStorageSOPClassUID:    SecondaryCaptureImageStorage,
		MediaStorageSOPInstanceUID: sopInstanceUID,
		ImplementationClassUID:     implementationUID,
		TransferSyntaxUID:          ExplicitVRLittleEndian,
		ImplementationVersionName:  "JPEG2DCM_" + Version,
	}

	elements := []*dicom.Element{
		newElement(tag.SOPClassUID, []string{SecondaryCaptureImageStorage}),
		newElement(tag.SOPInstanceUID, []string{sopInstanceUID}),
		newElement(tag.StudyDate, []string{date}),
		newElement(tag.ContentDate, []string{date}),
		newElement(tag.StudyTime, []string{clock}),
		newElement(tag.ContentTime, []string{clock}),
		newElement(tag.AccessionNumber, []string{""}),
		newElement(tag.Modality, []string{ModalityOther}),
		newElement(tag.ConversionType, []string{ConversionWorkstation}),
		newElement(tag.ReferringPhysicianName, []string{""}),
		newElement(tag.PatientName, []string{id.Name}),
		newElement(tag.PatientID, []string{id.ID}),
		newElement(tag.PatientBirthDate, []string{""}),
		newElement(tag.PatientSex, []string{""}),
		newElement(tag.StudyInstanceUID, []string{studyUID}),
		newElement(tag.SeriesInstanceUID, []string{seriesUID}),
		newElement(tag.StudyID, []string{""}),
		newElement(tag.SeriesNumber, []string{""}),
		newElement(tag.InstanceNumber, []string{"1"}),
		newElement(tag.PatientOrientation, []string{""}),
	}
	elements = append(elements, pixelModule(facts)...)

	text := []string{id.Name, id.ID}
	for _, extra := range b.Extra {
		elements = setElement(elements, newElementVR(extra.Info.Tag, extra.Info.VR, []string{extra.Value}))
		text = append(text, extra.Value)
	}
	if charset := SelectCharacterSet(text...); charset != "" {
		elements = append(elements, newElement(tag.SpecificCharacterSet, []string{charset}))
	}

	return meta, dicom.Dataset{Elements: elements}, nil
}

// freshUIDs generates n distinct UIDs.
func (b *Builder) freshUIDs(n int) ([]string, error) {
	if b.UIDs == nil {
		return nil, fmt.Errorf("%w: no UID generator configured", ErrIdentifierGeneration)
	}
	uids := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		u, err := b.UIDs.NewUID()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIdentifierGeneration, err)
		}
		if !uid.Valid(u) {
			return nil, fmt.Errorf("%w: generator returned invalid UID %q", ErrIdentifierGeneration, u)
		}
		if seen[u] {
			return nil, fmt.Errorf("%w: generator returned duplicate UID %q", ErrIdentifierGeneration, u)
		}
		seen[u] = true
		uids = append(uids, u)
	}
	return uids, nil
}

// pixelModule returns the image pixel module for facts.
func pixelModule(facts imaging.Facts) []*dicom.Element {
	photometric := "MONOCHROME2"
	if facts.Mode == imaging.RGB8 {
		photometric = "RGB"
	}

	elems := []*dicom.Element{
		newElement(tag.SamplesPerPixel, []int{facts.Mode.SamplesPerPixel()}),
		newElement(tag.PhotometricInterpretation, []string{photometric}),
	}
	if facts.Mode == imaging.RGB8 {
		elems = append(elems, newElement(tag.PlanarConfiguration, []int{0}))
	}
	return append(elems,
		newElement(tag.Rows, []int{facts.Height}),
		newElement(tag.Columns, []int{facts.Width}),
		newElement(tag.BitsAllocated, []int{8}),
		newElement(tag.BitsStored, []int{8}),
		newElement(tag.HighBit, []int{7}),
		newElement(tag.PixelRepresentation, []int{0}),
		newElement(tag.PixelData, facts.Pixels),
	)
}

// setElement replaces the element with the same tag or appends elem.
func setElement(elems []*dicom.Element, elem *dicom.Element) []*dicom.Element {
	for i, e := range elems {
		if e.Tag == elem.Tag {
			elems[i] = elem
			return elems
		}
	}
	return append(elems, elem)
}

// newElement creates an element whose VR comes from the attribute table.
func newElement(t tag.Tag, data any) *dicom.Element {
	return newElementVR(t, attributeVR[t], data)
}

// newElementVR panics on value types dicom.NewValue rejects; callers only
// pass []string, []int and []byte.
func newElementVR(t tag.Tag, rawVR string, data any) *dicom.Element {
	value, err := dicom.NewValue(data)
	if err != nil {
		panic(fmt.Sprintf("failed to create value for element %v: %v", t, err))
	}
	return &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    tag.GetVRKind(t, rawVR),
		RawValueRepresentation: rawVR,
		Value:                  value,
	}
}
