package dicom

import (
	"github.com/suyashkumar/dicom/pkg/tag"
)

// attributeVR is the value representation of every attribute the builder
// emits. Elements outside the table fall back to their RawValueRepresentation.
var attributeVR = map[tag.Tag]string{
	// File meta information
	tag.FileMetaInformationGroupLength: "UL",
	tag.FileMetaInformationVersion:     "OB",
	tag.MediaStorageSOPClassUID:        "UI",
	tag.MediaStorageSOPInstanceUID:     "UI",
	tag.TransferSyntaxUID:              "UI",
	tag.ImplementationClassUID:         "UI",
	tag.ImplementationVersionName:      "SH",

	// SOP common, general study/series, patient
	tag.SpecificCharacterSet:   "CS",
	tag.SOPClassUID:            "UI",
	tag.SOPInstanceUID:         "UI",
	tag.StudyDate:              "DA",
	tag.ContentDate:            "DA",
	tag.StudyTime:              "TM",
	tag.ContentTime:            "TM",
	tag.AccessionNumber:        "SH",
	tag.Modality:               "CS",
	tag.ConversionType:         "CS",
	tag.InstitutionName:        "LO",
	tag.ReferringPhysicianName: "PN",
	tag.StudyDescription:       "LO",
	tag.SeriesDescription:      "LO",
	tag.PatientName:            "PN",
	tag.PatientID:              "LO",
	tag.PatientBirthDate:       "DA",
	tag.PatientSex:             "CS",
	tag.StudyInstanceUID:       "UI",
	tag.SeriesInstanceUID:      "UI",
	tag.StudyID:                "SH",
	tag.SeriesNumber:           "IS",
	tag.InstanceNumber:         "IS",
	tag.PatientOrientation:     "CS",

	// Image pixel module
	tag.SamplesPerPixel:           "US",
	tag.PhotometricInterpretation: "CS",
	tag.PlanarConfiguration:       "US",
	tag.Rows:                      "US",
	tag.Columns:                   "US",
	tag.BitsAllocated:             "US",
	tag.BitsStored:                "US",
	tag.HighBit:                   "US",
	tag.PixelRepresentation:       "US",
	tag.PixelData:                 "OB",
}

// longVRs use two reserved bytes and a 32-bit length in explicit VR encoding.
var longVRs = map[string]bool{
	"OB": true, "OD": true, "OF": true, "OL": true, "OV": true, "OW": true,
	"SQ": true, "SV": true, "UC": true, "UN": true, "UR": true, "UT": true, "UV": true,
}

// textVRs are encoded through the dataset's character set; the remaining
// string VRs are restricted to the default repertoire.
var textVRs = map[string]bool{
	"LO": true, "LT": true, "PN": true, "SH": true, "ST": true, "UC": true, "UT": true,
}

var stringVRs = map[string]bool{
	"AE": true, "AS": true, "CS": true, "DA": true, "DS": true, "DT": true,
	"IS": true, "LO": true, "LT": true, "PN": true, "SH": true, "ST": true,
	"TM": true, "UC": true, "UI": true, "UR": true, "UT": true,
}

const (
	maxShortLength = 0xFFFF
	// 0xFFFFFFFF is reserved for undefined length.
	maxLongLength = 0xFFFFFFFE
)

// vrOf returns the VR used to encode elem.
func vrOf(t tag.Tag, raw string) string {
	if vr, ok := attributeVR[t]; ok {
		return vr
	}
	return raw
}
