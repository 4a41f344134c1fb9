package dicom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	preambleLength = 128
	magicWord      = "DICM"
	metaGroup      = 0x0002
)

// Encode writes meta and ds as a DICOM Part 10 stream in explicit VR little
// endian. The whole stream is encoded before anything is written to w.
// Neither meta nor ds is modified.
func Encode(w io.Writer, meta *FileMeta, ds dicom.Dataset) error {
	data, err := encodeFile(meta, ds)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write dicom stream: %w", err)
	}
	return nil
}

// WriteFile encodes meta and ds and replaces path with the result. The file
// is written to a temporary sibling and renamed, so path either keeps its
// previous content or holds the complete new file.
func WriteFile(path string, meta *FileMeta, ds dicom.Dataset) (err error) {
	data, err := encodeFile(meta, ds)
	if err != nil {
		return err
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDestinationUnwritable, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrDestinationUnwritable, tmp.Name(), err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrDestinationUnwritable, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", ErrDestinationUnwritable, tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrDestinationUnwritable, tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrDestinationUnwritable, err)
	}
	return nil
}

func encodeFile(meta *FileMeta, ds dicom.Dataset) ([]byte, error) {
	if meta == nil {
		return nil, fmt.Errorf("%w: missing file meta information", ErrInconsistentDataset)
	}
	if err := checkConsistency(meta, ds); err != nil {
		return nil, err
	}

	charset, err := characterSetOf(ds)
	if err != nil {
		return nil, err
	}
	text, err := encoderFor(charset)
	if err != nil {
		return nil, err
	}
	ascii, _ := encoderFor("")

	var group bytes.Buffer
	if err := encodeElements(&group, meta.Elements(), ascii); err != nil {
		return nil, fmt.Errorf("encode file meta information: %w", err)
	}
	var body bytes.Buffer
	if err := encodeElements(&body, ds.Elements, text); err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}

	var out bytes.Buffer
	out.Grow(preambleLength + len(magicWord) + 12 + group.Len() + body.Len())
	out.Write(make([]byte, preambleLength))
	out.WriteString(magicWord)

	groupLength := make([]byte, 4)
	binary.LittleEndian.PutUint32(groupLength, uint32(group.Len()))
	writeHeader(&out, tag.FileMetaInformationGroupLength, "UL", len(groupLength))
	out.Write(groupLength)
	out.Write(group.Bytes())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// checkConsistency verifies the cross references between meta and ds.
func checkConsistency(meta *FileMeta, ds dicom.Dataset) error {
	for _, elem := range ds.Elements {
		if elem != nil && elem.Tag.Group == metaGroup {
			return fmt.Errorf("%w: file meta element %v in dataset", ErrInconsistentDataset, elem.Tag)
		}
	}
	if meta.TransferSyntaxUID != ExplicitVRLittleEndian {
		return fmt.Errorf("%w: transfer syntax %q is not explicit VR little endian", ErrInconsistentDataset, meta.TransferSyntaxUID)
	}

	sopInstance, err := stringValue(ds, tag.SOPInstanceUID)
	if err != nil {
		return err
	}
	if sopInstance != meta.MediaStorageSOPInstanceUID {
		return fmt.Errorf("%w: SOPInstanceUID %q does not match MediaStorageSOPInstanceUID %q",
			ErrInconsistentDataset, sopInstance, meta.MediaStorageSOPInstanceUID)
	}

	if _, err := ds.FindElementByTag(tag.SOPClassUID); err == nil {
		sopClass, err := stringValue(ds, tag.SOPClassUID)
		if err != nil {
			return err
		}
		if sopClass != meta.MediaStorageSOPClassUID {
			return fmt.Errorf("%w: SOPClassUID %q does not match MediaStorageSOPClassUID %q",
				ErrInconsistentDataset, sopClass, meta.MediaStorageSOPClassUID)
		}
	}
	return nil
}

func characterSetOf(ds dicom.Dataset) (string, error) {
	if _, err := ds.FindElementByTag(tag.SpecificCharacterSet); err != nil {
		return "", nil
	}
	return stringValue(ds, tag.SpecificCharacterSet)
}

func stringValue(ds dicom.Dataset, t tag.Tag) (string, error) {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return "", fmt.Errorf("%w: %v not found", ErrInconsistentDataset, t)
	}
	values, ok := elem.Value.GetValue().([]string)
	if !ok || len(values) != 1 {
		return "", fmt.Errorf("%w: %v must hold a single string", ErrInconsistentDataset, t)
	}
	return values[0], nil
}

// encodeElements writes elems sorted by (group, element).
func encodeElements(buf *bytes.Buffer, elems []*dicom.Element, text textEncoder) error {
	sorted := make([]*dicom.Element, len(elems))
	copy(sorted, elems)
	sort.SliceStable(sorted, func(i, j int) bool {
		return tagLess(sorted[i].Tag, sorted[j].Tag)
	})

	for i, elem := range sorted {
		if i > 0 && sorted[i-1].Tag == elem.Tag {
			return fmt.Errorf("%w: duplicate element %v", ErrInconsistentDataset, elem.Tag)
		}
		if err := encodeElement(buf, elem, text); err != nil {
			return err
		}
	}
	return nil
}

func tagLess(a, b tag.Tag) bool {
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	return a.Element < b.Element
}

func encodeElement(buf *bytes.Buffer, elem *dicom.Element, text textEncoder) error {
	if elem == nil || elem.Value == nil {
		return fmt.Errorf("%w: element without value", ErrInconsistentDataset)
	}
	vr := vrOf(elem.Tag, elem.RawValueRepresentation)
	if vr == "" {
		return fmt.Errorf("%w: no VR for element %v", ErrInconsistentDataset, elem.Tag)
	}

	value, err := encodeValue(elem, vr, text)
	if err != nil {
		return fmt.Errorf("element %v: %w", elem.Tag, err)
	}

	limit := maxShortLength
	if longVRs[vr] {
		limit = maxLongLength
	}
	if len(value) > limit {
		return fmt.Errorf("%w: element %v value is %d bytes, %s allows %d",
			ErrEncodingOverflow, elem.Tag, len(value), vr, limit)
	}

	writeHeader(buf, elem.Tag, vr, len(value))
	buf.Write(value)
	return nil
}

// writeHeader writes tag, VR and length in explicit VR little endian.
func writeHeader(buf *bytes.Buffer, t tag.Tag, vr string, length int) {
	var hdr [12]byte
	binary.LittleEndian.PutUint16(hdr[0:], t.Group)
	binary.LittleEndian.PutUint16(hdr[2:], t.Element)
	copy(hdr[4:6], vr)
	if longVRs[vr] {
		binary.LittleEndian.PutUint32(hdr[8:], uint32(length))
		buf.Write(hdr[:12])
		return
	}
	binary.LittleEndian.PutUint16(hdr[6:], uint16(length))
	buf.Write(hdr[:8])
}

func encodeValue(elem *dicom.Element, vr string, text textEncoder) ([]byte, error) {
	switch v := elem.Value.GetValue().(type) {
	case []string:
		if !stringVRs[vr] {
			return nil, fmt.Errorf("%w: string value for VR %s", ErrInconsistentDataset, vr)
		}
		b, err := text(vr, strings.Join(v, `\`))
		if err != nil {
			return nil, err
		}
		if len(b)%2 == 1 {
			if vr == "UI" {
				b = append(b, 0x00)
			} else {
				b = append(b, ' ')
			}
		}
		return b, nil

	case []int:
		return encodeInts(v, vr)

	case []byte:
		switch vr {
		case "OB", "UN":
			if len(v)%2 == 1 {
				b := make([]byte, len(v)+1)
				copy(b, v)
				return b, nil
			}
			return v, nil
		case "OW":
			if len(v)%2 == 1 {
				return nil, fmt.Errorf("%w: OW value has odd length %d", ErrInconsistentDataset, len(v))
			}
			return v, nil
		}
		return nil, fmt.Errorf("%w: byte value for VR %s", ErrInconsistentDataset, vr)
	}
	return nil, fmt.Errorf("%w: unsupported value type %v for VR %s", ErrInconsistentDataset, elem.Value.ValueType(), vr)
}

func encodeInts(values []int, vr string) ([]byte, error) {
	var size int
	var lo, hi int64
	switch vr {
	case "US":
		size, lo, hi = 2, 0, 0xFFFF
	case "SS":
		size, lo, hi = 2, -0x8000, 0x7FFF
	case "UL":
		size, lo, hi = 4, 0, 0xFFFFFFFF
	case "SL":
		size, lo, hi = 4, -0x80000000, 0x7FFFFFFF
	default:
		return nil, fmt.Errorf("%w: integer value for VR %s", ErrInconsistentDataset, vr)
	}

	b := make([]byte, 0, size*len(values))
	for _, v := range values {
		if int64(v) < lo || int64(v) > hi {
			return nil, fmt.Errorf("%w: %d out of range for VR %s", ErrEncodingOverflow, v, vr)
		}
		if size == 2 {
			b = binary.LittleEndian.AppendUint16(b, uint16(v))
		} else {
			b = binary.LittleEndian.AppendUint32(b, uint32(v))
		}
	}
	return b, nil
}
