package dicom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/jpeg2dcm/internal/imaging"
)

// rawElement is an element header read back from encoded bytes.
type rawElement struct {
	tag    tag.Tag
	vr     string
	offset int // start of the value
	length int
}

// walkElements decodes the explicit VR little endian headers after the preamble.
func walkElements(t *testing.T, data []byte) []rawElement {
	t.Helper()
	var elems []rawElement
	pos := preambleLength + len(magicWord)
	for pos < len(data) {
		if pos+8 > len(data) {
			t.Fatalf("truncated element header at offset %d", pos)
		}
		e := rawElement{
			tag: tag.Tag{
				Group:   binary.LittleEndian.Uint16(data[pos:]),
				Element: binary.LittleEndian.Uint16(data[pos+2:]),
			},
			vr: string(data[pos+4 : pos+6]),
		}
		if longVRs[e.vr] {
			e.length = int(binary.LittleEndian.Uint32(data[pos+8:]))
			e.offset = pos + 12
		} else {
			e.length = int(binary.LittleEndian.Uint16(data[pos+6:]))
			e.offset = pos + 8
		}
		if e.offset+e.length > len(data) {
			t.Fatalf("element %v overruns the stream", e.tag)
		}
		elems = append(elems, e)
		pos = e.offset + e.length
	}
	return elems
}

func encodeTest(t *testing.T, facts imaging.Facts, id PatientIdentity) (*FileMeta, []byte) {
	t.Helper()
	meta, ds, err := testBuilder().Build(facts, id)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, meta, ds); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return meta, buf.Bytes()
}

func TestEncode_Layout(t *testing.T) {
	_, data := encodeTest(t, rgbFacts(100, 50), PatientIdentity{Name: "Anonymous", ID: "abc-123"})

	if !bytes.Equal(data[:preambleLength], make([]byte, preambleLength)) {
		t.Error("preamble should be 128 zero bytes")
	}
	if got := string(data[preambleLength : preambleLength+4]); got != "DICM" {
		t.Fatalf("magic = %q, want DICM", got)
	}

	elems := walkElements(t, data)
	if elems[0].tag != tag.FileMetaInformationGroupLength || elems[0].vr != "UL" || elems[0].length != 4 {
		t.Fatalf("first element = %+v, want group length UL", elems[0])
	}
	groupLength := int(binary.LittleEndian.Uint32(data[elems[0].offset:]))

	metaEnd := elems[0].offset + 4
	for _, e := range elems[1:] {
		if e.tag.Group != metaGroup {
			break
		}
		metaEnd = e.offset + e.length
	}
	if metaEnd-(elems[0].offset+4) != groupLength {
		t.Errorf("group length = %d, meta elements span %d bytes", groupLength, metaEnd-(elems[0].offset+4))
	}

	for i := 1; i < len(elems); i++ {
		if !tagLess(elems[i-1].tag, elems[i].tag) {
			t.Errorf("elements out of order: %v before %v", elems[i-1].tag, elems[i].tag)
		}
	}
	for _, e := range elems {
		if e.length%2 != 0 {
			t.Errorf("element %v has odd length %d", e.tag, e.length)
		}
	}

	last := elems[len(elems)-1]
	if last.tag != tag.PixelData || last.vr != "OB" {
		t.Fatalf("last element = %v %s, want PixelData OB", last.tag, last.vr)
	}
	if last.length != 100*50*3 {
		t.Errorf("PixelData length = %d, want 15000", last.length)
	}
	if !bytes.Equal(data[last.offset:last.offset+last.length], rgbFacts(100, 50).Pixels) {
		t.Error("PixelData bytes differ from source pixels")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	facts := rgbFacts(100, 50)
	meta, data := encodeTest(t, facts, PatientIdentity{Name: "Anonymous", ID: "abc-123"})

	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil, dicom.SkipPixelData())
	if err != nil {
		t.Fatalf("dicom.Parse failed: %v", err)
	}

	if got := stringAttr(t, ds, tag.TransferSyntaxUID); got != ExplicitVRLittleEndian {
		t.Errorf("TransferSyntaxUID = %q", got)
	}
	if got := stringAttr(t, ds, tag.MediaStorageSOPInstanceUID); got != meta.MediaStorageSOPInstanceUID {
		t.Errorf("MediaStorageSOPInstanceUID = %q, want %q", got, meta.MediaStorageSOPInstanceUID)
	}
	if got := stringAttr(t, ds, tag.SOPInstanceUID); got != meta.MediaStorageSOPInstanceUID {
		t.Errorf("SOPInstanceUID = %q, want %q", got, meta.MediaStorageSOPInstanceUID)
	}
	if got := intAttr(t, ds, tag.Rows); got != 50 {
		t.Errorf("Rows = %d, want 50", got)
	}
	if got := intAttr(t, ds, tag.Columns); got != 100 {
		t.Errorf("Columns = %d, want 100", got)
	}
	if got := intAttr(t, ds, tag.SamplesPerPixel); got != 3 {
		t.Errorf("SamplesPerPixel = %d, want 3", got)
	}
	if got := stringAttr(t, ds, tag.PatientName); got != "Anonymous" {
		t.Errorf("PatientName = %q", got)
	}
	if got := stringAttr(t, ds, tag.PatientID); got != "abc-123" {
		t.Errorf("PatientID = %q", got)
	}
	if got := stringAttr(t, ds, tag.Modality); got != "OT" {
		t.Errorf("Modality = %q", got)
	}
}

func TestEncode_SinglePixel(t *testing.T) {
	facts := imaging.Facts{Width: 1, Height: 1, Mode: imaging.Grayscale8, Pixels: []byte{0xAB}}
	_, data := encodeTest(t, facts, PatientIdentity{Name: "A", ID: "B"})

	if _, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil, dicom.SkipPixelData()); err != nil {
		t.Fatalf("dicom.Parse failed: %v", err)
	}

	elems := walkElements(t, data)
	last := elems[len(elems)-1]
	if last.tag != tag.PixelData {
		t.Fatalf("last element is %v", last.tag)
	}
	// odd-length OB values are padded with a single zero byte
	if last.length != 2 {
		t.Fatalf("PixelData length = %d, want 2", last.length)
	}
	if got := data[last.offset : last.offset+2]; !bytes.Equal(got, []byte{0xAB, 0x00}) {
		t.Errorf("PixelData = % x, want ab 00", got)
	}
}

func TestEncode_StringPadding(t *testing.T) {
	_, data := encodeTest(t, grayFacts(2, 2), PatientIdentity{Name: "Abc", ID: "B"})

	for _, e := range walkElements(t, data) {
		value := data[e.offset : e.offset+e.length]
		switch e.tag {
		case tag.PatientName:
			if string(value) != "Abc " {
				t.Errorf("PatientName encoded as %q, want space padding", value)
			}
		case tag.TransferSyntaxUID:
			if string(value) != ExplicitVRLittleEndian+"\x00" {
				t.Errorf("TransferSyntaxUID encoded as %q, want NUL padding", value)
			}
		}
	}
}

func TestEncode_Latin1(t *testing.T) {
	_, data := encodeTest(t, grayFacts(1, 1), PatientIdentity{Name: "Müller", ID: "B"})

	for _, e := range walkElements(t, data) {
		if e.tag != tag.PatientName {
			continue
		}
		want := []byte{'M', 0xFC, 'l', 'l', 'e', 'r'}
		if got := data[e.offset : e.offset+e.length]; !bytes.Equal(got, want) {
			t.Errorf("PatientName = % x, want % x", got, want)
		}
		return
	}
	t.Fatal("PatientName not found")
}

func TestEncode_NonASCIIWithoutCharacterSet(t *testing.T) {
	meta, ds, err := testBuilder().Build(grayFacts(1, 1), PatientIdentity{Name: "A", ID: "B"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ds.Elements = setElement(ds.Elements, newElement(tag.PatientName, []string{"Øster"}))

	err = Encode(&bytes.Buffer{}, meta, ds)
	if !errors.Is(err, ErrEncodingOverflow) {
		t.Fatalf("error = %v, want ErrEncodingOverflow", err)
	}
}

func TestEncode_Overflow(t *testing.T) {
	t.Run("long patient name", func(t *testing.T) {
		meta, ds, err := testBuilder().Build(grayFacts(1, 1), PatientIdentity{Name: strings.Repeat("A", 70000), ID: "B"})
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		var buf bytes.Buffer
		err = Encode(&buf, meta, ds)
		if !errors.Is(err, ErrEncodingOverflow) {
			t.Fatalf("error = %v, want ErrEncodingOverflow", err)
		}
		if buf.Len() != 0 {
			t.Errorf("%d bytes written before the error", buf.Len())
		}
	})

	t.Run("columns out of US range", func(t *testing.T) {
		meta, ds, err := testBuilder().Build(grayFacts(70000, 1), PatientIdentity{Name: "A", ID: "B"})
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if err := Encode(&bytes.Buffer{}, meta, ds); !errors.Is(err, ErrEncodingOverflow) {
			t.Fatalf("error = %v, want ErrEncodingOverflow", err)
		}
	})
}

func TestEncode_InconsistentSOPInstance(t *testing.T) {
	meta, ds, err := testBuilder().Build(grayFacts(1, 1), PatientIdentity{Name: "A", ID: "B"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	drifted := *meta
	drifted.MediaStorageSOPInstanceUID = "1.2.3.999"

	if err := Encode(&bytes.Buffer{}, &drifted, ds); !errors.Is(err, ErrInconsistentDataset) {
		t.Fatalf("error = %v, want ErrInconsistentDataset", err)
	}
}

func TestEncode_RejectsMetaElementsInDataset(t *testing.T) {
	meta, ds, err := testBuilder().Build(grayFacts(1, 1), PatientIdentity{Name: "A", ID: "B"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ds.Elements = append(ds.Elements, newElement(tag.TransferSyntaxUID, []string{ExplicitVRLittleEndian}))

	if err := Encode(&bytes.Buffer{}, meta, ds); !errors.Is(err, ErrInconsistentDataset) {
		t.Fatalf("error = %v, want ErrInconsistentDataset", err)
	}
}

func TestEncode_DoesNotMutate(t *testing.T) {
	meta, ds, err := testBuilder().Build(rgbFacts(2, 2), PatientIdentity{Name: "A", ID: "B"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	metaCopy := *meta
	order := make([]tag.Tag, len(ds.Elements))
	for i, e := range ds.Elements {
		order[i] = e.Tag
	}

	var first, second bytes.Buffer
	if err := Encode(&first, meta, ds); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := Encode(&second, meta, ds); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("encoding the same input twice should give the same bytes")
	}
	if *meta != metaCopy {
		t.Error("Encode modified the file meta")
	}
	for i, e := range ds.Elements {
		if e.Tag != order[i] {
			t.Fatalf("Encode reordered the dataset at %d: %v != %v", i, e.Tag, order[i])
		}
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.dcm")

	meta, ds, err := testBuilder().Build(grayFacts(8, 4), PatientIdentity{Name: "A", ID: "B"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := WriteFile(path, meta, ds); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	parsed, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		t.Fatalf("dicom.ParseFile failed: %v", err)
	}
	if got := intAttr(t, parsed, tag.Rows); got != 4 {
		t.Errorf("Rows = %d, want 4", got)
	}
	assertOnlyFiles(t, dir, "out.dcm")
}

func TestWriteFile_FailureLeavesDestinationUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.dcm")
	if err := os.WriteFile(path, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}

	meta, ds, err := testBuilder().Build(grayFacts(1, 1), PatientIdentity{Name: strings.Repeat("A", 70000), ID: "B"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := WriteFile(path, meta, ds); !errors.Is(err, ErrEncodingOverflow) {
		t.Fatalf("error = %v, want ErrEncodingOverflow", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "previous" {
		t.Errorf("destination changed to %q", content)
	}
	assertOnlyFiles(t, dir, "out.dcm")
}

func TestWriteFile_DestinationUnwritable(t *testing.T) {
	dir := t.TempDir()
	meta, ds, err := testBuilder().Build(grayFacts(1, 1), PatientIdentity{Name: "A", ID: "B"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	t.Run("missing directory", func(t *testing.T) {
		path := filepath.Join(dir, "missing", "out.dcm")
		if err := WriteFile(path, meta, ds); !errors.Is(err, ErrDestinationUnwritable) {
			t.Fatalf("error = %v, want ErrDestinationUnwritable", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("no file should be created")
		}
	})

	t.Run("destination is a directory", func(t *testing.T) {
		path := filepath.Join(dir, "taken.dcm")
		if err := os.MkdirAll(filepath.Join(path, "child"), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := WriteFile(path, meta, ds); !errors.Is(err, ErrDestinationUnwritable) {
			t.Fatalf("error = %v, want ErrDestinationUnwritable", err)
		}
		assertOnlyFiles(t, dir, "taken.dcm")
	})
}

// assertOnlyFiles fails if dir holds entries other than names.
func assertOnlyFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	for _, e := range entries {
		if !want[e.Name()] {
			t.Errorf("unexpected file %q left in %s", e.Name(), dir)
		}
	}
}
