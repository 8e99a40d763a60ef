package pjg

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Settings overrides the automatic per-component coder configuration.
// Index is the component number; unused entries are ignored.
type Settings struct {
	NoiseThreshold [4]uint8 // bit pattern noise threshold, 0..10
	SegmentCount   [4]uint8 // number of segments, 1..49
}

// Options configures a conversion. The zero value selects automatic
// settings, the 1D-DCT predictor and meta preservation.
type Options struct {
	// DiscardMeta drops APPn and COM segments. Round-trip identity with
	// the original file is waived when set.
	DiscardMeta bool

	// Predictor selects the DC prediction scheme. It affects the PJG
	// bitstream and must match between compression and decompression.
	Predictor Predictor

	// Verify runs the inverse conversion in memory and compares the
	// result against the input.
	Verify bool

	// Force continues after recoverable problems. Round-trip identity is
	// no longer guaranteed.
	Force bool

	// Settings overrides the automatic coder configuration.
	Settings *Settings
}

func optionsOrDefault(opts *Options) Options {
	if opts == nil {
		return Options{}
	}
	return *opts
}

// Version returns the program version string.
func Version() string {
	return fmt.Sprintf("v%d.%d%s", AppVersion/10, AppVersion%10, SubVersion)
}

// Result carries the outcome of a conversion.
type Result struct {
	FileType FileType // detected input type
	InSize   int
	OutSize  int
	Warnings []string
}

// runStages executes the pipeline stages in order, stopping at the first
// error. Warnings abort unless Force is set.
func (c *Codec) runStages(stages ...func() error) error {
	seen := 0
	for _, fn := range stages {
		if err := fn(); err != nil {
			return err
		}
		if len(c.warnings) > seen {
			for _, w := range c.warnings[seen:] {
				slog.Warn("recoverable problem", "detail", w)
			}
			seen = len(c.warnings)
			if !c.opts.Force {
				return NewError(ExitCodeWarningAsError, c.warnings[0])
			}
		}
	}
	return nil
}

// CompressBytes converts a JPEG file to PJG.
func CompressBytes(jpeg []byte, opts *Options) ([]byte, *Result, error) {
	o := optionsOrDefault(opts)
	if len(jpeg) < 2 || jpeg[0] != 0xFF || jpeg[1] != MarkerSOI {
		return nil, nil, NewError(ExitCodeUnsupportedJpeg, "file is not a JPEG")
	}

	c := newCodec(o)
	str := NewByteReader(jpeg)
	str.Seek(2)

	out := &bytes.Buffer{}
	err := c.runStages(
		func() error { return c.jpgRead(str) },
		func() error { return c.jpgDecode() },
		func() error { return c.checkValueRange() },
		func() error { c.adaptIcos(); return nil },
		func() error { c.predictDC(); return nil },
		func() error { c.calcZdstLists(); return nil },
		func() error { return c.pjgEncode(out) },
	)
	if err != nil {
		return nil, nil, err
	}

	res := &Result{
		FileType: FileTypeJpeg,
		InSize:   len(jpeg),
		OutSize:  out.Len(),
		Warnings: c.warnings,
	}

	if o.Verify && !o.DiscardMeta {
		vopts := o
		vopts.Verify = false
		decoded, _, err := DecompressBytes(out.Bytes(), &vopts)
		if err != nil {
			return nil, nil, Errorf(ExitCodeVerificationMismatch, "verification decode failed: %v", err)
		}
		if idx := firstDifference(jpeg, decoded); idx >= 0 {
			return nil, nil, Errorf(ExitCodeVerificationMismatch,
				"verification failed, first difference at offset %d", idx)
		}
	}

	return out.Bytes(), res, nil
}

// DecompressBytes converts a PJG file back to the original JPEG.
func DecompressBytes(pjgData []byte, opts *Options) ([]byte, *Result, error) {
	o := optionsOrDefault(opts)
	if len(pjgData) < 2 || pjgData[0] != PjgMagic[0] || pjgData[1] != PjgMagic[1] {
		return nil, nil, NewError(ExitCodeBadPjgFile, "file is not a PJG container")
	}

	c := newCodec(o)
	str := NewByteReader(pjgData)
	str.Seek(2)

	out := &bytes.Buffer{}
	err := c.runStages(
		func() error { return c.pjgDecode(str) },
		func() error { c.adaptIcos(); return nil },
		func() error { c.unpredictDC(); return nil },
		func() error { return c.jpgRecode() },
		func() error { return c.jpgMerge(out) },
	)
	if err != nil {
		return nil, nil, err
	}

	res := &Result{
		FileType: FileTypePjg,
		InSize:   len(pjgData),
		OutSize:  out.Len(),
		Warnings: c.warnings,
	}

	if o.Verify && !o.DiscardMeta {
		vopts := o
		vopts.Verify = false
		if !c.autoSet {
			s := &Settings{}
			for cmp := 0; cmp < MaxComponents; cmp++ {
				s.NoiseThreshold[cmp] = c.cmpnfo[cmp].NoisTrs
				s.SegmentCount[cmp] = c.cmpnfo[cmp].SegmCnt
			}
			vopts.Settings = s
		}
		recoded, _, err := CompressBytes(out.Bytes(), &vopts)
		if err != nil {
			return nil, nil, Errorf(ExitCodeVerificationMismatch, "verification encode failed: %v", err)
		}
		if idx := firstDifference(pjgData, recoded); idx >= 0 {
			return nil, nil, Errorf(ExitCodeVerificationMismatch,
				"verification failed, first difference at offset %d", idx)
		}
	}

	return out.Bytes(), res, nil
}

// ConvertBytes dispatches on the file magic: JPEG input is compressed,
// PJG input is decompressed.
func ConvertBytes(data []byte, opts *Options) ([]byte, *Result, error) {
	switch DetectFileType(data) {
	case FileTypeJpeg:
		return CompressBytes(data, opts)
	case FileTypePjg:
		return DecompressBytes(data, opts)
	default:
		return nil, nil, NewError(ExitCodeFormatError, "filetype of input is unknown")
	}
}

// DetectFileType inspects the magic bytes of data.
func DetectFileType(data []byte) FileType {
	if len(data) >= 2 {
		if data[0] == 0xFF && data[1] == MarkerSOI {
			return FileTypeJpeg
		}
		if data[0] == PjgMagic[0] && data[1] == PjgMagic[1] {
			return FileTypePjg
		}
	}
	return FileTypeUnknown
}

// Convert reads a whole stream, converts it and writes the result.
func Convert(r io.Reader, w io.Writer, opts *Options) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewError(ExitCodeIOError, err.Error())
	}
	out, res, err := ConvertBytes(data, opts)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(out); err != nil {
		return nil, NewError(ExitCodeIOError, err.Error())
	}
	return res, nil
}

// ConvertFile converts inPath into outPath. The output file is removed
// again when the conversion fails.
func ConvertFile(inPath, outPath string, opts *Options) (*Result, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return nil, NewError(ExitCodeIOError, err.Error())
	}
	out, res, err := ConvertBytes(data, opts)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		os.Remove(outPath)
		return nil, NewError(ExitCodeIOError, err.Error())
	}
	return res, nil
}

// firstDifference returns the offset of the first differing byte, the
// shorter length on a prefix match, or -1 when equal.
func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
