package mp4

import "fmt"

// TrackParams describes the single video track carried by an init segment.
type TrackParams struct {
	Width     uint16
	Height    uint16
	Codec     string // e.g. "avc1.64001f". Not written; informational.
	ExtraData []byte // AVCDecoderConfigurationRecord, written verbatim.
}

// H264TimeScale is the number of H264 90kHz ticks per second, used as the
// mdhd timescale for the (sole) video track.
const H264TimeScale = 90_000

// UnityMatrix is the identity transform used by mvhd/tkhd.
var UnityMatrix = [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}

// UndLanguage is the packed ISO-639-2/T "und" (undetermined) language code
// used by mdhd when no language is known.
var UndLanguage = [3]byte{21, 14, 4}

// GenerateInit produces a complete ftyp+moov for a single video track of
// track id 1, ready to prefix a live fMP4 session.
func GenerateInit(params TrackParams) ([]byte, error) {
	ftyp := Boxes{Box: &Ftyp{
		MajorBrand:   [4]byte{'m', 'p', '4', '2'},
		MinorVersion: 1,
		CompatibleBrands: []CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'m', 'p', '4', '1'}},
			{CompatibleBrand: [4]byte{'m', 'p', '4', '2'}},
			{CompatibleBrand: [4]byte{'i', 's', 'o', 'm'}},
			{CompatibleBrand: [4]byte{'h', 'l', 's', 'f'}},
		},
	}}

	moov := Boxes{
		Box: &Moov{},
		Children: []Boxes{
			{Box: &Mvhd{
				Timescale:   1000,
				Rate:        0x00010000,
				Volume:      0x0100,
				Matrix:      UnityMatrix,
				NextTrackID: 2,
			}},
			videoTrak(params),
			{Box: &Mvex{}, Children: []Boxes{
				{Box: &Trex{
					TrackID:                       1,
					DefaultSampleDescriptionIndex: 1,
					DefaultSampleFlags:            0x00010000,
				}},
			}},
		},
	}

	out := make([]byte, ftyp.Size()+moov.Size())
	pos := 0
	ftyp.Marshal(out, &pos)
	moov.Marshal(out, &pos)
	if pos != len(out) {
		return nil, fmt.Errorf("generate init: %w: wrote %d of %d bytes", ErrIntegerConversion, pos, len(out))
	}
	return out, nil
}

func videoTrak(params TrackParams) Boxes {
	return Boxes{
		Box: &Trak{},
		Children: []Boxes{
			{Box: &Tkhd{
				FullBox:  FullBox{Flags: [3]byte{0, 0, 3}}, // track enabled, in movie.
				TrackID:  1,
				Matrix:   UnityMatrix,
				Width:    uint32(params.Width) << 16,
				Height:   uint32(params.Height) << 16,
			}},
			{Box: &Mdia{}, Children: []Boxes{
				{Box: &Mdhd{
					Timescale: H264TimeScale,
					Language:  UndLanguage,
				}},
				{Box: &Hdlr{
					HandlerType: [4]byte{'v', 'i', 'd', 'e'},
					Name:        "VideoHandler",
				}},
				{Box: &Minf{}, Children: []Boxes{
					{Box: &Vmhd{FullBox: FullBox{Flags: [3]byte{0, 0, 1}}}},
					{Box: &Dinf{}, Children: []Boxes{
						{Box: &Dref{EntryCount: 1}, Children: []Boxes{
							{Box: &URL{FullBox: FullBox{Flags: [3]byte{0, 0, 1}}}},
						}},
					}},
					{Box: &Stbl{}, Children: []Boxes{
						{Box: &Stsd{EntryCount: 1}, Children: []Boxes{
							VideoSampleEntry(params),
						}},
						{Box: &Stts{}},
						{Box: &Stsc{}},
						{Box: &Stsz{}},
						{Box: &Stco{}},
					}},
				}},
			}},
		},
	}
}

// VideoSampleEntry builds the avc1 sample-description entry shared by
// fragmented and progressive (VOD) moov trees.
func VideoSampleEntry(params TrackParams) Boxes {
	return Boxes{
		Box: &Avc1{
			SampleEntry:     SampleEntry{DataReferenceIndex: 1},
			Width:           params.Width,
			Height:          params.Height,
			Horizresolution: 0x00480000,
			Vertresolution:  0x00480000,
			FrameCount:      1,
			Depth:           0x0018,
			PreDefined3:     -1,
		},
		Children: []Boxes{
			{Box: &RawBox{BoxName: BoxType{'a', 'v', 'c', 'C'}, Data: params.ExtraData}},
			{Box: &Btrt{}},
		},
	}
}
