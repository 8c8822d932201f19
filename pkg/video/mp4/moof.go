package mp4

import "fmt"

// Frame is one presentation unit handed to GenerateMoof. PTS is absolute at
// the 90kHz timescale; DTSOffset is signed such that dts = pts - dtsOffset.
type Frame struct {
	PTS                 int64
	DTSOffset           int32
	Duration            uint32
	RandomAccessPresent bool
	AVCC                []byte
}

func (f Frame) dts() int64 {
	return f.PTS - int64(f.DTSOffset)
}

// GenerateMoof produces moof+mdat-header covering frames, a fragment of a
// single video track (id 1). mdat's payload bytes are not included in the
// returned buffer; the caller appends them immediately after.
func GenerateMoof(muxerStartTime int64, frames []Frame) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("generate moof: %w: no frames", ErrIntegerConversion)
	}

	baseMediaDecodeTime := frames[0].dts() - muxerStartTime
	if baseMediaDecodeTime < 0 {
		return nil, fmt.Errorf("generate moof: %w: base media decode time %d < 0",
			ErrArithmeticOverflow, baseMediaDecodeTime)
	}

	entries := make([]TrunEntry, len(frames))
	mdatSize := 0
	for i, f := range frames {
		flags := uint32(0)
		if !f.RandomAccessPresent {
			flags = 0x00010000
		}
		entries[i] = TrunEntry{
			SampleDuration:                f.Duration,
			SampleSize:                    uint32(len(f.AVCC)),
			SampleFlags:                   flags,
			SampleCompositionTimeOffsetV1: int32(f.DTSOffset),
		}
		mdatSize += len(f.AVCC)
	}

	trun := &Trun{
		FullBox: FullBox{
			Version: 1,
			Flags: Flags24(TrunDataOffsetPresent |
				TrunSampleDurationPresent |
				TrunSampleSizePresent |
				TrunSampleFlagsPresent |
				TrunSampleCompositionTimeOffsetPresent),
		},
		SampleCount: uint32(len(frames)),
		Entries:     entries,
	}

	const tfhdDefaultBaseIsMoof = 0x020000

	tfhd := &Tfhd{
		FullBox: FullBox{Flags: Flags24(tfhdDefaultBaseIsMoof)},
		TrackID: 1,
	}

	tfdt := &Tfdt{
		FullBox:               FullBox{Version: 1},
		BaseMediaDecodeTimeV1: uint64(baseMediaDecodeTime),
	}

	moof := Boxes{
		Box: &Moof{},
		Children: []Boxes{
			{Box: &Mfhd{SequenceNumber: 1}},
			{Box: &Traf{}, Children: []Boxes{
				{Box: tfhd},
				{Box: tfdt},
				{Box: trun},
			}},
		},
	}

	dataOffset := int32(moof.Size() + 8)
	trun.DataOffset = dataOffset

	out := make([]byte, moof.Size()+8)
	pos := 0
	moof.Marshal(out, &pos)
	WriteUint32(out, &pos, uint32(8+mdatSize))
	Write(out, &pos, []byte{'m', 'd', 'a', 't'})

	if pos != len(out) {
		return nil, fmt.Errorf("generate moof: %w: wrote %d of %d bytes", ErrIntegerConversion, pos, len(out))
	}
	return out, nil
}
