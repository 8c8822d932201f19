// Package vod synthesizes a seekable single-file MP4 response for a
// recorded video, given the sample index recorded by customformat, without
// copying the underlying mdat payload.
package vod

import (
	"fmt"

	"camkeep/pkg/video/customformat"
	"camkeep/pkg/video/mp4"
)

// GenerateMoov builds a complete ftyp+moov for a single video track
// describing samples, plus the size of the mdat payload that must follow
// it. header.StartTime and each sample's PTS/DTSOffset are H264Time ticks
// at the 90kHz timescale.
func GenerateMoov(header customformat.Header, samples []customformat.Sample) ([]byte, int64, error) {
	if len(samples) == 0 {
		return nil, 0, fmt.Errorf("generate moov: no samples")
	}

	params := mp4.TrackParams{
		Width:     header.Width,
		Height:    header.Height,
		ExtraData: header.ExtraData,
	}

	start := header.StartTime
	last := samples[len(samples)-1]
	end := last.DTS() + int64(last.Duration)
	durationTicks := end - start
	if durationTicks < 0 {
		return nil, 0, fmt.Errorf("generate moov: negative duration")
	}
	durationMs := (durationTicks * 1000) / mp4.H264TimeScale

	var mdatSize int64
	stts := &mp4.Stts{}
	stss := &mp4.Stss{}
	ctts := &mp4.Ctts{FullBox: mp4.FullBox{Version: 1}}
	stsz := &mp4.Stsz{}
	stco := &mp4.Stco{EntryCount: 1}

	for i, s := range samples {
		appendSttsEntry(stts, s.Duration)
		appendCttsEntry(ctts, s.DTSOffset)

		if s.RandomAccessPresent {
			stss.SampleNumber = append(stss.SampleNumber, uint32(i+1))
		}

		stsz.EntrySize = append(stsz.EntrySize, s.DataSize)
		mdatSize += int64(s.DataSize)
	}
	stts.EntryCount = uint32(len(stts.Entries))
	stss.EntryCount = uint32(len(stss.SampleNumber))
	ctts.EntryCount = uint32(len(ctts.Entries))
	stsz.SampleCount = uint32(len(stsz.EntrySize))

	stsc := &mp4.Stsc{
		EntryCount: 1,
		Entries: []mp4.StscEntry{
			{FirstChunk: 1, SamplesPerChunk: uint32(len(samples)), SampleDescriptionIndex: 1},
		},
	}

	ftyp := mp4.Boxes{Box: &mp4.Ftyp{
		MajorBrand:   [4]byte{'m', 'p', '4', '2'},
		MinorVersion: 1,
		CompatibleBrands: []mp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'m', 'p', '4', '1'}},
			{CompatibleBrand: [4]byte{'m', 'p', '4', '2'}},
			{CompatibleBrand: [4]byte{'i', 's', 'o', 'm'}},
		},
	}}

	moov := mp4.Boxes{
		Box: &mp4.Moov{},
		Children: []mp4.Boxes{
			{Box: &mp4.Mvhd{
				Timescale:   1000,
				DurationV0:  uint32(durationMs),
				Rate:        0x00010000,
				Volume:      0x0100,
				Matrix:      mp4.UnityMatrix,
				NextTrackID: 2,
			}},
			videoTrak(params, uint32(durationMs), uint32(durationTicks), stts, stss, ctts, stsc, stsz, stco),
		},
	}

	// stco's chunk offset depends on the full ftyp+moov size, which in
	// turn depends on stco's own (fixed) size: a placeholder entry fixes
	// the layout, then the real offset is patched in before marshaling moov.
	stco.ChunkOffset = []uint32{0}
	out := make([]byte, ftyp.Size()+moov.Size())
	pos := 0
	ftyp.Marshal(out, &pos)
	stco.ChunkOffset[0] = uint32(len(out) + 8)

	moov.Marshal(out, &pos)
	if pos != len(out) {
		return nil, 0, fmt.Errorf("generate moov: wrote %d of %d bytes", pos, len(out))
	}

	return out, mdatSize, nil
}

func videoTrak(
	params mp4.TrackParams,
	durationMs, durationTicks uint32,
	stts *mp4.Stts, stss *mp4.Stss, ctts *mp4.Ctts,
	stsc *mp4.Stsc, stsz *mp4.Stsz, stco *mp4.Stco,
) mp4.Boxes {
	return mp4.Boxes{
		Box: &mp4.Trak{},
		Children: []mp4.Boxes{
			{Box: &mp4.Tkhd{
				FullBox:    mp4.FullBox{Flags: [3]byte{0, 0, 3}},
				TrackID:    1,
				DurationV0: durationMs,
				Matrix:     mp4.UnityMatrix,
				Width:      uint32(params.Width) << 16,
				Height:     uint32(params.Height) << 16,
			}},
			{Box: &mp4.Mdia{}, Children: []mp4.Boxes{
				{Box: &mp4.Mdhd{
					Timescale:  mp4.H264TimeScale,
					DurationV0: durationTicks,
					Language:   mp4.UndLanguage,
				}},
				{Box: &mp4.Hdlr{
					HandlerType: [4]byte{'v', 'i', 'd', 'e'},
					Name:        "VideoHandler",
				}},
				{Box: &mp4.Minf{}, Children: []mp4.Boxes{
					{Box: &mp4.Vmhd{FullBox: mp4.FullBox{Flags: [3]byte{0, 0, 1}}}},
					{Box: &mp4.Dinf{}, Children: []mp4.Boxes{
						{Box: &mp4.Dref{EntryCount: 1}, Children: []mp4.Boxes{
							{Box: &mp4.URL{FullBox: mp4.FullBox{Flags: [3]byte{0, 0, 1}}}},
						}},
					}},
					{Box: &mp4.Stbl{}, Children: []mp4.Boxes{
						{Box: &mp4.Stsd{EntryCount: 1}, Children: []mp4.Boxes{
							mp4.VideoSampleEntry(params),
						}},
						{Box: stts},
						{Box: stss},
						{Box: ctts},
						{Box: stsc},
						{Box: stsz},
						{Box: stco},
					}},
				}},
			}},
		},
	}
}

func appendSttsEntry(stts *mp4.Stts, duration uint32) {
	n := len(stts.Entries)
	if n > 0 && stts.Entries[n-1].SampleDelta == duration {
		stts.Entries[n-1].SampleCount++
		return
	}
	stts.Entries = append(stts.Entries, mp4.SttsEntry{SampleCount: 1, SampleDelta: duration})
}

func appendCttsEntry(ctts *mp4.Ctts, offset int32) {
	n := len(ctts.Entries)
	if n > 0 && ctts.Entries[n-1].SampleOffsetV1 == offset {
		ctts.Entries[n-1].SampleCount++
		return
	}
	ctts.Entries = append(ctts.Entries, mp4.CttsEntry{SampleCount: 1, SampleOffsetV1: offset})
}
