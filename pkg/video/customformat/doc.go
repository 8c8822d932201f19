// Package customformat reads and writes recordings in a custom format.
package customformat

// Custom format for storing videos.
// Requirements.
//   1. Data must remain valid in case of a system failure.
//   2. Samples must be readable as soon as they are written.
//
//
// video_<W>x<H>.mdat: continuous chunks of raw AVCC NAL data.
//   []byte
//
// video_<W>x<H>.meta: fixed header followed by one record per sample.
//   version       uint8
//   startTime     int64 // H264Time, 90kHz.
//   width         uint16
//   height        uint16
//   extraDataSize uint16
//   extraData     []byte
//   samples       []sampleV1
//
//
// sampleV1 { // 25 bytes.
//   flags     uint8  { randomAccessPresent }
//   pts       int64  // 90kHz, absolute.
//   dtsOffset int32  // 90kHz, signed.
//   duration  uint32 // 90kHz.
//   offset    uint32 // into .mdat.
//   size      uint32 // into .mdat.
// }
