// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avtp

import "github.com/q191201771/naza/pkg/bele"

// --------------------------------------------------------------------------------------------------------------------
// CVF，偏移相对AvtpOffset
//
// 16: format(8) | format_subtype(8) | rsv(16)
// 20: stream_data_length(16) | rsv(2) ptv(1) M(1) evt(4) | rsv(8)
// 24: h264_timestamp(32)，仅H264，D13草案中没有该字段
//
// stream_data_length 包含h264_timestamp
// --------------------------------------------------------------------------------------------------------------------

const (
	offCvfFormat        = offFormatInfo
	offCvfFormatSubtype = offFormatInfo + 1
	offCvfPtvMEvt       = offFormatSpecific
	offCvfH264Timestamp = offPayload
)

func (p Packet) CvfFormat() uint8 {
	return p[offCvfFormat]
}

func (p Packet) SetCvfFormat(v uint8) {
	p[offCvfFormat] = v
}

func (p Packet) CvfFormatSubtype() uint8 {
	return p[offCvfFormatSubtype]
}

func (p Packet) SetCvfFormatSubtype(v uint8) {
	p[offCvfFormatSubtype] = v
}

// CvfPtv h264_timestamp valid
func (p Packet) CvfPtv() bool {
	return p[offCvfPtvMEvt]&0x20 != 0
}

func (p Packet) SetCvfPtv(v bool) {
	p[offCvfPtvMEvt] = setBit(p[offCvfPtvMEvt], 0x20, v)
}

// CvfM marker，标识一帧（access unit）的最后一个包
func (p Packet) CvfM() bool {
	return p[offCvfPtvMEvt]&0x10 != 0
}

func (p Packet) SetCvfM(v bool) {
	p[offCvfPtvMEvt] = setBit(p[offCvfPtvMEvt], 0x10, v)
}

func (p Packet) CvfEvt() uint8 {
	return p[offCvfPtvMEvt] & 0x0F
}

func (p Packet) SetCvfEvt(v uint8) {
	p[offCvfPtvMEvt] = (p[offCvfPtvMEvt] & 0xF0) | (v & 0x0F)
}

func (p Packet) CvfH264Timestamp() uint32 {
	return bele.BeUint32(p[offCvfH264Timestamp:])
}

func (p Packet) SetCvfH264Timestamp(v uint32) {
	bele.BePutUint32(p[offCvfH264Timestamp:], v)
}

// CvfH264Payload h264 payload（rfc6184格式），withTimestamp 为false时为D13格式
func (p Packet) CvfH264Payload(withTimestamp bool) []byte {
	if withTimestamp {
		return p.payload(AvtpOffset+CvfH264HeaderSize, offPayload)
	}
	return p.payload(AvtpOffset+CvfH264D13HeaderSize, offPayload)
}
