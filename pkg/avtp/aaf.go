// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avtp

// --------------------------------------------------------------------------------------------------------------------
// AAF PCM，偏移相对AvtpOffset
//
// 16: format(8) | nsr(4) rsv(2) channels_per_frame(10) | bit_depth(8)
// 20: stream_data_length(16) | rsv(3) sp(1) evt(4) | rsv(8)
// --------------------------------------------------------------------------------------------------------------------

const (
	offAafFormat   = offFormatInfo
	offAafNsr      = offFormatInfo + 1
	offAafChannels = offFormatInfo + 1
	offAafBitDepth = offFormatInfo + 3
	offAafSpEvt    = offFormatSpecific
)

func (p Packet) AafFormat() uint8 {
	return p[offAafFormat]
}

func (p Packet) SetAafFormat(v uint8) {
	p[offAafFormat] = v
}

func (p Packet) AafNsr() uint8 {
	return p[offAafNsr] >> 4
}

func (p Packet) SetAafNsr(v uint8) {
	p[offAafNsr] = (p[offAafNsr] & 0x0F) | ((v & 0xF) << 4)
}

func (p Packet) AafChannels() uint16 {
	return uint16(p[offAafChannels]&0x03)<<8 | uint16(p[offAafChannels+1])
}

func (p Packet) SetAafChannels(v uint16) {
	p[offAafChannels] = (p[offAafChannels] & 0xFC) | uint8((v>>8)&0x03)
	p[offAafChannels+1] = uint8(v)
}

func (p Packet) AafBitDepth() uint8 {
	return p[offAafBitDepth]
}

func (p Packet) SetAafBitDepth(v uint8) {
	p[offAafBitDepth] = v
}

// AafSp sparse timestamp mode
func (p Packet) AafSp() bool {
	return p[offAafSpEvt]&0x10 != 0
}

func (p Packet) SetAafSp(v bool) {
	p[offAafSpEvt] = setBit(p[offAafSpEvt], 0x10, v)
}

func (p Packet) AafEvt() uint8 {
	return p[offAafSpEvt] & 0x0F
}

func (p Packet) SetAafEvt(v uint8) {
	p[offAafSpEvt] = (p[offAafSpEvt] & 0xF0) | (v & 0x0F)
}

func (p Packet) AafPayload() []byte {
	return p.payload(offPayload, offPayload)
}

// AafWireBytes 每个采样在线上的字节数，未知格式返回0
func AafWireBytes(format uint8) int {
	switch format {
	case AafFormatInt16Bit:
		return 2
	case AafFormatInt24Bit:
		return 3
	case AafFormatInt32Bit, AafFormatFloat32Bit, AafFormatAes3_32Bit:
		return 4
	}
	return 0
}

var nsrTable = []struct {
	nsr  uint8
	rate int
}{
	{0x1, 8000},
	{0x2, 16000},
	{0x3, 32000},
	{0x4, 44100},
	{0x5, 48000},
	{0x6, 88200},
	{0x7, 96000},
	{0x8, 176400},
	{0x9, 192000},
	{0xA, 24000},
}

// NsrFromSampleRate nominal sample rate，不在表中的采样率返回false
func NsrFromSampleRate(rate int) (uint8, bool) {
	for _, item := range nsrTable {
		if item.rate == rate {
			return item.nsr, true
		}
	}
	return 0, false
}

func SampleRateFromNsr(nsr uint8) (int, bool) {
	for _, item := range nsrTable {
		if item.nsr == nsr {
			return item.rate, true
		}
	}
	return 0, false
}
