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
// CRF，偏移相对AvtpOffset
//
//  0: subtype(8) | sv(1) version(3) mr(1) rsv(1) fs(1) tu(1) | sequence_num(8) | type(8)
//  4: stream_id(64)
// 12: pull(3) base_frequency(29)
// 16: crf_data_length(16) | timestamp_interval(16)
// 20: crf_data，每项64位
// --------------------------------------------------------------------------------------------------------------------

const (
	offCrfType              = AvtpOffset + 3
	offCrfPullBaseFrequency = AvtpOffset + 12
	offCrfDataLength        = AvtpOffset + 16
	offCrfTimestampInterval = AvtpOffset + 18
	offCrfData              = AvtpOffset + CrfHeaderSize
)

// CrfFs frame sync
func (p Packet) CrfFs() bool {
	return p[offFlags]&0x02 != 0
}

func (p Packet) SetCrfFs(v bool) {
	p[offFlags] = setBit(p[offFlags], 0x02, v)
}

func (p Packet) CrfTu() bool {
	return p[offFlags]&0x01 != 0
}

func (p Packet) SetCrfTu(v bool) {
	p[offFlags] = setBit(p[offFlags], 0x01, v)
}

func (p Packet) CrfType() uint8 {
	return p[offCrfType]
}

func (p Packet) SetCrfType(v uint8) {
	p[offCrfType] = v
}

func (p Packet) CrfPull() uint8 {
	return p[offCrfPullBaseFrequency] >> 5
}

func (p Packet) SetCrfPull(v uint8) {
	p[offCrfPullBaseFrequency] = (p[offCrfPullBaseFrequency] & 0x1F) | ((v & 0x7) << 5)
}

func (p Packet) CrfBaseFrequency() uint32 {
	return bele.BeUint32(p[offCrfPullBaseFrequency:]) & 0x1FFFFFFF
}

func (p Packet) SetCrfBaseFrequency(v uint32) {
	pull := uint32(p.CrfPull()) << 29
	bele.BePutUint32(p[offCrfPullBaseFrequency:], pull|(v&0x1FFFFFFF))
}

func (p Packet) CrfDataLength() uint16 {
	return bele.BeUint16(p[offCrfDataLength:])
}

func (p Packet) SetCrfDataLength(v uint16) {
	bele.BePutUint16(p[offCrfDataLength:], v)
}

func (p Packet) CrfTimestampInterval() uint16 {
	return bele.BeUint16(p[offCrfTimestampInterval:])
}

func (p Packet) SetCrfTimestampInterval(v uint16) {
	bele.BePutUint16(p[offCrfTimestampInterval:], v)
}

// CrfTimestamp 第i个crf时间戳，调用方保证 (i+1)*8 <= crf_data_length 且包长足够
func (p Packet) CrfTimestamp(i int) uint64 {
	off := offCrfData + i*8
	return uint64(bele.BeUint32(p[off:]))<<32 | uint64(bele.BeUint32(p[off+4:]))
}

func (p Packet) SetCrfTimestamp(i int, v uint64) {
	bele.BePutUint64(p[offCrfData+i*8:], v)
}
