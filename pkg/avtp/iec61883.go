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
// IEC 61883/IIDC stream header，偏移相对AvtpOffset
//
// 16: gateway_info(32)
// 20: stream_data_length(16) | tag(2) channel(6) | tcode(4) sy(4)
//
// CIP header
//
// 24: qi_1(2) sid(6) | dbs(8) | fn(2) qpc(3) sph(1) rsv(2) | dbc(8)
// 28: qi_2(2) fmt(6) | fdf(8) | syt(16)
// --------------------------------------------------------------------------------------------------------------------

const (
	offGatewayInfo = offFormatInfo
	offTagChannel  = offFormatSpecific
	offTcodeSy     = offFormatSpecific2

	offCip       = AvtpOffset + StreamHeaderSize
	offCipQi1Sid = offCip + 0
	offCipDbs    = offCip + 1
	offCipFnQpc  = offCip + 2
	offCipDbc    = offCip + 3
	offCipQi2Fmt = offCip + 4
	offCipFdf    = offCip + 5
	offCipSyt    = offCip + 6

	offIec61883Payload = AvtpOffset + Iec61883HeaderSize
)

func (p Packet) GatewayInfo() uint32 {
	return bele.BeUint32(p[offGatewayInfo:])
}

func (p Packet) SetGatewayInfo(v uint32) {
	bele.BePutUint32(p[offGatewayInfo:], v)
}

func (p Packet) Tag() uint8 {
	return p[offTagChannel] >> 6
}

func (p Packet) SetTag(v uint8) {
	p[offTagChannel] = (p[offTagChannel] & 0x3F) | ((v & 0x3) << 6)
}

func (p Packet) Channel() uint8 {
	return p[offTagChannel] & 0x3F
}

func (p Packet) SetChannel(v uint8) {
	p[offTagChannel] = (p[offTagChannel] & 0xC0) | (v & 0x3F)
}

func (p Packet) Tcode() uint8 {
	return p[offTcodeSy] >> 4
}

func (p Packet) SetTcode(v uint8) {
	p[offTcodeSy] = (p[offTcodeSy] & 0x0F) | ((v & 0xF) << 4)
}

func (p Packet) Sy() uint8 {
	return p[offTcodeSy] & 0x0F
}

func (p Packet) SetSy(v uint8) {
	p[offTcodeSy] = (p[offTcodeSy] & 0xF0) | (v & 0x0F)
}

func (p Packet) CipQi1() uint8 {
	return p[offCipQi1Sid] >> 6
}

func (p Packet) SetCipQi1(v uint8) {
	p[offCipQi1Sid] = (p[offCipQi1Sid] & 0x3F) | ((v & 0x3) << 6)
}

func (p Packet) CipSid() uint8 {
	return p[offCipQi1Sid] & 0x3F
}

func (p Packet) SetCipSid(v uint8) {
	p[offCipQi1Sid] = (p[offCipQi1Sid] & 0xC0) | (v & 0x3F)
}

func (p Packet) CipDbs() uint8 {
	return p[offCipDbs]
}

func (p Packet) SetCipDbs(v uint8) {
	p[offCipDbs] = v
}

func (p Packet) CipFn() uint8 {
	return p[offCipFnQpc] >> 6
}

func (p Packet) SetCipFn(v uint8) {
	p[offCipFnQpc] = (p[offCipFnQpc] & 0x3F) | ((v & 0x3) << 6)
}

func (p Packet) CipQpc() uint8 {
	return (p[offCipFnQpc] >> 3) & 0x7
}

func (p Packet) SetCipQpc(v uint8) {
	p[offCipFnQpc] = (p[offCipFnQpc] & 0xC7) | ((v & 0x7) << 3)
}

func (p Packet) CipSph() bool {
	return p[offCipFnQpc]&0x04 != 0
}

func (p Packet) SetCipSph(v bool) {
	p[offCipFnQpc] = setBit(p[offCipFnQpc], 0x04, v)
}

func (p Packet) CipDbc() uint8 {
	return p[offCipDbc]
}

func (p Packet) SetCipDbc(v uint8) {
	p[offCipDbc] = v
}

func (p Packet) CipQi2() uint8 {
	return p[offCipQi2Fmt] >> 6
}

func (p Packet) SetCipQi2(v uint8) {
	p[offCipQi2Fmt] = (p[offCipQi2Fmt] & 0x3F) | ((v & 0x3) << 6)
}

func (p Packet) CipFmt() uint8 {
	return p[offCipQi2Fmt] & 0x3F
}

func (p Packet) SetCipFmt(v uint8) {
	p[offCipQi2Fmt] = (p[offCipQi2Fmt] & 0xC0) | (v & 0x3F)
}

func (p Packet) CipFdf() uint8 {
	return p[offCipFdf]
}

func (p Packet) SetCipFdf(v uint8) {
	p[offCipFdf] = v
}

func (p Packet) CipSyt() uint16 {
	return bele.BeUint16(p[offCipSyt:])
}

func (p Packet) SetCipSyt(v uint16) {
	bele.BePutUint16(p[offCipSyt:], v)
}

// Iec61883Payload CIP头之后的数据，长度由stream_data_length决定，超出包长的部分被截断
func (p Packet) Iec61883Payload() []byte {
	return p.payload(offIec61883Payload, offCip)
}

// SfcFromSampleRate IEC 61883-6 FDF中的SFC（sampling frequency code）
func SfcFromSampleRate(rate int) (uint8, bool) {
	switch rate {
	case 32000:
		return 0, true
	case 44100:
		return 1, true
	case 48000:
		return 2, true
	case 88200:
		return 3, true
	case 96000:
		return 4, true
	case 176400:
		return 5, true
	case 192000:
		return 6, true
	}
	return 0, false
}

// payload 根据stream_data_length取出payload，dataStart 为stream_data_length计数的起点
func (p Packet) payload(payloadStart, dataStart int) []byte {
	end := dataStart + int(p.StreamDataLength())
	if end > len(p) {
		end = len(p)
	}
	if end < payloadStart {
		return nil
	}
	return p[payloadStart:end]
}
