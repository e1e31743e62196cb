// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avtp

import (
	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
)

// Packet 以太网帧（含802.1Q tag）+ AVTP头 + payload
//
// 字段读写前，调用方需要先用 Check 确认长度足够放下对应格式的头部
type Packet []byte

// --------------------------------------------------------------------------------------------------------------------
// 以太网头
//
// | dst(6) | src(6) | tpid(2) | pcp(3) cfi(1) vid(12) | ethertype(2) |
// --------------------------------------------------------------------------------------------------------------------

const (
	offEthDst       = 0
	offEthSrc       = 6
	offEthTpid      = 12
	offEthTci       = 14
	offEthEtherType = 16
)

// --------------------------------------------------------------------------------------------------------------------
// 通用stream头，偏移相对AvtpOffset
//
// 0                   1                   2                   3
// 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |    subtype    |S|ver  |M|   |T| sequence_num  |  format   |U|
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |                          stream_id                            |
// |                                                               |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |                        avtp_timestamp                         |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |                     format specific (32)                      |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |      stream_data_length       |  format specific (16)         |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// --------------------------------------------------------------------------------------------------------------------

const (
	offSubtype          = AvtpOffset + 0
	offFlags            = AvtpOffset + 1
	offSeq              = AvtpOffset + 2
	offTu               = AvtpOffset + 3
	offStreamId         = AvtpOffset + 4
	offAvtpTimestamp    = AvtpOffset + 12
	offFormatInfo       = AvtpOffset + 16
	offStreamDataLength = AvtpOffset + 20
	offFormatSpecific   = AvtpOffset + 22
	offFormatSpecific2  = AvtpOffset + 23
	offPayload          = AvtpOffset + 24
)

// Check 确认包长度至少为 AvtpOffset + headerSize
func (p Packet) Check(headerSize int) error {
	if len(p) < AvtpOffset+headerSize {
		return base.NewErrBufferTooSmall(AvtpOffset+headerSize, len(p))
	}
	return nil
}

// ----- ethernet ------------------------------------------------------------------------------------------------------

func (p Packet) DstMac() (m base.MacAddr) {
	copy(m[:], p[offEthDst:offEthDst+6])
	return
}

func (p Packet) SetDstMac(m base.MacAddr) {
	copy(p[offEthDst:offEthDst+6], m[:])
}

func (p Packet) SrcMac() (m base.MacAddr) {
	copy(m[:], p[offEthSrc:offEthSrc+6])
	return
}

func (p Packet) SetSrcMac(m base.MacAddr) {
	copy(p[offEthSrc:offEthSrc+6], m[:])
}

func (p Packet) Tpid() uint16 {
	return bele.BeUint16(p[offEthTpid:])
}

func (p Packet) SetTpid(v uint16) {
	bele.BePutUint16(p[offEthTpid:], v)
}

func (p Packet) Pcp() uint8 {
	return p[offEthTci] >> 5
}

func (p Packet) SetPcp(v uint8) {
	p[offEthTci] = (p[offEthTci] & 0x1F) | ((v & 0x7) << 5)
}

func (p Packet) Cfi() bool {
	return p[offEthTci]&0x10 != 0
}

func (p Packet) SetCfi(v bool) {
	p[offEthTci] = setBit(p[offEthTci], 0x10, v)
}

func (p Packet) Vid() uint16 {
	return bele.BeUint16(p[offEthTci:]) & 0x0FFF
}

func (p Packet) SetVid(v uint16) {
	tci := bele.BeUint16(p[offEthTci:])
	bele.BePutUint16(p[offEthTci:], (tci&0xF000)|(v&0x0FFF))
}

func (p Packet) EtherType() uint16 {
	return bele.BeUint16(p[offEthEtherType:])
}

func (p Packet) SetEtherType(v uint16) {
	bele.BePutUint16(p[offEthEtherType:], v)
}

// PutEthHeader 写入以太网头和802.1Q tag
func PutEthHeader(b []byte, dst, src base.MacAddr, vid uint16, pcp uint8) {
	p := Packet(b)
	p.SetDstMac(dst)
	p.SetSrcMac(src)
	p.SetTpid(TpidVlan)
	p.SetPcp(pcp)
	p.SetCfi(false)
	p.SetVid(vid)
	p.SetEtherType(EtherTypeAvtp)
}

// ----- common --------------------------------------------------------------------------------------------------------

func (p Packet) Subtype() uint8 {
	return p[offSubtype]
}

func (p Packet) SetSubtype(v uint8) {
	p[offSubtype] = v
}

func (p Packet) Sv() bool {
	return p[offFlags]&0x80 != 0
}

func (p Packet) SetSv(v bool) {
	p[offFlags] = setBit(p[offFlags], 0x80, v)
}

func (p Packet) Version() uint8 {
	return (p[offFlags] >> 4) & 0x7
}

func (p Packet) SetVersion(v uint8) {
	p[offFlags] = (p[offFlags] & 0x8F) | ((v & 0x7) << 4)
}

func (p Packet) Mr() bool {
	return p[offFlags]&0x08 != 0
}

func (p Packet) SetMr(v bool) {
	p[offFlags] = setBit(p[offFlags], 0x08, v)
}

// Tv avtp_timestamp valid
func (p Packet) Tv() bool {
	return p[offFlags]&0x01 != 0
}

func (p Packet) SetTv(v bool) {
	p[offFlags] = setBit(p[offFlags], 0x01, v)
}

func (p Packet) SequenceNum() uint8 {
	return p[offSeq]
}

func (p Packet) SetSequenceNum(v uint8) {
	p[offSeq] = v
}

// Tu timestamp uncertain
func (p Packet) Tu() bool {
	return p[offTu]&0x01 != 0
}

func (p Packet) SetTu(v bool) {
	p[offTu] = setBit(p[offTu], 0x01, v)
}

func (p Packet) StreamId() uint64 {
	return uint64(bele.BeUint32(p[offStreamId:]))<<32 | uint64(bele.BeUint32(p[offStreamId+4:]))
}

func (p Packet) SetStreamId(v uint64) {
	bele.BePutUint64(p[offStreamId:], v)
}

func (p Packet) AvtpTimestamp() uint32 {
	return bele.BeUint32(p[offAvtpTimestamp:])
}

func (p Packet) SetAvtpTimestamp(v uint32) {
	bele.BePutUint32(p[offAvtpTimestamp:], v)
}

func (p Packet) StreamDataLength() uint16 {
	return bele.BeUint16(p[offStreamDataLength:])
}

func (p Packet) SetStreamDataLength(v uint16) {
	bele.BePutUint16(p[offStreamDataLength:], v)
}

func setBit(b, mask uint8, v bool) uint8 {
	if v {
		return b | mask
	}
	return b &^ mask
}
