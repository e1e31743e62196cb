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
	"github.com/q191201771/naza/pkg/nazabits"
)

// CommonHeader stream类格式的通用头部字段，主要用于日志和调试
type CommonHeader struct {
	Subtype          uint8
	Sv               uint8
	Version          uint8
	Mr               uint8
	Tv               uint8
	SequenceNum      uint8
	Tu               uint8
	StreamId         uint64
	AvtpTimestamp    uint32
	StreamDataLength uint16
}

type VlanTci struct {
	Pcp uint8
	Cfi uint8
	Vid uint16
}

// ParseCommonHeader
//
// @param pkt: 完整的以太网帧
func ParseCommonHeader(pkt []byte) (h CommonHeader, err error) {
	if err = Packet(pkt).Check(StreamHeaderSize); err != nil {
		return
	}

	br := nazabits.NewBitReader(pkt[AvtpOffset:])
	h.Subtype, _ = br.ReadBits8(8)
	h.Sv, _ = br.ReadBits8(1)
	h.Version, _ = br.ReadBits8(3)
	h.Mr, _ = br.ReadBits8(1)
	_, _ = br.ReadBits8(2)
	h.Tv, _ = br.ReadBits8(1)
	h.SequenceNum, _ = br.ReadBits8(8)
	_, _ = br.ReadBits8(7)
	h.Tu, _ = br.ReadBits8(1)
	hi, _ := br.ReadBits32(32)
	lo, _ := br.ReadBits32(32)
	h.StreamId = uint64(hi)<<32 | uint64(lo)
	h.AvtpTimestamp, _ = br.ReadBits32(32)
	_, _ = br.ReadBits32(32)
	h.StreamDataLength, err = br.ReadBits16(16)
	return
}

func ParseVlanTci(pkt []byte) (tci VlanTci, err error) {
	if len(pkt) < EthHeaderSize {
		err = base.NewErrBufferTooSmall(EthHeaderSize, len(pkt))
		return
	}

	br := nazabits.NewBitReader(pkt[offEthTci:])
	tci.Pcp, _ = br.ReadBits8(3)
	tci.Cfi, _ = br.ReadBits8(1)
	tci.Vid, err = br.ReadBits16(12)
	return
}
